package message

import "errors"

// ErrNotFound is returned by messaging adapters when the channel, message
// or member addressed no longer exists on the platform.
var ErrNotFound = errors.New("message target not found")

// Message is the platform-neutral content of a public message.
type Message struct {
	Content string
	// EntryButton attaches the "participate" button used by giveaways.
	EntryButton bool
}

// EntryButtonID is the custom id carried by the participate button.
const EntryButtonID = "giveaway_participate"

func Text(content string) Message {
	return Message{Content: content}
}
