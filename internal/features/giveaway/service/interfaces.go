package service

import (
	"context"
	"time"

	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/member"
	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/message"
)

// Messenger renders giveaways into public messages.
type Messenger interface {
	SendMessage(ctx context.Context, channelID string, msg message.Message) (string, error)
	EditMessage(ctx context.Context, channelID, messageID string, msg message.Message) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	// FetchMessage returns message.ErrNotFound when the message is gone.
	FetchMessage(ctx context.Context, channelID, messageID string) (*message.Message, error)
}

// MemberDirectory looks up platform facts about members.
type MemberDirectory interface {
	Member(ctx context.Context, guildID, memberID string) (*member.Profile, error)
	AccountCreatedAt(memberID string) (time.Time, error)
}

type LevelLookup interface {
	Level(ctx context.Context, key member.Key) (int, error)
}
