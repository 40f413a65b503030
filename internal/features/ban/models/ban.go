package models

import (
	"time"

	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/member"
)

// Ban is the temporary ban state attached to a member record. Zero values
// of the optional fields mean "not set".
type Ban struct {
	Active      bool          `json:"active"`
	Reason      string        `json:"reason,omitempty"`
	ModeratorID string        `json:"moderator_id,omitempty"`
	IssuedAt    time.Time     `json:"issued_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	ExpiresAt   time.Time     `json:"expires_at,omitempty"`
}

// ExpiredAt reports whether an active ban must be lifted at now.
func (b Ban) ExpiredAt(now time.Time) bool {
	return b.Active && !b.ExpiresAt.IsZero() && !b.ExpiresAt.After(now)
}

// MemberBan is one ban state per (member, guild) pair.
type MemberBan struct {
	Key member.Key `json:"key"`
	Ban Ban        `json:"ban"`
}

// IssueInput describes a moderation action creating a temporary ban.
type IssueInput struct {
	GuildID     string
	MemberID    string
	ModeratorID string
	Reason      string
	Duration    time.Duration
}
