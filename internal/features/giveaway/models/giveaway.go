package models

import (
	"time"
)

// Giveaway is identified by the id of the public message it is rendered into.
type Giveaway struct {
	MessageID       string         `json:"message_id"`
	ChannelID       string         `json:"channel_id"`
	GuildID         string         `json:"guild_id"`
	StartAt         time.Time      `json:"start_at"`
	EndAt           time.Time      `json:"end_at"`
	Ended           bool           `json:"ended"`
	WinnerCount     int            `json:"winner_count"`
	Prize           string         `json:"prize"`
	HostedBy        string         `json:"hosted_by"`
	EntrantIDs      []string       `json:"entrant_ids"`
	WinnerIDs       []string       `json:"winner_ids"`
	ExemptMemberIDs []string       `json:"exempt_member_ids"`
	Requirements    RequirementSet `json:"requirements"`
}

func (g *Giveaway) HasEntrant(memberID string) bool {
	return contains(g.EntrantIDs, memberID)
}

func (g *Giveaway) IsExempt(memberID string) bool {
	return contains(g.ExemptMemberIDs, memberID)
}

// DueAt reports whether a scheduled giveaway has reached its end time.
func (g *Giveaway) DueAt(now time.Time) bool {
	return !g.Ended && !g.EndAt.After(now)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// CreateInput describes a new giveaway.
type CreateInput struct {
	ChannelID       string
	GuildID         string
	HostedBy        string
	Prize           string
	WinnerCount     int
	Duration        time.Duration
	ExemptMemberIDs []string
	Requirements    RequirementSet
}

// EditInput changes a scheduled giveaway. Nil fields are left untouched;
// Extend moves the end time forward.
type EditInput struct {
	Prize       *string
	WinnerCount *int
	Extend      time.Duration
}

// EntryOutcome is the result of the participate button.
type EntryOutcome int

const (
	EntryRejected EntryOutcome = iota
	EntryAdded
	EntryRemoved
)
