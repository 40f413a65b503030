package models

import (
	"time"

	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/member"
)

// Reminder is one named reminder of a member. Labels are unique per owner.
type Reminder struct {
	Label     string    `json:"label"`
	StartedAt time.Time `json:"started_at"`
	ExpiresAt time.Time `json:"expires_at"`
	ChannelID string    `json:"channel_id"`
}

// DueAt reports whether the reminder must be delivered at now.
func (r Reminder) DueAt(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Owner groups the reminders of one (member, guild) pair.
type Owner struct {
	Key       member.Key `json:"key"`
	Reminders []Reminder `json:"reminders"`
}

func (o Owner) Find(label string) (Reminder, bool) {
	for _, r := range o.Reminders {
		if r.Label == label {
			return r, true
		}
	}
	return Reminder{}, false
}

// With returns a copy of o with r appended.
func (o Owner) With(r Reminder) Owner {
	next := make([]Reminder, 0, len(o.Reminders)+1)
	next = append(next, o.Reminders...)
	next = append(next, r)
	return Owner{Key: o.Key, Reminders: next}
}

// Without returns a copy of o lacking the reminder named label.
func (o Owner) Without(label string) Owner {
	next := make([]Reminder, 0, len(o.Reminders))
	for _, r := range o.Reminders {
		if r.Label != label {
			next = append(next, r)
		}
	}
	return Owner{Key: o.Key, Reminders: next}
}

type AddInput struct {
	Label     string
	Duration  time.Duration
	ChannelID string
}
