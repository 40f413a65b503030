package repository

import (
	"context"
	"errors"

	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/member"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/reminder/models"
)

// ErrDuplicateLabel is returned by Insert when the owner already has a
// reminder with the same label.
var ErrDuplicateLabel = errors.New("reminder label already exists")

type ReminderRepository interface {
	// ListOwners returns every owner holding at least one reminder.
	ListOwners(ctx context.Context) ([]models.Owner, error)
	ListByOwner(ctx context.Context, key member.Key) ([]models.Reminder, error)
	Insert(ctx context.Context, key member.Key, r models.Reminder) error
	// Delete reports whether a reminder was removed.
	Delete(ctx context.Context, key member.Key, label string) (bool, error)
	// DeleteInstance removes r only while the stored reminder with its label
	// still started at r.StartedAt.
	DeleteInstance(ctx context.Context, key member.Key, r models.Reminder) (bool, error)
}
