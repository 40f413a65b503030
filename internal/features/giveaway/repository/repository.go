package repository

import (
	"context"
	"time"

	"github.com/nevar-bot/nevar-v6-sub000/internal/features/giveaway/models"
)

// GiveawayRepository persists giveaways keyed by message id. Conditional
// updates report false when the row is missing or in the wrong state.
type GiveawayRepository interface {
	Create(ctx context.Context, g *models.Giveaway) error
	// GetByMessageID returns nil, nil when no giveaway exists.
	GetByMessageID(ctx context.Context, messageID string) (*models.Giveaway, error)
	ListAll(ctx context.Context) ([]*models.Giveaway, error)
	// ListActive returns giveaways with ended = false.
	ListActive(ctx context.Context) ([]*models.Giveaway, error)

	AddEntrant(ctx context.Context, messageID, memberID string) (bool, error)
	RemoveEntrant(ctx context.Context, messageID, memberID string) (bool, error)

	// MarkEnded flips ended and stores the winners, only if not yet ended.
	MarkEnded(ctx context.Context, messageID string, endAt time.Time, winnerIDs []string) (bool, error)
	// UpdateWinners replaces the winners of an ended giveaway.
	UpdateWinners(ctx context.Context, messageID string, winnerIDs []string) (bool, error)
	// UpdateDetails edits a scheduled giveaway.
	UpdateDetails(ctx context.Context, messageID, prize string, winnerCount int, endAt time.Time) (bool, error)
	Delete(ctx context.Context, messageID string) (bool, error)
}
