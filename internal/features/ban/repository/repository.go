package repository

import (
	"context"
	"time"

	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/member"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/ban/models"
)

type BanRepository interface {
	// ListActive returns every member with active = true.
	ListActive(ctx context.Context) ([]models.MemberBan, error)
	// Get returns nil, nil when the member has no ban record.
	Get(ctx context.Context, key member.Key) (*models.MemberBan, error)
	Save(ctx context.Context, ban *models.MemberBan) error
	// Clear sets active = false and drops every ban field, but only while the
	// stored ban still expires at expiresAt. It reports whether a row changed.
	Clear(ctx context.Context, key member.Key, expiresAt time.Time) (bool, error)
}
