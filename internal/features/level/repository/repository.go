package repository

import (
	"context"

	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/member"
)

// LevelRepository reads progression levels. A member without a record is
// level 0.
type LevelRepository interface {
	Level(ctx context.Context, key member.Key) (int, error)
}
