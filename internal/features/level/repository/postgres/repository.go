package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/member"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/level/repository"
)

type levelRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.LevelRepository {
	return &levelRepository{db: db}
}

func (r *levelRepository) Level(ctx context.Context, key member.Key) (int, error) {
	var level int
	err := r.db.QueryRowContext(ctx,
		`SELECT level FROM member_levels WHERE member_id = $1 AND guild_id = $2`,
		key.MemberID, key.GuildID,
	).Scan(&level)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get level of %s: %w", key, err)
	}
	return level, nil
}
