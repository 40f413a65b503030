package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/member"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/ban/models"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/ban/repository"
	pg "github.com/nevar-bot/nevar-v6-sub000/internal/platform/postgres"
)

const banColumns = `member_id, guild_id, active, reason, moderator_id, issued_at, duration_ms, expires_at`

type banRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.BanRepository {
	return &banRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBan(row rowScanner) (models.MemberBan, error) {
	var (
		mb          models.MemberBan
		reason      sql.NullString
		moderatorID sql.NullString
		issuedAt    sql.NullTime
		durationMs  sql.NullInt64
		expiresAt   sql.NullTime
	)
	if err := row.Scan(&mb.Key.MemberID, &mb.Key.GuildID, &mb.Ban.Active, &reason, &moderatorID, &issuedAt, &durationMs, &expiresAt); err != nil {
		return mb, err
	}
	mb.Ban.Reason = reason.String
	mb.Ban.ModeratorID = moderatorID.String
	mb.Ban.IssuedAt = pg.TimeOrZero(issuedAt)
	mb.Ban.Duration = pg.DurationFromMillis(durationMs)
	mb.Ban.ExpiresAt = pg.TimeOrZero(expiresAt)
	return mb, nil
}

func (r *banRepository) ListActive(ctx context.Context) ([]models.MemberBan, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+banColumns+` FROM member_bans WHERE active = true`)
	if err != nil {
		return nil, fmt.Errorf("list active bans: %w", err)
	}
	defer rows.Close()

	var out []models.MemberBan
	for rows.Next() {
		mb, err := scanBan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ban: %w", err)
		}
		out = append(out, mb)
	}
	return out, rows.Err()
}

func (r *banRepository) Get(ctx context.Context, key member.Key) (*models.MemberBan, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+banColumns+` FROM member_bans WHERE member_id = $1 AND guild_id = $2`, key.MemberID, key.GuildID)
	mb, err := scanBan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ban %s: %w", key, err)
	}
	return &mb, nil
}

func (r *banRepository) Save(ctx context.Context, mb *models.MemberBan) error {
	const q = `
		INSERT INTO member_bans (` + banColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (member_id, guild_id) DO UPDATE SET
			active = EXCLUDED.active,
			reason = EXCLUDED.reason,
			moderator_id = EXCLUDED.moderator_id,
			issued_at = EXCLUDED.issued_at,
			duration_ms = EXCLUDED.duration_ms,
			expires_at = EXCLUDED.expires_at`
	b := mb.Ban
	_, err := r.db.ExecContext(ctx, q,
		mb.Key.MemberID, mb.Key.GuildID, b.Active,
		pg.NullString(b.Reason), pg.NullString(b.ModeratorID), pg.NullTime(b.IssuedAt),
		pg.NullDuration(b.Duration), pg.NullTime(b.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("save ban %s: %w", mb.Key, err)
	}
	return nil
}

func (r *banRepository) Clear(ctx context.Context, key member.Key, expiresAt time.Time) (bool, error) {
	const q = `
		UPDATE member_bans
		SET active = false, reason = NULL, moderator_id = NULL, issued_at = NULL, duration_ms = NULL, expires_at = NULL
		WHERE member_id = $1 AND guild_id = $2 AND active = true AND expires_at = $3`
	res, err := r.db.ExecContext(ctx, q, key.MemberID, key.GuildID, expiresAt)
	if err != nil {
		return false, fmt.Errorf("clear ban %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("clear ban %s: %w", key, err)
	}
	return n > 0, nil
}
