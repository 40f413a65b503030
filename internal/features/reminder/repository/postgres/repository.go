package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/member"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/reminder/models"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/reminder/repository"
)

// uniqueViolation is the SQLSTATE of a primary key / unique conflict.
const uniqueViolation = "23505"

type reminderRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.ReminderRepository {
	return &reminderRepository{db: db}
}

func (r *reminderRepository) ListOwners(ctx context.Context) ([]models.Owner, error) {
	const q = `
		SELECT member_id, guild_id, label, started_at, expires_at, channel_id
		FROM reminders
		ORDER BY member_id, guild_id, started_at`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list reminder owners: %w", err)
	}
	defer rows.Close()

	var (
		owners []models.Owner
		index  = map[member.Key]int{}
	)
	for rows.Next() {
		var (
			key member.Key
			rem models.Reminder
		)
		if err := rows.Scan(&key.MemberID, &key.GuildID, &rem.Label, &rem.StartedAt, &rem.ExpiresAt, &rem.ChannelID); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		i, ok := index[key]
		if !ok {
			i = len(owners)
			index[key] = i
			owners = append(owners, models.Owner{Key: key})
		}
		owners[i].Reminders = append(owners[i].Reminders, rem)
	}
	return owners, rows.Err()
}

func (r *reminderRepository) ListByOwner(ctx context.Context, key member.Key) ([]models.Reminder, error) {
	const q = `
		SELECT label, started_at, expires_at, channel_id
		FROM reminders
		WHERE member_id = $1 AND guild_id = $2
		ORDER BY started_at`
	rows, err := r.db.QueryContext(ctx, q, key.MemberID, key.GuildID)
	if err != nil {
		return nil, fmt.Errorf("list reminders of %s: %w", key, err)
	}
	defer rows.Close()

	var out []models.Reminder
	for rows.Next() {
		var rem models.Reminder
		if err := rows.Scan(&rem.Label, &rem.StartedAt, &rem.ExpiresAt, &rem.ChannelID); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		out = append(out, rem)
	}
	return out, rows.Err()
}

func (r *reminderRepository) Insert(ctx context.Context, key member.Key, rem models.Reminder) error {
	const q = `
		INSERT INTO reminders (member_id, guild_id, label, started_at, expires_at, channel_id)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, q, key.MemberID, key.GuildID, rem.Label, rem.StartedAt, rem.ExpiresAt, rem.ChannelID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return repository.ErrDuplicateLabel
		}
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

func (r *reminderRepository) Delete(ctx context.Context, key member.Key, label string) (bool, error) {
	const q = `DELETE FROM reminders WHERE member_id = $1 AND guild_id = $2 AND label = $3`
	res, err := r.db.ExecContext(ctx, q, key.MemberID, key.GuildID, label)
	if err != nil {
		return false, fmt.Errorf("delete reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete reminder: %w", err)
	}
	return n > 0, nil
}

func (r *reminderRepository) DeleteInstance(ctx context.Context, key member.Key, rem models.Reminder) (bool, error) {
	const q = `DELETE FROM reminders WHERE member_id = $1 AND guild_id = $2 AND label = $3 AND started_at = $4`
	res, err := r.db.ExecContext(ctx, q, key.MemberID, key.GuildID, rem.Label, rem.StartedAt)
	if err != nil {
		return false, fmt.Errorf("delete reminder instance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete reminder instance: %w", err)
	}
	return n > 0, nil
}
