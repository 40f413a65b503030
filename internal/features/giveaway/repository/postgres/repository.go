package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/nevar-bot/nevar-v6-sub000/internal/features/giveaway/models"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/giveaway/repository"
)

const giveawayColumns = `message_id, channel_id, guild_id, start_at, end_at, ended, winner_count, prize, hosted_by, ` +
	`entrant_ids, winner_ids, exempt_member_ids, requirements`

type giveawayRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.GiveawayRepository {
	return &giveawayRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGiveaway(row rowScanner) (*models.Giveaway, error) {
	var (
		g    models.Giveaway
		reqs []byte
	)
	err := row.Scan(
		&g.MessageID, &g.ChannelID, &g.GuildID, &g.StartAt, &g.EndAt, &g.Ended, &g.WinnerCount, &g.Prize, &g.HostedBy,
		pq.Array(&g.EntrantIDs), pq.Array(&g.WinnerIDs), pq.Array(&g.ExemptMemberIDs), &reqs,
	)
	if err != nil {
		return nil, err
	}
	if len(reqs) > 0 {
		if err := json.Unmarshal(reqs, &g.Requirements); err != nil {
			return nil, fmt.Errorf("giveaway %s: %w", g.MessageID, err)
		}
	}
	return &g, nil
}

func (r *giveawayRepository) list(ctx context.Context, query string, args ...any) ([]*models.Giveaway, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Giveaway
	for rows.Next() {
		g, err := scanGiveaway(rows)
		if err != nil {
			return nil, fmt.Errorf("scan giveaway: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *giveawayRepository) Create(ctx context.Context, g *models.Giveaway) error {
	reqs, err := json.Marshal(g.Requirements)
	if err != nil {
		return fmt.Errorf("encode requirements: %w", err)
	}
	q := `INSERT INTO giveaways (` + giveawayColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err = r.db.ExecContext(ctx, q,
		g.MessageID, g.ChannelID, g.GuildID, g.StartAt, g.EndAt, g.Ended, g.WinnerCount, g.Prize, g.HostedBy,
		pq.Array(nonNil(g.EntrantIDs)), pq.Array(nonNil(g.WinnerIDs)), pq.Array(nonNil(g.ExemptMemberIDs)), reqs,
	)
	if err != nil {
		return fmt.Errorf("insert giveaway %s: %w", g.MessageID, err)
	}
	return nil
}

func (r *giveawayRepository) GetByMessageID(ctx context.Context, messageID string) (*models.Giveaway, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+giveawayColumns+` FROM giveaways WHERE message_id = $1`, messageID)
	g, err := scanGiveaway(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get giveaway %s: %w", messageID, err)
	}
	return g, nil
}

func (r *giveawayRepository) ListAll(ctx context.Context) ([]*models.Giveaway, error) {
	out, err := r.list(ctx, `SELECT `+giveawayColumns+` FROM giveaways ORDER BY start_at`)
	if err != nil {
		return nil, fmt.Errorf("list giveaways: %w", err)
	}
	return out, nil
}

func (r *giveawayRepository) ListActive(ctx context.Context) ([]*models.Giveaway, error) {
	out, err := r.list(ctx, `SELECT `+giveawayColumns+` FROM giveaways WHERE ended = false ORDER BY end_at`)
	if err != nil {
		return nil, fmt.Errorf("list active giveaways: %w", err)
	}
	return out, nil
}

func (r *giveawayRepository) exec(ctx context.Context, op, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

func (r *giveawayRepository) AddEntrant(ctx context.Context, messageID, memberID string) (bool, error) {
	const q = `
		UPDATE giveaways SET entrant_ids = array_append(entrant_ids, $2)
		WHERE message_id = $1 AND ended = false AND NOT ($2 = ANY(entrant_ids))`
	return r.exec(ctx, "add entrant", q, messageID, memberID)
}

func (r *giveawayRepository) RemoveEntrant(ctx context.Context, messageID, memberID string) (bool, error) {
	const q = `
		UPDATE giveaways SET entrant_ids = array_remove(entrant_ids, $2)
		WHERE message_id = $1 AND ended = false AND $2 = ANY(entrant_ids)`
	return r.exec(ctx, "remove entrant", q, messageID, memberID)
}

func (r *giveawayRepository) MarkEnded(ctx context.Context, messageID string, endAt time.Time, winnerIDs []string) (bool, error) {
	const q = `
		UPDATE giveaways SET ended = true, end_at = $2, winner_ids = $3
		WHERE message_id = $1 AND ended = false`
	return r.exec(ctx, "end giveaway", q, messageID, endAt, pq.Array(nonNil(winnerIDs)))
}

func (r *giveawayRepository) UpdateWinners(ctx context.Context, messageID string, winnerIDs []string) (bool, error) {
	const q = `UPDATE giveaways SET winner_ids = $2 WHERE message_id = $1 AND ended = true`
	return r.exec(ctx, "update winners", q, messageID, pq.Array(nonNil(winnerIDs)))
}

func (r *giveawayRepository) UpdateDetails(ctx context.Context, messageID, prize string, winnerCount int, endAt time.Time) (bool, error) {
	const q = `
		UPDATE giveaways SET prize = $2, winner_count = $3, end_at = $4
		WHERE message_id = $1 AND ended = false`
	return r.exec(ctx, "update giveaway", q, messageID, prize, winnerCount, endAt)
}

func (r *giveawayRepository) Delete(ctx context.Context, messageID string) (bool, error) {
	return r.exec(ctx, "delete giveaway", `DELETE FROM giveaways WHERE message_id = $1`, messageID)
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
