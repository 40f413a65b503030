package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/member"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/reminder/models"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/reminder/repository"
)

func TestReminderRepository_ListOwners(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT member_id, guild_id, label, started_at, expires_at, channel_id\s+FROM reminders`).
		WillReturnRows(sqlmock.NewRows([]string{"member_id", "guild_id", "label", "started_at", "expires_at", "channel_id"}).
			AddRow("m1", "g1", "a", t0, t0.Add(time.Minute), "c1").
			AddRow("m1", "g1", "b", t0, t0.Add(time.Hour), "c1").
			AddRow("m2", "g1", "a", t0, t0.Add(time.Minute), "c2"))

	owners, err := NewPostgresRepository(db).ListOwners(context.Background())
	require.NoError(t, err)
	require.Len(t, owners, 2)
	assert.Equal(t, member.NewKey("m1", "g1"), owners[0].Key)
	assert.Len(t, owners[0].Reminders, 2)
	assert.Equal(t, member.NewKey("m2", "g1"), owners[1].Key)
	assert.Equal(t, "c2", owners[1].Reminders[0].ChannelID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReminderRepository_Insert(t *testing.T) {
	ctx := context.Background()
	key := member.NewKey("m1", "g1")
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rem := models.Reminder{Label: "Test", StartedAt: t0, ExpiresAt: t0.Add(10 * time.Second), ChannelID: "c1"}

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
		anyErr  bool
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO reminders`).
					WithArgs("m1", "g1", "Test", t0, t0.Add(10*time.Second), "c1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "duplicate label",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO reminders`).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: repository.ErrDuplicateLabel,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO reminders`).WillReturnError(sql.ErrConnDone)
			},
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			err = NewPostgresRepository(db).Insert(ctx, key, rem)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				require.Error(t, err)
				require.NotErrorIs(t, err, repository.ErrDuplicateLabel)
			default:
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestReminderRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)
	key := member.NewKey("m1", "g1")

	mock.ExpectExec(`DELETE FROM reminders WHERE member_id = \$1 AND guild_id = \$2 AND label = \$3`).
		WithArgs("m1", "g1", "Test").
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.Delete(context.Background(), key, "Test")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(`DELETE FROM reminders`).
		WithArgs("m1", "g1", "Missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.Delete(context.Background(), key, "Missing")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReminderRepository_DeleteInstance(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)
	key := member.NewKey("m1", "g1")
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rem := models.Reminder{Label: "Test", StartedAt: started}

	mock.ExpectExec(`DELETE FROM reminders WHERE member_id = \$1 AND guild_id = \$2 AND label = \$3 AND started_at = \$4`).
		WithArgs("m1", "g1", "Test", started).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.DeleteInstance(context.Background(), key, rem)
	require.NoError(t, err)
	assert.True(t, ok)

	// A reminder re-added under the same label has another start time.
	mock.ExpectExec(`DELETE FROM reminders`).
		WithArgs("m1", "g1", "Test", started).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.DeleteInstance(context.Background(), key, rem)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReminderRepository_ListByOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT label, started_at, expires_at, channel_id\s+FROM reminders\s+WHERE member_id = \$1`).
		WithArgs("m1", "g1").
		WillReturnRows(sqlmock.NewRows([]string{"label", "started_at", "expires_at", "channel_id"}).
			AddRow("Test", t0, t0.Add(time.Minute), "c1"))

	got, err := NewPostgresRepository(db).ListByOwner(context.Background(), member.NewKey("m1", "g1"))
	require.NoError(t, err)
	assert.Equal(t, []models.Reminder{{Label: "Test", StartedAt: t0, ExpiresAt: t0.Add(time.Minute), ChannelID: "c1"}}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}
