package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/genstudio/internal/models"
)

func TestActivityRepositoryAppendPrunesToLimit(t *testing.T) {
	db, mock := newMock(t)
	repo := NewActivityRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO activity_log`).
		WithArgs("a1", "u1", models.ActivityLogin, "User logged in.", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`DELETE FROM activity_log`).WithArgs(500).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Append(context.Background(), &models.ActivityLogItem{
		ID: "a1", UserID: "u1", Type: models.ActivityLogin, Details: "User logged in.", CreatedAt: time.Now(),
	}, 500)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryList(t *testing.T) {
	db, mock := newMock(t)
	repo := NewActivityRepository(db)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM activity_log ORDER BY seq DESC LIMIT \?`).WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "type", "details", "created_at"}).
			AddRow("a2", "u1", "signup", "New user signed up: Jane", now).
			AddRow("a1", "u1", "login", "User logged in.", now))

	items, err := repo.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.ActivitySignup, items[0].Type)
}

func TestSettingsRepositoryGetMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSettingsRepository(db)

	mock.ExpectQuery(`SELECT value FROM settings WHERE name = \?`).WithArgs("feature_flags").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	var flags models.FeatureFlags
	ok, err := repo.Get(context.Background(), "feature_flags", &flags)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSettingsRepositoryRoundTrip(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSettingsRepository(db)

	mock.ExpectQuery(`SELECT value FROM settings`).WithArgs("reward_settings").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"cycle_days":2,"rewards":{"1":5,"2":15}}`)))

	var rs models.RewardSettings
	ok, err := repo.Get(context.Background(), "reward_settings", &rs)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, rs.CycleDays)
	assert.Equal(t, int64(15), rs.RewardFor(2))
}

func TestVideoRepositoryResolveMissingOperation(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVideoRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM video_history WHERE operation_id = \? FOR UPDATE`).WithArgs("op-x").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.Resolve(context.Background(), "op-x", func(*models.VideoHistoryItem, *models.User) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVideoRepositoryDeleteKeepsPendingItems(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVideoRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM video_history WHERE id = \? AND user_id = \? FOR UPDATE`).WithArgs("v1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "u1", "v1")
	assert.ErrorIs(t, err, ErrStillPending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVideoRepositoryDeleteResolvedItem(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVideoRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM video_history`).WithArgs("v1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("failed"))
	mock.ExpectExec(`DELETE FROM video_history WHERE id = \?`).WithArgs("v1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "u1", "v1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
