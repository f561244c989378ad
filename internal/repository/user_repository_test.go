package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/genstudio/internal/models"
)

var userRowColumns = []string{"id", "full_name", "email", "password_hash", "credits", "is_admin", "last_login", "last_reward_claim", "reward_cycle_day", "created_at", "updated_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func userRow(id string, credits int64) *sqlmock.Rows {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(userRowColumns).
		AddRow(id, "Jane Doe", "jane@example.com", "hash", credits, false, nil, nil, 1, now, now)
}

func TestUserRepositoryFindByEmailMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT .* FROM users WHERE email = \?`).
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	user, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Create(context.Background(), &models.User{ID: "u1", Email: "jane@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateWritesInsideLock(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \? FOR UPDATE`).
		WithArgs("u1").
		WillReturnRows(userRow("u1", 10))
	mock.ExpectExec(`UPDATE users`).
		WithArgs("Jane Doe", int64(15), false, nil, nil, 1, sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := repo.Update(context.Background(), "u1", func(u *models.User) error {
		u.Credits += 5
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(15), updated.Credits)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateRollsBackOnCallbackError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	errNope := errors.New("nope")

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("u1").WillReturnRows(userRow("u1", 3))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), "u1", func(u *models.User) error { return errNope })
	assert.ErrorIs(t, err, errNope)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateMissingUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("ghost").WillReturnRows(sqlmock.NewRows(userRowColumns))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), "ghost", func(u *models.User) error {
		t.Fatal("callback must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryTotals(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(SUM\(credits\), 0\) FROM users WHERE is_admin = 0`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(3, 120))

	count, credits, err := repo.Totals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, int64(120), credits)
}
