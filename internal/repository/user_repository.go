package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/digkill/genstudio/internal/models"
)

const userColumns = `id, full_name, email, password_hash, credits, is_admin, last_login, last_reward_claim, reward_cycle_day, created_at, updated_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var lastLogin, lastClaim sql.NullTime
	if err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Credits, &u.IsAdmin, &lastLogin, &lastClaim, &u.RewardCycleDay, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.LastLogin = timePtr(lastLogin)
	u.LastRewardClaim = timePtr(lastClaim)
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	const query = `
INSERT INTO users (id, full_name, email, password_hash, credits, is_admin, last_login, last_reward_claim, reward_cycle_day, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.FullName, user.Email, user.PasswordHash, user.Credits, user.IsAdmin,
		nullTime(user.LastLogin), nullTime(user.LastRewardClaim), user.RewardCycleDay, user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByEmail matches case-insensitively through the column collation.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user list: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Update locks the user row, lets fn mutate the loaded record and writes it back
// in the same transaction. When fn fails nothing is written.
func (r *UserRepository) Update(ctx context.Context, id string, fn func(u *models.User) error) (*models.User, error) {
	var updated *models.User
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		u, err := lockUser(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(u); err != nil {
			return err
		}
		if err := saveUser(ctx, tx, u); err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Totals reports the number of non-admin users and the credits they hold.
func (r *UserRepository) Totals(ctx context.Context) (int64, int64, error) {
	const query = `SELECT COUNT(*), COALESCE(SUM(credits), 0) FROM users WHERE is_admin = 0`
	var count, credits int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&count, &credits); err != nil {
		return 0, 0, fmt.Errorf("user totals: %w", err)
	}
	return count, credits, nil
}

func lockUser(ctx context.Context, tx *sql.Tx, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ? FOR UPDATE`
	u, err := scanUser(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock user: %w", err)
	}
	return u, nil
}

func saveUser(ctx context.Context, tx *sql.Tx, u *models.User) error {
	const query = `
UPDATE users
SET full_name = ?, credits = ?, is_admin = ?, last_login = ?, last_reward_claim = ?, reward_cycle_day = ?, updated_at = ?
WHERE id = ?`
	u.UpdatedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx, query, u.FullName, u.Credits, u.IsAdmin, nullTime(u.LastLogin), nullTime(u.LastRewardClaim), u.RewardCycleDay, u.UpdatedAt, u.ID); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}
