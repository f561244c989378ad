package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SettingsRepository stores singleton configuration documents as JSON keyed by name.
type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get decodes the named document into dst and reports whether it exists.
func (r *SettingsRepository) Get(ctx context.Context, name string, dst any) (bool, error) {
	var raw []byte
	if err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE name = ?`, name).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get setting %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode setting %s: %w", name, err)
	}
	return true, nil
}

func (r *SettingsRepository) Put(ctx context.Context, name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", name, err)
	}
	const query = `INSERT INTO settings (name, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)`
	if _, err := r.db.ExecContext(ctx, query, name, raw); err != nil {
		return fmt.Errorf("put setting %s: %w", name, err)
	}
	return nil
}

// PutIfAbsent writes value only when name has never been stored.
func (r *SettingsRepository) PutIfAbsent(ctx context.Context, name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", name, err)
	}
	if _, err := r.db.ExecContext(ctx, `INSERT IGNORE INTO settings (name, value) VALUES (?, ?)`, name, raw); err != nil {
		return fmt.Errorf("seed setting %s: %w", name, err)
	}
	return nil
}
