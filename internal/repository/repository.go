package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned by locked updates when the target row does not exist.
// Plain lookups return (nil, nil) instead.
var ErrNotFound = errors.New("record not found")

// ErrStillPending is returned when deleting a row whose outcome is not known yet.
var ErrStillPending = errors.New("record is still pending")

// ErrDuplicate is returned when an insert or update violates a unique key.
var ErrDuplicate = errors.New("duplicate record")

const mysqlDuplicateEntry = 1062

type rowScanner interface {
	Scan(dest ...any) error
}

// withTx runs fn inside a transaction, committing only when fn succeeds.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// expectAffected maps a write that matched no rows to ErrNotFound. Connect sets
// ClientFoundRows so an UPDATE that changes nothing still counts its match.
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
