package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/digkill/genstudio/internal/models"
)

type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Append inserts the entry and trims the log to the newest keep entries.
func (r *ActivityRepository) Append(ctx context.Context, item *models.ActivityLogItem, keep int) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		const insert = `INSERT INTO activity_log (id, user_id, type, details, created_at) VALUES (?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, insert, item.ID, item.UserID, item.Type, item.Details, item.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("insert activity: %w", err)
		}
		if keep <= 0 {
			return nil
		}
		// The derived table sidesteps MySQL's restriction on LIMIT inside IN subqueries.
		const prune = `
DELETE FROM activity_log
WHERE seq <= (
	SELECT seq FROM (SELECT seq FROM activity_log ORDER BY seq DESC LIMIT 1 OFFSET ?) AS cutoff
)`
		if _, err := tx.ExecContext(ctx, prune, keep); err != nil {
			return fmt.Errorf("prune activity log: %w", err)
		}
		return nil
	})
}

// List returns the newest entries first, at most limit of them.
func (r *ActivityRepository) List(ctx context.Context, limit int) ([]models.ActivityLogItem, error) {
	const query = `
SELECT id, user_id, type, details, created_at
FROM activity_log
ORDER BY seq DESC
LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var out []models.ActivityLogItem
	for rows.Next() {
		var item models.ActivityLogItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.Type, &item.Details, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
