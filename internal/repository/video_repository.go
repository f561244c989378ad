package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/genstudio/internal/models"
)

const videoColumns = `id, user_id, prompt, operation_id, status, video_url, failure_reason, credits_charged, created_at, resolved_at`

type VideoRepository struct {
	db *sql.DB
}

func NewVideoRepository(db *sql.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

func scanVideo(row rowScanner) (*models.VideoHistoryItem, error) {
	var v models.VideoHistoryItem
	var videoURL, reason sql.NullString
	var resolvedAt sql.NullTime
	if err := row.Scan(&v.ID, &v.UserID, &v.Prompt, &v.OperationID, &v.Status, &videoURL, &reason, &v.CreditsCharged, &v.CreatedAt, &resolvedAt); err != nil {
		return nil, err
	}
	v.VideoURL = videoURL.String
	v.FailureReason = reason.String
	v.ResolvedAt = timePtr(resolvedAt)
	return &v, nil
}

func (r *VideoRepository) Add(ctx context.Context, item *models.VideoHistoryItem) error {
	const query = `
INSERT INTO video_history (id, user_id, prompt, operation_id, status, credits_charged, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, item.ID, item.UserID, item.Prompt, item.OperationID, item.Status, item.CreditsCharged, item.CreatedAt.UTC()); err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert video history: %w", err)
	}
	return nil
}

func (r *VideoRepository) GetByOperation(ctx context.Context, operationID string) (*models.VideoHistoryItem, error) {
	query := `SELECT ` + videoColumns + ` FROM video_history WHERE operation_id = ?`
	v, err := scanVideo(r.db.QueryRowContext(ctx, query, operationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get video by operation: %w", err)
	}
	return v, nil
}

func (r *VideoRepository) ListByUser(ctx context.Context, userID string) ([]models.VideoHistoryItem, error) {
	query := `SELECT ` + videoColumns + ` FROM video_history WHERE user_id = ? ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

// ListPending returns the oldest unresolved operations first.
func (r *VideoRepository) ListPending(ctx context.Context, limit int) ([]models.VideoHistoryItem, error) {
	query := `SELECT ` + videoColumns + ` FROM video_history WHERE status = ? ORDER BY created_at ASC LIMIT ?`
	return r.list(ctx, query, models.VideoPending, limit)
}

func (r *VideoRepository) list(ctx context.Context, query string, args ...any) ([]models.VideoHistoryItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list video history: %w", err)
	}
	defer rows.Close()

	var out []models.VideoHistoryItem
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video history: %w", err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// Delete removes a resolved history item. Pending items stay until the poller
// resolves them, since a failure still owes the user a refund.
func (r *VideoRepository) Delete(ctx context.Context, userID, id string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var status models.VideoStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM video_history WHERE id = ? AND user_id = ? FOR UPDATE`, id, userID).Scan(&status)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock video history: %w", err)
		}
		if status == models.VideoPending {
			return ErrStillPending
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM video_history WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete video history: %w", err)
		}
		return nil
	})
}

// Resolve locks the history item for operationID and then its owner, so a refund
// and the status change commit together. user is nil when the owner is gone.
func (r *VideoRepository) Resolve(ctx context.Context, operationID string, fn func(item *models.VideoHistoryItem, user *models.User) error) (*models.VideoHistoryItem, error) {
	var resolved *models.VideoHistoryItem
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `SELECT ` + videoColumns + ` FROM video_history WHERE operation_id = ? FOR UPDATE`
		item, err := scanVideo(tx.QueryRowContext(ctx, query, operationID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock video history: %w", err)
		}

		user, err := lockUser(ctx, tx, item.UserID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		var before int64
		if user != nil {
			before = user.Credits
		}

		if err := fn(item, user); err != nil {
			return err
		}

		if user != nil && user.Credits != before {
			if err := saveUser(ctx, tx, user); err != nil {
				return err
			}
		}

		const update = `
UPDATE video_history
SET status = ?, video_url = ?, failure_reason = ?, resolved_at = ?
WHERE id = ?`
		if _, err := tx.ExecContext(ctx, update, item.Status, nullString(item.VideoURL), nullString(item.FailureReason), nullTime(item.ResolvedAt), item.ID); err != nil {
			return fmt.Errorf("update video history: %w", err)
		}
		resolved = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}
