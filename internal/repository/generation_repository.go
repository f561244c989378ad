package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/digkill/genstudio/internal/models"
)

// GenerationRepository keeps per-user image history.
type GenerationRepository struct {
	db *sql.DB
}

func NewGenerationRepository(db *sql.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

func (r *GenerationRepository) AddImage(ctx context.Context, item *models.ImageHistoryItem) error {
	urls, err := json.Marshal(item.ImageURLs)
	if err != nil {
		return fmt.Errorf("encode image urls: %w", err)
	}
	const query = `
INSERT INTO image_history (id, user_id, kind, prompt, aspect_ratio, image_urls, credits_charged, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, item.ID, item.UserID, item.Kind, item.Prompt, item.AspectRatio, urls, item.CreditsCharged, item.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("insert image history: %w", err)
	}
	return nil
}

func (r *GenerationRepository) ListImages(ctx context.Context, userID string) ([]models.ImageHistoryItem, error) {
	const query = `
SELECT id, user_id, kind, prompt, aspect_ratio, image_urls, credits_charged, created_at
FROM image_history
WHERE user_id = ?
ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list image history: %w", err)
	}
	defer rows.Close()

	var items []models.ImageHistoryItem
	for rows.Next() {
		var item models.ImageHistoryItem
		var urls []byte
		if err := rows.Scan(&item.ID, &item.UserID, &item.Kind, &item.Prompt, &item.AspectRatio, &urls, &item.CreditsCharged, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan image history: %w", err)
		}
		if err := json.Unmarshal(urls, &item.ImageURLs); err != nil {
			return nil, fmt.Errorf("decode image urls: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *GenerationRepository) DeleteImage(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM image_history WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete image history: %w", err)
	}
	return expectAffected(res)
}
