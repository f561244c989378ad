package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/digkill/genstudio/internal/models"
)

type ChatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Append stores messages atomically, so a user message and its reply are never
// split.
func (r *ChatRepository) Append(ctx context.Context, msgs ...models.ChatMessage) error {
	const query = `
INSERT INTO chat_messages (id, user_id, session_id, sender, text, mode, sources, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, m := range msgs {
			var sources any
			if len(m.Sources) > 0 {
				raw, err := json.Marshal(m.Sources)
				if err != nil {
					return fmt.Errorf("encode chat sources: %w", err)
				}
				sources = raw
			}
			if _, err := tx.ExecContext(ctx, query, m.ID, m.UserID, m.SessionID, m.Sender, m.Text, nullString(m.Mode), sources, m.CreatedAt.UTC()); err != nil {
				return fmt.Errorf("insert chat message: %w", err)
			}
		}
		return nil
	})
}

// ListByUser returns a user's messages oldest first, the order a transcript reads.
func (r *ChatRepository) ListByUser(ctx context.Context, userID string) ([]models.ChatMessage, error) {
	const query = `
SELECT id, user_id, session_id, sender, text, mode, sources, created_at
FROM chat_messages
WHERE user_id = ?
ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		var mode sql.NullString
		var sources []byte
		if err := rows.Scan(&m.ID, &m.UserID, &m.SessionID, &m.Sender, &m.Text, &mode, &sources, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		m.Mode = mode.String
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &m.Sources); err != nil {
				return nil, fmt.Errorf("decode chat sources: %w", err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *ChatRepository) DeleteSession(ctx context.Context, userID, sessionID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE user_id = ? AND session_id = ?`, userID, sessionID)
	if err != nil {
		return fmt.Errorf("delete chat session: %w", err)
	}
	return expectAffected(res)
}

// Clear removes every message of the user and reports how many were deleted.
func (r *ChatRepository) Clear(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear chat history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
