package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/genstudio/internal/models"
)

const paymentColumns = `id, user_id, user_email, plan_id, plan_credits, plan_price, promo_code, final_price, payment_method,
user_account_number, transaction_id, status, rejection_reason, processed_by, processed_at, created_at`

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func scanPayment(row rowScanner) (*models.PaymentRequest, error) {
	var p models.PaymentRequest
	var promo, reason, processedBy sql.NullString
	var processedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.UserID, &p.UserEmail, &p.PlanID, &p.PlanCredits, &p.PlanPrice, &promo, &p.FinalPrice, &p.PaymentMethod,
		&p.UserAccountNumber, &p.TransactionID, &p.Status, &reason, &processedBy, &processedAt, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.PromoCode = promo.String
	p.RejectionReason = reason.String
	p.ProcessedBy = processedBy.String
	p.ProcessedAt = timePtr(processedAt)
	return &p, nil
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.PaymentRequest) error {
	const query = `
INSERT INTO payment_requests (id, user_id, user_email, plan_id, plan_credits, plan_price, promo_code, final_price, payment_method,
	user_account_number, transaction_id, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, p.ID, p.UserID, p.UserEmail, p.PlanID, p.PlanCredits, p.PlanPrice, nullString(p.PromoCode),
		p.FinalPrice, p.PaymentMethod, p.UserAccountNumber, p.TransactionID, p.Status, p.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("insert payment request: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*models.PaymentRequest, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_requests WHERE id = ?`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment request: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]models.PaymentRequest, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_requests WHERE user_id = ? ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

// List returns requests newest first. An empty status matches all requests and a
// non-positive limit returns every row.
func (r *PaymentRepository) List(ctx context.Context, status models.PaymentStatus, limit int) ([]models.PaymentRequest, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_requests`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.list(ctx, query, args...)
}

func (r *PaymentRepository) CountByStatus(ctx context.Context, status models.PaymentStatus) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payment_requests WHERE status = ?`, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("count payment requests: %w", err)
	}
	return n, nil
}

func (r *PaymentRepository) list(ctx context.Context, query string, args ...any) ([]models.PaymentRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payment requests: %w", err)
	}
	defer rows.Close()

	var out []models.PaymentRequest
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment request: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Resolve locks the request and then its owner, hands both to fn and persists
// whatever fn changed. user is nil when the owner no longer exists. The user row
// is only written when fn changed its balance.
func (r *PaymentRepository) Resolve(ctx context.Context, id string, fn func(req *models.PaymentRequest, user *models.User) error) (*models.PaymentRequest, error) {
	var resolved *models.PaymentRequest
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `SELECT ` + paymentColumns + ` FROM payment_requests WHERE id = ? FOR UPDATE`
		req, err := scanPayment(tx.QueryRowContext(ctx, query, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock payment request: %w", err)
		}

		user, err := lockUser(ctx, tx, req.UserID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		var before int64
		if user != nil {
			before = user.Credits
		}

		if err := fn(req, user); err != nil {
			return err
		}

		if user != nil && user.Credits != before {
			if err := saveUser(ctx, tx, user); err != nil {
				return err
			}
		}

		const update = `
UPDATE payment_requests
SET status = ?, rejection_reason = ?, processed_by = ?, processed_at = ?
WHERE id = ?`
		if _, err := tx.ExecContext(ctx, update, req.Status, nullString(req.RejectionReason), nullString(req.ProcessedBy), nullTime(req.ProcessedAt), req.ID); err != nil {
			return fmt.Errorf("update payment request: %w", err)
		}
		resolved = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}
