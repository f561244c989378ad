package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/genstudio/internal/models"
)

const promoColumns = `id, code, discount_percentage, is_active, created_at`

type PromoRepository struct {
	db *sql.DB
}

func NewPromoRepository(db *sql.DB) *PromoRepository {
	return &PromoRepository{db: db}
}

func scanPromo(row rowScanner) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := row.Scan(&promo.ID, &promo.Code, &promo.DiscountPercentage, &promo.IsActive, &promo.CreatedAt); err != nil {
		return nil, err
	}
	return &promo, nil
}

// GetByCode matches case-insensitively through the column collation.
func (r *PromoRepository) GetByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes WHERE code = ?`
	promo, err := scanPromo(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan promo: %w", err)
	}
	return promo, nil
}

func (r *PromoRepository) GetByID(ctx context.Context, id string) (*models.PromoCode, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes WHERE id = ?`
	promo, err := scanPromo(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get promo by id: %w", err)
	}
	return promo, nil
}

func (r *PromoRepository) List(ctx context.Context) ([]models.PromoCode, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list promos: %w", err)
	}
	defer rows.Close()

	var promos []models.PromoCode
	for rows.Next() {
		promo, err := scanPromo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promo list: %w", err)
		}
		promos = append(promos, *promo)
	}
	return promos, rows.Err()
}

func (r *PromoRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM promo_codes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count promos: %w", err)
	}
	return n, nil
}

func (r *PromoRepository) Create(ctx context.Context, promo *models.PromoCode) error {
	const query = `
INSERT INTO promo_codes (id, code, discount_percentage, is_active, created_at)
VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, promo.ID, promo.Code, promo.DiscountPercentage, promo.IsActive, promo.CreatedAt.UTC()); err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create promo: %w", err)
	}
	return nil
}

func (r *PromoRepository) Update(ctx context.Context, promo *models.PromoCode) error {
	const query = `UPDATE promo_codes SET code = ?, discount_percentage = ?, is_active = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, promo.Code, promo.DiscountPercentage, promo.IsActive, promo.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update promo: %w", err)
	}
	return expectAffected(res)
}

func (r *PromoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM promo_codes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete promo: %w", err)
	}
	return expectAffected(res)
}
