package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/digkill/genstudio/internal/models"
)

const planColumns = `id, credits, price, currency, created_at, updated_at`

type PlanRepository struct {
	db *sql.DB
}

func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func scanPlan(row rowScanner) (*models.Plan, error) {
	var plan models.Plan
	if err := row.Scan(&plan.ID, &plan.Credits, &plan.Price, &plan.Currency, &plan.CreatedAt, &plan.UpdatedAt); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepository) List(ctx context.Context) ([]models.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM pricing_plans ORDER BY price ASC, credits ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []models.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

func (r *PlanRepository) GetByID(ctx context.Context, id string) (*models.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM pricing_plans WHERE id = ?`
	plan, err := scanPlan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return plan, nil
}

func (r *PlanRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pricing_plans`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count plans: %w", err)
	}
	return n, nil
}

func (r *PlanRepository) Create(ctx context.Context, plan *models.Plan) error {
	const query = `
INSERT INTO pricing_plans (id, credits, price, currency, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now
	if _, err := r.db.ExecContext(ctx, query, plan.ID, plan.Credits, plan.Price, plan.Currency, plan.CreatedAt, plan.UpdatedAt); err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

// Update returns ErrNotFound when no plan has the given id.
func (r *PlanRepository) Update(ctx context.Context, plan *models.Plan) error {
	const query = `
UPDATE pricing_plans
SET credits = ?, price = ?, currency = ?, updated_at = ?
WHERE id = ?`
	plan.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, query, plan.Credits, plan.Price, plan.Currency, plan.UpdatedAt, plan.ID)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	return expectAffected(res)
}

func (r *PlanRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pricing_plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	return expectAffected(res)
}
