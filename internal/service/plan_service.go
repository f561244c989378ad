package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/digkill/genstudio/internal/models"
	"github.com/digkill/genstudio/internal/repository"
)

type PlanService struct {
	repo            PlanStore
	activity        *ActivityService
	defaultCurrency string
}

type CreatePlanInput struct {
	Credits  int64
	Price    int64
	Currency string
}

type UpdatePlanInput struct {
	Credits  *int64
	Price    *int64
	Currency *string
}

func NewPlanService(repo PlanStore, activity *ActivityService, defaultCurrency string) *PlanService {
	return &PlanService{repo: repo, activity: activity, defaultCurrency: defaultCurrency}
}

// EnsureDefaultPlans seeds the starter catalog when no plan exists yet.
func (s *PlanService) EnsureDefaultPlans(ctx context.Context) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	defaults := []models.Plan{
		{ID: "plan_1", Credits: 50, Price: 199, Currency: s.defaultCurrency},
		{ID: "plan_2", Credits: 100, Price: 299, Currency: s.defaultCurrency},
		{ID: "plan_3", Credits: 200, Price: 499, Currency: s.defaultCurrency},
	}
	for i := range defaults {
		if err := s.repo.Create(ctx, &defaults[i]); err != nil {
			return fmt.Errorf("create default plan: %w", err)
		}
	}
	return nil
}

// List returns plans sorted by price.
func (s *PlanService) List(ctx context.Context) ([]models.Plan, error) {
	return s.repo.List(ctx)
}

func (s *PlanService) GetByID(ctx context.Context, id string) (*models.Plan, error) {
	plan, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

func (s *PlanService) Create(ctx context.Context, adminID string, input CreatePlanInput) (*models.Plan, error) {
	if input.Price <= 0 {
		return nil, invalidInput("price must be positive")
	}
	if input.Credits <= 0 {
		return nil, invalidInput("credits must be positive")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	plan := &models.Plan{
		ID:       uuid.NewString(),
		Credits:  input.Credits,
		Price:    input.Price,
		Currency: currency,
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, err
	}
	s.activity.Record(ctx, adminID, models.ActivityAdminAction, fmt.Sprintf("Admin created a plan of %d credits for %s %d.", plan.Credits, plan.Currency, plan.Price))
	return plan, nil
}

func (s *PlanService) Update(ctx context.Context, adminID, id string, input UpdatePlanInput) (*models.Plan, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Credits != nil {
		if *input.Credits <= 0 {
			return nil, invalidInput("credits must be positive")
		}
		existing.Credits = *input.Credits
	}
	if input.Price != nil {
		if *input.Price <= 0 {
			return nil, invalidInput("price must be positive")
		}
		existing.Price = *input.Price
	}
	if input.Currency != nil && strings.TrimSpace(*input.Currency) != "" {
		existing.Currency = strings.ToUpper(strings.TrimSpace(*input.Currency))
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	s.activity.Record(ctx, adminID, models.ActivityAdminAction, fmt.Sprintf("Admin updated plan %s.", existing.ID))
	return existing, nil
}

func (s *PlanService) Delete(ctx context.Context, adminID, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPlanNotFound
		}
		return err
	}
	s.activity.Record(ctx, adminID, models.ActivityAdminAction, fmt.Sprintf("Admin deleted plan %s.", id))
	return nil
}
