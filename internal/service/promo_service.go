package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/digkill/genstudio/internal/clock"
	"github.com/digkill/genstudio/internal/models"
	"github.com/digkill/genstudio/internal/repository"
)

type PromoService struct {
	promos   PromoStore
	activity *ActivityService
	clock    clock.Clock
}

type CreatePromoInput struct {
	Code               string
	DiscountPercentage int
	IsActive           *bool
}

type UpdatePromoInput struct {
	Code               *string
	DiscountPercentage *int
	IsActive           *bool
}

func NewPromoService(promos PromoStore, activity *ActivityService, clk clock.Clock) *PromoService {
	return &PromoService{promos: promos, activity: activity, clock: clk}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate returns the active promo matching code case-insensitively, or
// ErrPromoNotFound.
func (s *PromoService) Validate(ctx context.Context, code string) (*models.PromoCode, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, ErrPromoNotFound
	}
	promo, err := s.promos.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get promo: %w", err)
	}
	if promo == nil || !promo.IsActive {
		return nil, ErrPromoNotFound
	}
	return promo, nil
}

// EnsureDefaultPromos seeds the starter codes when none exist yet.
func (s *PromoService) EnsureDefaultPromos(ctx context.Context) error {
	count, err := s.promos.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	now := s.clock.Now()
	defaults := []models.PromoCode{
		{ID: "promo_1", Code: "SAVE10", DiscountPercentage: 10, IsActive: true, CreatedAt: now},
		{ID: "promo_2", Code: "EXPIRED", DiscountPercentage: 20, IsActive: false, CreatedAt: now},
	}
	for i := range defaults {
		if err := s.promos.Create(ctx, &defaults[i]); err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("create default promo: %w", err)
		}
	}
	return nil
}

func (s *PromoService) List(ctx context.Context) ([]models.PromoCode, error) {
	return s.promos.List(ctx)
}

func validDiscount(pct int) bool {
	return pct >= 0 && pct <= 100
}

func (s *PromoService) Create(ctx context.Context, adminID string, input CreatePromoInput) (*models.PromoCode, error) {
	code := normalizeCode(input.Code)
	if code == "" {
		return nil, invalidInput("code is required")
	}
	if !validDiscount(input.DiscountPercentage) {
		return nil, invalidInput("discount must be between 0 and 100 percent")
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	promo := &models.PromoCode{
		ID:                 uuid.NewString(),
		Code:               code,
		DiscountPercentage: input.DiscountPercentage,
		IsActive:           active,
		CreatedAt:          s.clock.Now(),
	}
	if err := s.promos.Create(ctx, promo); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicatePromo
		}
		return nil, err
	}
	s.activity.Record(ctx, adminID, models.ActivityAdminAction, fmt.Sprintf("Admin created promo code %s (%d%%).", promo.Code, promo.DiscountPercentage))
	return promo, nil
}

func (s *PromoService) Update(ctx context.Context, adminID, id string, input UpdatePromoInput) (*models.PromoCode, error) {
	promo, err := s.promos.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if promo == nil {
		return nil, ErrPromoNotFound
	}
	if input.Code != nil {
		code := normalizeCode(*input.Code)
		if code == "" {
			return nil, invalidInput("code is required")
		}
		promo.Code = code
	}
	if input.DiscountPercentage != nil {
		if !validDiscount(*input.DiscountPercentage) {
			return nil, invalidInput("discount must be between 0 and 100 percent")
		}
		promo.DiscountPercentage = *input.DiscountPercentage
	}
	if input.IsActive != nil {
		promo.IsActive = *input.IsActive
	}
	if err := s.promos.Update(ctx, promo); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrDuplicatePromo
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrPromoNotFound
		}
		return nil, err
	}
	s.activity.Record(ctx, adminID, models.ActivityAdminAction, fmt.Sprintf("Admin updated promo code %s.", promo.Code))
	return promo, nil
}

func (s *PromoService) Delete(ctx context.Context, adminID, id string) error {
	if err := s.promos.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPromoNotFound
		}
		return err
	}
	s.activity.Record(ctx, adminID, models.ActivityAdminAction, fmt.Sprintf("Admin deleted promo code %s.", id))
	return nil
}

// DiscountedPrice applies pct to price, rounding half away from zero.
func DiscountedPrice(price int64, pct int) int64 {
	discounted := float64(price) * (1 - float64(pct)/100)
	return int64(math.Round(discounted))
}
