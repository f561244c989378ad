package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/digkill/genstudio/internal/clock"
	"github.com/digkill/genstudio/internal/models"
	"github.com/digkill/genstudio/internal/repository"
)

type AdminSeed struct {
	Email    string
	Password string
	FullName string
	Credits  int64
}

// Bootstrap seeds a fresh database. Every step skips data that already exists,
// so it runs on each start.
type Bootstrap struct {
	Users    UserStore
	Hasher   PasswordHasher
	Plans    *PlanService
	Promos   *PromoService
	Settings *SettingsService
	Clock    clock.Clock
	Log      *slog.Logger
}

func (b *Bootstrap) EnsureDefaults(ctx context.Context, admin AdminSeed) error {
	if err := b.Settings.seed(ctx); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	if err := b.Plans.EnsureDefaultPlans(ctx); err != nil {
		return fmt.Errorf("seed plans: %w", err)
	}
	if err := b.Promos.EnsureDefaultPromos(ctx); err != nil {
		return fmt.Errorf("seed promo codes: %w", err)
	}
	if admin.Email != "" {
		if err := b.ensureAdmin(ctx, admin); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}
	return nil
}

func (b *Bootstrap) ensureAdmin(ctx context.Context, admin AdminSeed) error {
	email := normalizeEmail(admin.Email)
	existing, err := b.Users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := b.Hasher.Hash(admin.Password)
	if err != nil {
		return err
	}
	now := b.Clock.Now()
	user := &models.User{
		ID:             uuid.NewString(),
		FullName:       strings.TrimSpace(admin.FullName),
		Email:          email,
		PasswordHash:   hash,
		Credits:        admin.Credits,
		IsAdmin:        true,
		RewardCycleDay: 1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := b.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return err
	}
	b.Log.Info("admin account created", "email", email)
	return nil
}
