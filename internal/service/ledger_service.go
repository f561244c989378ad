package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/digkill/genstudio/internal/metrics"
	"github.com/digkill/genstudio/internal/models"
	"github.com/digkill/genstudio/internal/repository"
)

// LedgerService owns every change to a user's credit balance. Each call is a
// single locked read-modify-write; a failed check leaves the row untouched.
type LedgerService struct {
	users    UserStore
	activity *ActivityService
	log      *slog.Logger
}

func NewLedgerService(users UserStore, activity *ActivityService, log *slog.Logger) *LedgerService {
	return &LedgerService{users: users, activity: activity, log: log}
}

func (s *LedgerService) Balance(ctx context.Context, userID string) (int64, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return 0, ErrUserNotFound
	}
	return user.Credits, nil
}

func (s *LedgerService) Deduct(ctx context.Context, userID string, amount int64) (*models.User, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	user, err := s.users.Update(ctx, userID, func(u *models.User) error {
		if u.Credits < amount {
			return ErrInsufficientCredits
		}
		u.Credits -= amount
		return nil
	})
	if err != nil {
		return nil, mapUserErr(err, "deduct credits")
	}
	metrics.RecordCredits("deducted", amount)
	return user, nil
}

// Add grants credits with no upper bound.
func (s *LedgerService) Add(ctx context.Context, userID string, amount int64) (*models.User, error) {
	user, err := s.add(ctx, userID, amount)
	if err != nil {
		return nil, err
	}
	metrics.RecordCredits("granted", amount)
	return user, nil
}

// Refund returns credits taken by Deduct. It performs no deduplication; callers
// refund at most once per failed action.
func (s *LedgerService) Refund(ctx context.Context, userID string, amount int64) (*models.User, error) {
	user, err := s.add(ctx, userID, amount)
	if err != nil {
		return nil, err
	}
	metrics.RecordCredits("refunded", amount)
	return user, nil
}

func (s *LedgerService) add(ctx context.Context, userID string, amount int64) (*models.User, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	user, err := s.users.Update(ctx, userID, func(u *models.User) error {
		u.Credits += amount
		return nil
	})
	if err != nil {
		return nil, mapUserErr(err, "add credits")
	}
	return user, nil
}

// AdminAdjust applies an operator correction to a non-admin balance.
func (s *LedgerService) AdminAdjust(ctx context.Context, adminID, targetUserID string, delta int64) (*models.User, error) {
	if delta == 0 {
		target, err := s.users.GetByID(ctx, targetUserID)
		if err != nil {
			return nil, fmt.Errorf("get user: %w", err)
		}
		if target == nil {
			return nil, ErrUserNotFound
		}
		if target.IsAdmin {
			return nil, ErrTargetIsAdmin
		}
		return target, nil
	}

	var before int64
	target, err := s.users.Update(ctx, targetUserID, func(u *models.User) error {
		if u.IsAdmin {
			return ErrTargetIsAdmin
		}
		if u.Credits+delta < 0 {
			return ErrNegativeResultingBalance
		}
		before = u.Credits
		u.Credits += delta
		return nil
	})
	if err != nil {
		return nil, mapUserErr(err, "adjust credits")
	}

	action := "added"
	amount := delta
	if delta < 0 {
		action = "removed"
		amount = -delta
	}
	metrics.RecordCredits("adjusted", delta)
	s.activity.Record(ctx, adminID, models.ActivityAdminAction,
		fmt.Sprintf("Admin %s %d credits for %s. Balance changed from %d to %d.", action, amount, target.Email, before, target.Credits))
	s.log.Info("credits adjusted", "admin_id", adminID, "user_id", target.ID, "delta", delta, "balance", target.Credits)
	return target, nil
}

// mapUserErr turns a missing row into ErrUserNotFound and passes service
// sentinels through unchanged.
func mapUserErr(err error, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if isServiceErr(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isServiceErr(err error) bool {
	for _, target := range []error{
		ErrInsufficientCredits, ErrNegativeResultingBalance, ErrTargetIsAdmin, ErrNoRewardAvailable,
		ErrRequestAlreadyProcessed, ErrUserNotFound, ErrInvalidStatus, ErrFeatureDisabled,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
