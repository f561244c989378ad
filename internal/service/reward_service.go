package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/digkill/genstudio/internal/clock"
	"github.com/digkill/genstudio/internal/metrics"
	"github.com/digkill/genstudio/internal/models"
)

type RewardService struct {
	users    UserStore
	settings *SettingsService
	activity *ActivityService
	clock    clock.Clock
	log      *slog.Logger
}

type ClaimResult struct {
	Granted int64        `json:"granted"`
	Day     int          `json:"day"`
	User    *models.User `json:"user"`
	Status  RewardStatus `json:"status"`
}

func NewRewardService(users UserStore, settings *SettingsService, activity *ActivityService, clk clock.Clock, log *slog.Logger) *RewardService {
	return &RewardService{users: users, settings: settings, activity: activity, clock: clk, log: log}
}

func (s *RewardService) GetStatus(ctx context.Context, userID string) (RewardStatus, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return RewardStatus{}, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return RewardStatus{}, ErrUserNotFound
	}
	rs, err := s.settings.RewardSettings(ctx)
	if err != nil {
		return RewardStatus{}, err
	}
	return ResolveRewardStatus(*user, rs, s.clock.Now()), nil
}

// ClaimReward grants today's reward. The status is recomputed under the user's
// row lock, so two concurrent claims cannot both pass the cooldown check.
func (s *RewardService) ClaimReward(ctx context.Context, userID string) (*ClaimResult, error) {
	flags, err := s.settings.FeatureFlags(ctx)
	if err != nil {
		return nil, err
	}
	if !flags.DailyRewardEnabled {
		return nil, ErrFeatureDisabled
	}
	rs, err := s.settings.RewardSettings(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var claimed RewardStatus
	user, err := s.users.Update(ctx, userID, func(u *models.User) error {
		claimed = ResolveRewardStatus(*u, rs, now)
		if !claimed.Claimable() {
			return ErrNoRewardAvailable
		}
		u.Credits += claimed.AvailableReward
		u.LastRewardClaim = &now
		u.RewardCycleDay = nextCycleDay(claimed.DayOfCycle, rs.CycleDays)
		return nil
	})
	if err != nil {
		return nil, mapUserErr(err, "claim reward")
	}

	metrics.RecordRewardClaim()
	metrics.RecordCredits("granted", claimed.AvailableReward)
	s.activity.Record(ctx, userID, models.ActivityRewardClaim,
		fmt.Sprintf("Claimed %d credits on day %d.", claimed.AvailableReward, claimed.DayOfCycle))

	return &ClaimResult{
		Granted: claimed.AvailableReward,
		Day:     claimed.DayOfCycle,
		User:    user,
		Status:  ResolveRewardStatus(*user, rs, now),
	}, nil
}
