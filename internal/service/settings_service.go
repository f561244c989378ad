package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/digkill/genstudio/internal/models"
)

const (
	settingRewards  = "reward_settings"
	settingFlags    = "feature_flags"
	settingPayments = "payment_settings"

	maxCycleDays = 30
)

func DefaultRewardSettings() models.RewardSettings {
	return models.RewardSettings{
		CycleDays: 7,
		Rewards:   map[int]int64{1: 5, 2: 5, 3: 5, 4: 5, 5: 5, 6: 10, 7: 15},
	}
}

func DefaultFeatureFlags() models.FeatureFlags {
	return models.FeatureFlags{
		ImageStudioEnabled:    true,
		VideoGeneratorEnabled: true,
		DailyRewardEnabled:    true,
		ChatBotEnabled:        true,
		PurchaseSystemEnabled: true,
	}
}

func DefaultPaymentSettings() models.PaymentSettings {
	return models.PaymentSettings{
		EasypaisaAccountNumber: "03001234567",
		JazzcashAccountNumber:  "03007654321",
		UPIID:                  "aistudio@upi",
	}
}

// SettingsService serves the process-wide documents an operator can tune.
// A document that was never stored reads as its default.
type SettingsService struct {
	store    SettingsStore
	activity *ActivityService
}

func NewSettingsService(store SettingsStore, activity *ActivityService) *SettingsService {
	return &SettingsService{store: store, activity: activity}
}

func (s *SettingsService) RewardSettings(ctx context.Context) (models.RewardSettings, error) {
	// Decoded into a zero value: unmarshalling into the default map would merge days.
	var rs models.RewardSettings
	ok, err := s.store.Get(ctx, settingRewards, &rs)
	if err != nil {
		return models.RewardSettings{}, err
	}
	if !ok {
		return DefaultRewardSettings(), nil
	}
	return rs, nil
}

// UpdateRewardSettings validates and stores the cycle. Rewards for days past the
// new cycle length are dropped.
func (s *SettingsService) UpdateRewardSettings(ctx context.Context, adminID string, rs models.RewardSettings) (models.RewardSettings, error) {
	rs, err := normalizeRewardSettings(rs)
	if err != nil {
		return models.RewardSettings{}, err
	}
	if err := s.store.Put(ctx, settingRewards, rs); err != nil {
		return models.RewardSettings{}, err
	}
	s.activity.Record(ctx, adminID, models.ActivityAdminAction, fmt.Sprintf("Admin updated reward settings to a %d-day cycle.", rs.CycleDays))
	return rs, nil
}

func (s *SettingsService) FeatureFlags(ctx context.Context) (models.FeatureFlags, error) {
	flags := DefaultFeatureFlags()
	if _, err := s.store.Get(ctx, settingFlags, &flags); err != nil {
		return models.FeatureFlags{}, err
	}
	return flags, nil
}

func (s *SettingsService) UpdateFeatureFlags(ctx context.Context, adminID string, flags models.FeatureFlags) (models.FeatureFlags, error) {
	if err := s.store.Put(ctx, settingFlags, flags); err != nil {
		return models.FeatureFlags{}, err
	}
	s.activity.Record(ctx, adminID, models.ActivityAdminAction, "Admin updated feature flags.")
	return flags, nil
}

func (s *SettingsService) PaymentSettings(ctx context.Context) (models.PaymentSettings, error) {
	ps := DefaultPaymentSettings()
	if _, err := s.store.Get(ctx, settingPayments, &ps); err != nil {
		return models.PaymentSettings{}, err
	}
	return ps, nil
}

func (s *SettingsService) UpdatePaymentSettings(ctx context.Context, adminID string, ps models.PaymentSettings) (models.PaymentSettings, error) {
	ps.EasypaisaAccountNumber = strings.TrimSpace(ps.EasypaisaAccountNumber)
	ps.JazzcashAccountNumber = strings.TrimSpace(ps.JazzcashAccountNumber)
	ps.UPIID = strings.TrimSpace(ps.UPIID)
	if err := s.store.Put(ctx, settingPayments, ps); err != nil {
		return models.PaymentSettings{}, err
	}
	s.activity.Record(ctx, adminID, models.ActivityAdminAction, "Admin updated payment settings.")
	return ps, nil
}

func normalizeRewardSettings(rs models.RewardSettings) (models.RewardSettings, error) {
	if rs.CycleDays < 1 || rs.CycleDays > maxCycleDays {
		return models.RewardSettings{}, fmt.Errorf("%w: cycle days must be between 1 and %d", ErrInvalidRewardSettings, maxCycleDays)
	}
	pruned := make(map[int]int64, rs.CycleDays)
	for day, amount := range rs.Rewards {
		if amount < 0 {
			return models.RewardSettings{}, fmt.Errorf("%w: reward for day %d is negative", ErrInvalidRewardSettings, day)
		}
		if day >= 1 && day <= rs.CycleDays {
			pruned[day] = amount
		}
	}
	rs.Rewards = pruned
	return rs, nil
}

// Restore overwrites all three settings documents without recording activity.
// It is used when importing a legacy export.
func (s *SettingsService) Restore(ctx context.Context, rs models.RewardSettings, flags models.FeatureFlags, ps models.PaymentSettings) error {
	rs, err := normalizeRewardSettings(rs)
	if err != nil {
		return err
	}
	values := []struct {
		name  string
		value any
	}{
		{settingRewards, rs},
		{settingFlags, flags},
		{settingPayments, ps},
	}
	for _, v := range values {
		if err := s.store.Put(ctx, v.name, v.value); err != nil {
			return fmt.Errorf("store %s: %w", v.name, err)
		}
	}
	return nil
}

// seed stores every default that is not present yet.
func (s *SettingsService) seed(ctx context.Context) error {
	defaults := map[string]any{
		settingRewards:  DefaultRewardSettings(),
		settingFlags:    DefaultFeatureFlags(),
		settingPayments: DefaultPaymentSettings(),
	}
	for name, value := range defaults {
		if err := s.store.PutIfAbsent(ctx, name, value); err != nil {
			return err
		}
	}
	return nil
}
