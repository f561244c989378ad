package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/genstudio/internal/models"
)

func TestResolveRewardStatus(t *testing.T) {
	settings := DefaultRewardSettings()
	now := testEpoch
	at := func(d time.Duration) *time.Time {
		v := now.Add(-d)
		return &v
	}

	tests := []struct {
		name       string
		user       models.User
		wantReward int64
		wantDay    int
		wantNext   *time.Time
	}{
		{name: "never claimed", user: models.User{RewardCycleDay: 1}, wantReward: 5, wantDay: 1},
		{name: "cooldown", user: models.User{RewardCycleDay: 2, LastRewardClaim: at(time.Hour)}, wantDay: 2, wantNext: at(-23 * time.Hour)},
		{name: "exactly 24h", user: models.User{RewardCycleDay: 6, LastRewardClaim: at(24 * time.Hour)}, wantReward: 10, wantDay: 6},
		{name: "just under 48h keeps streak", user: models.User{RewardCycleDay: 7, LastRewardClaim: at(47 * time.Hour)}, wantReward: 15, wantDay: 7},
		{name: "48h resets", user: models.User{RewardCycleDay: 7, LastRewardClaim: at(48 * time.Hour)}, wantReward: 5, wantDay: 1},
		{name: "day beyond cycle", user: models.User{RewardCycleDay: 12}, wantReward: 5, wantDay: 1},
		{name: "day zero", user: models.User{RewardCycleDay: 0}, wantReward: 5, wantDay: 1},
		{name: "admin", user: models.User{RewardCycleDay: 3, IsAdmin: true}, wantDay: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveRewardStatus(tt.user, settings, now)
			assert.Equal(t, tt.wantReward, got.AvailableReward)
			assert.Equal(t, tt.wantDay, got.DayOfCycle)
			if tt.wantNext == nil {
				assert.Nil(t, got.NextClaimAvailableAt)
			} else {
				require.NotNil(t, got.NextClaimAvailableAt)
				assert.True(t, tt.wantNext.Equal(*got.NextClaimAvailableAt))
			}
		})
	}
}

func TestResolveRewardStatusMissingDayPaysZero(t *testing.T) {
	settings := models.RewardSettings{CycleDays: 3, Rewards: map[int]int64{1: 4}}
	got := ResolveRewardStatus(models.User{RewardCycleDay: 2}, settings, testEpoch)
	assert.Equal(t, int64(0), got.AvailableReward)
	assert.False(t, got.Claimable())
}

func TestClaimRewardWalksTheCycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.addUser("u1", 25)

	res, err := env.rewards.ClaimReward(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Granted)
	assert.Equal(t, 1, res.Day)
	assert.Equal(t, int64(30), env.credits("u1"))
	assert.Equal(t, 2, env.store.User("u1").RewardCycleDay)
	require.NotNil(t, res.Status.NextClaimAvailableAt)
	assert.True(t, testEpoch.Add(24*time.Hour).Equal(*res.Status.NextClaimAvailableAt))
	assert.Equal(t, "Claimed 5 credits on day 1.", env.lastActivity().Details)

	_, err = env.rewards.ClaimReward(ctx, "u1")
	assert.ErrorIs(t, err, ErrNoRewardAvailable)
	assert.Equal(t, int64(30), env.credits("u1"))

	env.clock.Advance(24 * time.Hour)
	status, err := env.rewards.GetStatus(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, status.DayOfCycle)
	assert.True(t, status.Claimable())

	res, err = env.rewards.ClaimReward(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Day)
	assert.Equal(t, int64(35), env.credits("u1"))
}

func TestClaimRewardWrapsAfterLastDay(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	u := env.addUser("u1", 0)
	u.RewardCycleDay = 7
	last := testEpoch.Add(-30 * time.Hour)
	u.LastRewardClaim = &last
	env.store.PutUser(u)

	res, err := env.rewards.ClaimReward(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(15), res.Granted)
	assert.Equal(t, 1, env.store.User("u1").RewardCycleDay)
}

func TestClaimRewardAfterGapRestartsCycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	u := env.addUser("u1", 0)
	u.RewardCycleDay = 5
	last := testEpoch.Add(-72 * time.Hour)
	u.LastRewardClaim = &last
	env.store.PutUser(u)

	res, err := env.rewards.ClaimReward(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Day)
	assert.Equal(t, 2, env.store.User("u1").RewardCycleDay)
}

func TestClaimRewardAdminGetsNothing(t *testing.T) {
	env := newTestEnv()
	env.addAdmin("admin")

	_, err := env.rewards.ClaimReward(context.Background(), "admin")
	assert.ErrorIs(t, err, ErrNoRewardAvailable)
}

func TestClaimRewardDisabled(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.addUser("u1", 0)
	flags := DefaultFeatureFlags()
	flags.DailyRewardEnabled = false
	_, err := env.settings.UpdateFeatureFlags(ctx, "admin", flags)
	require.NoError(t, err)

	_, err = env.rewards.ClaimReward(ctx, "u1")
	assert.ErrorIs(t, err, ErrFeatureDisabled)
	assert.Equal(t, int64(0), env.credits("u1"))
}

func TestShortenedCycleResolvesToDayOne(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	u := env.addUser("u1", 0)
	u.RewardCycleDay = 6
	env.store.PutUser(u)

	_, err := env.settings.UpdateRewardSettings(ctx, "admin", models.RewardSettings{
		CycleDays: 3,
		Rewards:   map[int]int64{1: 2, 2: 4, 3: 8, 6: 100},
	})
	require.NoError(t, err)

	rs, err := env.settings.RewardSettings(ctx)
	require.NoError(t, err)
	assert.NotContains(t, rs.Rewards, 6)

	res, err := env.rewards.ClaimReward(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Day)
	assert.Equal(t, int64(2), res.Granted)
}

func TestUpdateRewardSettingsValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	_, err := env.settings.UpdateRewardSettings(ctx, "admin", models.RewardSettings{CycleDays: 0})
	assert.ErrorIs(t, err, ErrInvalidRewardSettings)
	_, err = env.settings.UpdateRewardSettings(ctx, "admin", models.RewardSettings{CycleDays: 31})
	assert.ErrorIs(t, err, ErrInvalidRewardSettings)
	_, err = env.settings.UpdateRewardSettings(ctx, "admin", models.RewardSettings{CycleDays: 2, Rewards: map[int]int64{1: -1}})
	assert.ErrorIs(t, err, ErrInvalidRewardSettings)
}
