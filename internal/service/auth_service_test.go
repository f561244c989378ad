package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/genstudio/internal/models"
	"github.com/digkill/genstudio/pkg/logger"
)

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	user, err := env.auth.Signup(ctx, "Jane Doe", " Jane@Example.com ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, int64(25), user.Credits)
	assert.Equal(t, 1, user.RewardCycleDay)
	assert.Nil(t, user.LastRewardClaim)
	assert.NotEqual(t, "secret", user.PasswordHash)
	assert.Equal(t, models.ActivitySignup, env.lastActivity().Type)

	_, err = env.auth.Signup(ctx, "Jane Again", "JANE@example.com", "other")
	assert.ErrorIs(t, err, ErrDuplicateAccount)

	env.clock.Advance(time.Hour)
	logged, err := env.auth.Login(ctx, "JANE@EXAMPLE.COM", "secret")
	require.NoError(t, err)
	require.NotNil(t, logged.LastLogin)
	assert.True(t, env.clock.Now().Equal(*logged.LastLogin))
	assert.Equal(t, "User logged in successfully.", env.lastActivity().Details)

	_, err = env.auth.Login(ctx, "jane@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.auth.Login(ctx, "nobody@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignupValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	_, err := env.auth.Signup(ctx, "", "a@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.auth.Signup(ctx, "A", "not-an-email", "secret")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.auth.Signup(ctx, "A", "a@example.com", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCurrentUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.addUser("u1", 5)

	_, err := env.auth.CurrentUser(ctx, "")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = env.auth.CurrentUser(ctx, "vanished")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	user, err := env.auth.CurrentUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), user.Credits)
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: 4}
	hash, err := h.Hash("secret")
	require.NoError(t, err)
	assert.True(t, h.Verify("secret", hash))
	assert.False(t, h.Verify("Secret", hash))
}

func TestEnsureDefaultsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	seed := AdminSeed{Email: "Admin@Studio.example", Password: "root", FullName: "Admin User", Credits: 1_000_000_000}

	require.NoError(t, env.bootstrap.EnsureDefaults(ctx, seed))
	require.NoError(t, env.bootstrap.EnsureDefaults(ctx, seed))

	users, err := env.auth.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, users[0].IsAdmin)
	assert.Equal(t, "admin@studio.example", users[0].Email)

	plans, err := env.plans.List(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 3)

	promo, err := env.promos.Validate(ctx, "save10")
	require.NoError(t, err)
	assert.Equal(t, 10, promo.DiscountPercentage)

	rs, err := env.settings.RewardSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultRewardSettings(), rs)

	admin, err := env.auth.Login(ctx, "admin@studio.example", "root")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
}

func TestSettingsDefaultsAndUpdates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	flags, err := env.settings.FeatureFlags(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultFeatureFlags(), flags)

	ps, err := env.settings.UpdatePaymentSettings(ctx, "admin", models.PaymentSettings{UPIID: " studio@upi "})
	require.NoError(t, err)
	assert.Equal(t, "studio@upi", ps.UPIID)

	stored, err := env.settings.PaymentSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "studio@upi", stored.UPIID)
	assert.Empty(t, stored.JazzcashAccountNumber)
}

func TestDashboardStats(t *testing.T) {
	ctx := context.Background()
	env := seededPaymentEnv(t)
	env.addUser("u2", 40)

	_, err := env.payments.Create(ctx, "u1", validPayment())
	require.NoError(t, err)

	stats, err := env.dashboard.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(65), stats.TotalCreditsInCirculation)
	assert.Equal(t, int64(1), stats.PendingPaymentsCount)
	assert.Len(t, stats.RecentPendingPayments, 1)
	assert.LessOrEqual(t, len(stats.RecentActivity), 5)
	assert.Equal(t, models.ActivityPurchaseRequest, stats.RecentActivity[0].Type)
}

func TestActivityLogIsCapped(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	activity := NewActivityService(env.store.Activity(), env.clock, logger.Nop(), 3)

	for i := 0; i < 5; i++ {
		activity.Record(ctx, "u1", models.ActivityLogin, "User logged in successfully.")
	}
	items, err := activity.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}
