package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/genstudio/internal/models"
)

func seededPaymentEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv()
	require.NoError(t, env.bootstrap.EnsureDefaults(context.Background(), AdminSeed{}))
	env.addAdmin("admin")
	env.addUser("u1", 25)
	return env
}

func validPayment() CreatePaymentInput {
	return CreatePaymentInput{
		PlanID:            "plan_1",
		PaymentMethod:     models.PaymentMethodUPI,
		UserAccountNumber: "user@upi",
		TransactionID:     "TX-42",
	}
}

func TestCreatePaymentAppliesPromo(t *testing.T) {
	ctx := context.Background()
	env := seededPaymentEnv(t)

	in := validPayment()
	in.PromoCode = "save10"
	req, err := env.payments.Create(ctx, "u1", in)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentPending, req.Status)
	assert.Equal(t, int64(199), req.PlanPrice)
	assert.Equal(t, int64(179), req.FinalPrice)
	assert.Equal(t, "SAVE10", req.PromoCode)
	assert.Equal(t, "u1@example.com", req.UserEmail)
	assert.Equal(t, int64(25), env.credits("u1"))
	assert.Equal(t, "Submitted request for 50 credits for INR 179.", env.lastActivity().Details)
	require.Len(t, env.notifier.sent, 1)
	assert.Equal(t, req.ID, env.notifier.sent[0].ID)
}

func TestCreatePaymentIgnoresInactivePromo(t *testing.T) {
	env := seededPaymentEnv(t)

	in := validPayment()
	in.PromoCode = "EXPIRED"
	req, err := env.payments.Create(context.Background(), "u1", in)
	require.NoError(t, err)
	assert.Equal(t, int64(199), req.FinalPrice)
	assert.Empty(t, req.PromoCode)
}

func TestCreatePaymentValidation(t *testing.T) {
	ctx := context.Background()
	env := seededPaymentEnv(t)

	in := validPayment()
	in.PlanID = "plan_9"
	_, err := env.payments.Create(ctx, "u1", in)
	assert.ErrorIs(t, err, ErrPlanNotFound)

	in = validPayment()
	in.PaymentMethod = "Cash"
	_, err = env.payments.Create(ctx, "u1", in)
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)

	in = validPayment()
	in.TransactionID = "  "
	_, err = env.payments.Create(ctx, "u1", in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	flags := DefaultFeatureFlags()
	flags.PurchaseSystemEnabled = false
	_, err = env.settings.UpdateFeatureFlags(ctx, "admin", flags)
	require.NoError(t, err)
	_, err = env.payments.Create(ctx, "u1", validPayment())
	assert.ErrorIs(t, err, ErrFeatureDisabled)
}

func TestApprovePaymentCreditsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	env := seededPaymentEnv(t)

	in := validPayment()
	in.PromoCode = "SAVE10"
	req, err := env.payments.Create(ctx, "u1", in)
	require.NoError(t, err)

	approved, err := env.payments.UpdateStatus(ctx, "admin", req.ID, models.PaymentApproved, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentApproved, approved.Status)
	assert.Equal(t, "admin", approved.ProcessedBy)
	require.NotNil(t, approved.ProcessedAt)
	assert.Equal(t, int64(75), env.credits("u1"))

	_, err = env.payments.UpdateStatus(ctx, "admin", req.ID, models.PaymentApproved, "")
	assert.ErrorIs(t, err, ErrRequestAlreadyProcessed)
	_, err = env.payments.UpdateStatus(ctx, "admin", req.ID, models.PaymentRejected, "late")
	assert.ErrorIs(t, err, ErrRequestAlreadyProcessed)
	assert.Equal(t, int64(75), env.credits("u1"))

	mine, err := env.payments.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.PaymentApproved, mine[0].Status)
}

func TestConcurrentApprovalsGrantOnce(t *testing.T) {
	ctx := context.Background()
	env := seededPaymentEnv(t)
	req, err := env.payments.Create(ctx, "u1", validPayment())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = env.payments.UpdateStatus(ctx, "admin", req.ID, models.PaymentApproved, "")
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(75), env.credits("u1"))
}

func TestRejectPayment(t *testing.T) {
	ctx := context.Background()
	env := seededPaymentEnv(t)
	req, err := env.payments.Create(ctx, "u1", validPayment())
	require.NoError(t, err)

	rejected, err := env.payments.UpdateStatus(ctx, "admin", req.ID, models.PaymentRejected, "  ")
	require.NoError(t, err)
	assert.Equal(t, "No reason provided.", rejected.RejectionReason)
	assert.Equal(t, int64(25), env.credits("u1"))
}

func TestUpdatePaymentStatusErrors(t *testing.T) {
	ctx := context.Background()
	env := seededPaymentEnv(t)

	_, err := env.payments.UpdateStatus(ctx, "admin", "missing", models.PaymentApproved, "")
	assert.ErrorIs(t, err, ErrRequestNotFound)

	req, err := env.payments.Create(ctx, "u1", validPayment())
	require.NoError(t, err)
	_, err = env.payments.UpdateStatus(ctx, "admin", req.ID, models.PaymentPending, "")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	env.store.DeleteUser("u1")
	_, err = env.payments.UpdateStatus(ctx, "admin", req.ID, models.PaymentApproved, "")
	assert.ErrorIs(t, err, ErrUserNotFound)

	stored, err := env.store.Payments().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, stored.Status)
}

func TestDiscountedPrice(t *testing.T) {
	assert.Equal(t, int64(179), DiscountedPrice(199, 10))
	assert.Equal(t, int64(399), DiscountedPrice(499, 20))
	assert.Equal(t, int64(150), DiscountedPrice(299, 50))
	assert.Equal(t, int64(0), DiscountedPrice(299, 100))
	assert.Equal(t, int64(299), DiscountedPrice(299, 0))
}

func TestPromoCRUD(t *testing.T) {
	ctx := context.Background()
	env := seededPaymentEnv(t)

	promo, err := env.promos.Create(ctx, "admin", CreatePromoInput{Code: " spring ", DiscountPercentage: 15})
	require.NoError(t, err)
	assert.Equal(t, "SPRING", promo.Code)
	assert.True(t, promo.IsActive)

	_, err = env.promos.Create(ctx, "admin", CreatePromoInput{Code: "Spring", DiscountPercentage: 5})
	assert.ErrorIs(t, err, ErrDuplicatePromo)
	_, err = env.promos.Create(ctx, "admin", CreatePromoInput{Code: "BIG", DiscountPercentage: 101})
	assert.ErrorIs(t, err, ErrInvalidInput)

	inactive := false
	_, err = env.promos.Update(ctx, "admin", promo.ID, UpdatePromoInput{IsActive: &inactive})
	require.NoError(t, err)
	_, err = env.promos.Validate(ctx, "spring")
	assert.ErrorIs(t, err, ErrPromoNotFound)

	require.NoError(t, env.promos.Delete(ctx, "admin", promo.ID))
	assert.ErrorIs(t, env.promos.Delete(ctx, "admin", promo.ID), ErrPromoNotFound)
}

func TestPlanCRUD(t *testing.T) {
	ctx := context.Background()
	env := seededPaymentEnv(t)

	plans, err := env.plans.List(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 3)
	assert.Equal(t, int64(199), plans[0].Price)

	plan, err := env.plans.Create(ctx, "admin", CreatePlanInput{Credits: 20, Price: 99})
	require.NoError(t, err)
	assert.Equal(t, "INR", plan.Currency)

	_, err = env.plans.Create(ctx, "admin", CreatePlanInput{Credits: 0, Price: 99})
	assert.ErrorIs(t, err, ErrInvalidInput)

	price := int64(149)
	updated, err := env.plans.Update(ctx, "admin", plan.ID, UpdatePlanInput{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, int64(149), updated.Price)
	assert.Equal(t, int64(20), updated.Credits)

	require.NoError(t, env.plans.Delete(ctx, "admin", plan.ID))
	_, err = env.plans.GetByID(ctx, plan.ID)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}
