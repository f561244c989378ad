package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/digkill/genstudio/internal/clock"
	"github.com/digkill/genstudio/internal/metrics"
	"github.com/digkill/genstudio/internal/models"
	"github.com/digkill/genstudio/internal/repository"
)

const defaultRejectionReason = "No reason provided."

// PaymentNotifier tells operators that a request is waiting for review.
type PaymentNotifier interface {
	NotifyPaymentRequest(ctx context.Context, req models.PaymentRequest) error
}

type PaymentService struct {
	payments PaymentStore
	users    UserStore
	plans    *PlanService
	promos   *PromoService
	settings *SettingsService
	activity *ActivityService
	notifier PaymentNotifier
	clock    clock.Clock
	log      *slog.Logger
}

type CreatePaymentInput struct {
	PlanID            string
	PaymentMethod     models.PaymentMethod
	UserAccountNumber string
	TransactionID     string
	PromoCode         string
}

// NewPaymentService wires the manual payment workflow. notifier may be nil.
func NewPaymentService(payments PaymentStore, users UserStore, plans *PlanService, promos *PromoService, settings *SettingsService,
	activity *ActivityService, notifier PaymentNotifier, clk clock.Clock, log *slog.Logger) *PaymentService {
	return &PaymentService{
		payments: payments,
		users:    users,
		plans:    plans,
		promos:   promos,
		settings: settings,
		activity: activity,
		notifier: notifier,
		clock:    clk,
		log:      log,
	}
}

// Create records a pending purchase. An unknown or inactive promo code is
// ignored and the plan price is charged. Credits are untouched until approval.
func (s *PaymentService) Create(ctx context.Context, userID string, input CreatePaymentInput) (*models.PaymentRequest, error) {
	flags, err := s.settings.FeatureFlags(ctx)
	if err != nil {
		return nil, err
	}
	if !flags.PurchaseSystemEnabled {
		return nil, ErrFeatureDisabled
	}
	if !input.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	account := strings.TrimSpace(input.UserAccountNumber)
	txID := strings.TrimSpace(input.TransactionID)
	if account == "" || txID == "" {
		return nil, invalidInput("account number and transaction id are required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	plan, err := s.plans.GetByID(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}

	finalPrice := plan.Price
	var appliedCode string
	if strings.TrimSpace(input.PromoCode) != "" {
		promo, err := s.promos.Validate(ctx, input.PromoCode)
		switch {
		case err == nil:
			finalPrice = DiscountedPrice(plan.Price, promo.DiscountPercentage)
			appliedCode = promo.Code
		case errors.Is(err, ErrPromoNotFound):
		default:
			return nil, err
		}
	}

	req := &models.PaymentRequest{
		ID:                uuid.NewString(),
		UserID:            user.ID,
		UserEmail:         user.Email,
		PlanID:            plan.ID,
		PlanCredits:       plan.Credits,
		PlanPrice:         plan.Price,
		PromoCode:         appliedCode,
		FinalPrice:        finalPrice,
		PaymentMethod:     input.PaymentMethod,
		UserAccountNumber: account,
		TransactionID:     txID,
		Status:            models.PaymentPending,
		CreatedAt:         s.clock.Now(),
	}
	if err := s.payments.Create(ctx, req); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, user.ID, models.ActivityPurchaseRequest,
		fmt.Sprintf("Submitted request for %d credits for %s %d.", plan.Credits, plan.Currency, finalPrice))

	if s.notifier != nil {
		if err := s.notifier.NotifyPaymentRequest(context.WithoutCancel(ctx), *req); err != nil {
			s.log.Warn("failed to notify operators about payment request", "request_id", req.ID, "err", err)
		}
	}
	return req, nil
}

// UpdateStatus moves a pending request to approved or rejected. Approval credits
// the owner in the same transaction that flips the status, so a request can
// grant credits at most once.
func (s *PaymentService) UpdateStatus(ctx context.Context, adminID, requestID string, status models.PaymentStatus, reason string) (*models.PaymentRequest, error) {
	if status != models.PaymentApproved && status != models.PaymentRejected {
		return nil, ErrInvalidStatus
	}

	now := s.clock.Now()
	var ownerEmail string
	req, err := s.payments.Resolve(ctx, requestID, func(req *models.PaymentRequest, user *models.User) error {
		if req.Status != models.PaymentPending {
			return ErrRequestAlreadyProcessed
		}
		req.Status = status
		req.ProcessedBy = adminID
		req.ProcessedAt = &now
		req.RejectionReason = ""

		switch status {
		case models.PaymentApproved:
			if user == nil {
				return ErrUserNotFound
			}
			user.Credits += req.PlanCredits
		case models.PaymentRejected:
			req.RejectionReason = strings.TrimSpace(reason)
			if req.RejectionReason == "" {
				req.RejectionReason = defaultRejectionReason
			}
		}
		ownerEmail = req.UserEmail
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrRequestNotFound
		case errors.Is(err, ErrRequestAlreadyProcessed), errors.Is(err, ErrUserNotFound):
			return nil, err
		}
		return nil, fmt.Errorf("resolve payment request: %w", err)
	}

	metrics.RecordPaymentResolution(string(status))
	details := fmt.Sprintf("Admin rejected payment request %s for %s: %s", req.ID, ownerEmail, req.RejectionReason)
	if status == models.PaymentApproved {
		metrics.RecordCredits("granted", req.PlanCredits)
		details = fmt.Sprintf("Admin approved payment request %s, adding %d credits for %s.", req.ID, req.PlanCredits, ownerEmail)
	}
	s.activity.Record(ctx, adminID, models.ActivityAdminAction, details)
	s.log.Info("payment request resolved", "request_id", req.ID, "status", status, "admin_id", adminID)
	return req, nil
}

// ListForUser returns the user's requests newest first.
func (s *PaymentService) ListForUser(ctx context.Context, userID string) ([]models.PaymentRequest, error) {
	return s.payments.ListByUser(ctx, userID)
}

// ListAll returns every request newest first, optionally filtered by status.
func (s *PaymentService) ListAll(ctx context.Context, status models.PaymentStatus) ([]models.PaymentRequest, error) {
	if status != "" && status != models.PaymentPending && status != models.PaymentApproved && status != models.PaymentRejected {
		return nil, ErrInvalidStatus
	}
	return s.payments.List(ctx, status, 0)
}
