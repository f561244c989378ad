package service

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound             = errors.New("user not found")
	ErrTargetIsAdmin            = errors.New("target user is an admin")
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrDuplicateAccount         = errors.New("an account with this email already exists")
	ErrInsufficientCredits      = errors.New("insufficient credits")
	ErrNegativeResultingBalance = errors.New("cannot reduce credits below zero")
	ErrNoRewardAvailable        = errors.New("no reward available to claim right now")
	ErrRequestAlreadyProcessed  = errors.New("request has already been processed")
	ErrRequestNotFound          = errors.New("payment request not found")
	ErrNotAuthenticated         = errors.New("not authenticated")

	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrFeatureDisabled       = errors.New("feature is disabled")
	ErrPlanNotFound          = errors.New("plan not found")
	ErrPromoNotFound         = errors.New("promo code not found")
	ErrDuplicatePromo        = errors.New("promo code already exists")
	ErrInvalidPaymentMethod  = errors.New("invalid payment method")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrInvalidRewardSettings = errors.New("invalid reward settings")
	ErrInvalidInput          = errors.New("invalid input")
	ErrHistoryNotFound       = errors.New("history item not found")
	ErrVideoPending          = errors.New("video is still being generated")
)

// GenerationError reports a failed call to the generation backend. The charged
// credits have already been refunded when it is returned.
type GenerationError struct {
	Action string
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Action, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
