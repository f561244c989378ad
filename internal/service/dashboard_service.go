package service

import (
	"context"
	"fmt"

	"github.com/digkill/genstudio/internal/models"
)

const dashboardRecentLimit = 5

type DashboardService struct {
	users    UserStore
	payments PaymentStore
	activity *ActivityService
}

func NewDashboardService(users UserStore, payments PaymentStore, activity *ActivityService) *DashboardService {
	return &DashboardService{users: users, payments: payments, activity: activity}
}

// Stats summarises the store for the admin overview. Admin accounts are left
// out of the user and credit totals.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	users, credits, err := s.users.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("user totals: %w", err)
	}
	pending, err := s.payments.CountByStatus(ctx, models.PaymentPending)
	if err != nil {
		return nil, fmt.Errorf("count pending payments: %w", err)
	}
	recent, err := s.activity.List(ctx, dashboardRecentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	pendingList, err := s.payments.List(ctx, models.PaymentPending, dashboardRecentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent pending payments: %w", err)
	}

	return &models.DashboardStats{
		TotalUsers:                users,
		PendingPaymentsCount:      pending,
		TotalCreditsInCirculation: credits,
		RecentActivity:            recent,
		RecentPendingPayments:     pendingList,
	}, nil
}
