package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/digkill/genstudio/internal/clock"
	"github.com/digkill/genstudio/internal/models"
)

type ActivityService struct {
	store ActivityStore
	clock clock.Clock
	log   *slog.Logger
	keep  int
}

func NewActivityService(store ActivityStore, clk clock.Clock, log *slog.Logger, keep int) *ActivityService {
	return &ActivityService{store: store, clock: clk, log: log, keep: keep}
}

// Record appends an audit entry. The operation it describes has already been
// committed, so a failed append is logged rather than returned.
func (s *ActivityService) Record(ctx context.Context, userID string, typ models.ActivityType, details string) {
	item := &models.ActivityLogItem{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Details:   details,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.Append(context.WithoutCancel(ctx), item, s.keep); err != nil {
		s.log.Error("failed to record activity", "type", typ, "user_id", userID, "err", err)
	}
}

// List returns the newest entries first. limit <= 0 returns the whole retained log.
func (s *ActivityService) List(ctx context.Context, limit int) ([]models.ActivityLogItem, error) {
	if limit <= 0 || limit > s.keep {
		limit = s.keep
	}
	return s.store.List(ctx, limit)
}
