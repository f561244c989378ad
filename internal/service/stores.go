package service

import (
	"context"

	"github.com/digkill/genstudio/internal/models"
)

// The stores below are satisfied by the MySQL repositories. Locked updates
// return repository.ErrNotFound when the row is missing; plain lookups return
// (nil, nil).

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id string, fn func(u *models.User) error) (*models.User, error)
	Totals(ctx context.Context) (int64, int64, error)
}

type PlanStore interface {
	List(ctx context.Context) ([]models.Plan, error)
	GetByID(ctx context.Context, id string) (*models.Plan, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, plan *models.Plan) error
	Update(ctx context.Context, plan *models.Plan) error
	Delete(ctx context.Context, id string) error
}

type PromoStore interface {
	GetByCode(ctx context.Context, code string) (*models.PromoCode, error)
	GetByID(ctx context.Context, id string) (*models.PromoCode, error)
	List(ctx context.Context) ([]models.PromoCode, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, promo *models.PromoCode) error
	Update(ctx context.Context, promo *models.PromoCode) error
	Delete(ctx context.Context, id string) error
}

type PaymentStore interface {
	Create(ctx context.Context, p *models.PaymentRequest) error
	GetByID(ctx context.Context, id string) (*models.PaymentRequest, error)
	ListByUser(ctx context.Context, userID string) ([]models.PaymentRequest, error)
	List(ctx context.Context, status models.PaymentStatus, limit int) ([]models.PaymentRequest, error)
	CountByStatus(ctx context.Context, status models.PaymentStatus) (int64, error)
	Resolve(ctx context.Context, id string, fn func(req *models.PaymentRequest, user *models.User) error) (*models.PaymentRequest, error)
}

type ImageStore interface {
	AddImage(ctx context.Context, item *models.ImageHistoryItem) error
	ListImages(ctx context.Context, userID string) ([]models.ImageHistoryItem, error)
	DeleteImage(ctx context.Context, userID, id string) error
}

type VideoStore interface {
	Add(ctx context.Context, item *models.VideoHistoryItem) error
	GetByOperation(ctx context.Context, operationID string) (*models.VideoHistoryItem, error)
	ListByUser(ctx context.Context, userID string) ([]models.VideoHistoryItem, error)
	ListPending(ctx context.Context, limit int) ([]models.VideoHistoryItem, error)
	Delete(ctx context.Context, userID, id string) error
	Resolve(ctx context.Context, operationID string, fn func(item *models.VideoHistoryItem, user *models.User) error) (*models.VideoHistoryItem, error)
}

type ChatStore interface {
	Append(ctx context.Context, msgs ...models.ChatMessage) error
	ListByUser(ctx context.Context, userID string) ([]models.ChatMessage, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error
	Clear(ctx context.Context, userID string) (int64, error)
}

type ActivityStore interface {
	Append(ctx context.Context, item *models.ActivityLogItem, keep int) error
	List(ctx context.Context, limit int) ([]models.ActivityLogItem, error)
}

type SettingsStore interface {
	Get(ctx context.Context, name string, dst any) (bool, error)
	Put(ctx context.Context, name string, value any) error
	PutIfAbsent(ctx context.Context, name string, value any) error
}
