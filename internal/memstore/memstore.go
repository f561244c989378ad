// Package memstore holds in-memory implementations of the service store
// interfaces for tests.
package memstore

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/digkill/genstudio/internal/models"
	"github.com/digkill/genstudio/internal/repository"
)

// Store keeps every table in memory behind one mutex, which stands in for the
// row locks of the MySQL repositories. The typed views returned by its methods
// satisfy the service store interfaces.
type Store struct {
	mu       sync.Mutex
	users    map[string]models.User
	plans    map[string]models.Plan
	promos   map[string]models.PromoCode
	payments map[string]models.PaymentRequest
	images   []models.ImageHistoryItem
	videos   []models.VideoHistoryItem
	chats    []models.ChatMessage
	activity []models.ActivityLogItem
	settings map[string][]byte
}

func New() *Store {
	return &Store{
		users:    map[string]models.User{},
		plans:    map[string]models.Plan{},
		promos:   map[string]models.PromoCode{},
		payments: map[string]models.PaymentRequest{},
		settings: map[string][]byte{},
	}
}

func (m *Store) Users() Users { return Users{m} }
func (m *Store) Plans() Plans { return Plans{m} }
func (m *Store) Promos() Promos { return Promos{m} }
func (m *Store) Payments() Payments { return Payments{m} }
func (m *Store) Images() Images { return Images{m} }
func (m *Store) Videos() Videos { return Videos{m} }
func (m *Store) Chats() Chats { return Chats{m} }
func (m *Store) Activity() Activity { return Activity{m} }
func (m *Store) Settings() Settings { return Settings{m} }

// PutUser stores u, replacing any user with the same id.
func (m *Store) PutUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// User returns the stored user or the zero value.
func (m *Store) User(id string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

func (m *Store) DeleteUser(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

// ActivityLog returns the retained log, newest first.
func (m *Store) ActivityLog() []models.ActivityLogItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ActivityLogItem(nil), m.activity...)
}

type Users struct{ *Store }

func (s Users) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (s Users) GetByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s Users) List(context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s Users) Update(_ context.Context, id string, fn func(u *models.User) error) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := fn(&u); err != nil {
		return nil, err
	}
	s.users[id] = u
	return &u, nil
}

func (s Users) Totals(context.Context) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count, credits int64
	for _, u := range s.users {
		if u.IsAdmin {
			continue
		}
		count++
		credits += u.Credits
	}
	return count, credits, nil
}

type Plans struct{ *Store }

func (s Plans) List(context.Context) ([]models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Plan, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

func (s Plans) GetByID(_ context.Context, id string) (*models.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s Plans) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.plans)), nil
}

func (s Plans) Create(_ context.Context, p *models.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = *p
	return nil
}

func (s Plans) Update(_ context.Context, p *models.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[p.ID]; !ok {
		return repository.ErrNotFound
	}
	s.plans[p.ID] = *p
	return nil
}

func (s Plans) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.plans, id)
	return nil
}

type Promos struct{ *Store }

func (s Promos) GetByCode(_ context.Context, code string) (*models.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.promos {
		if strings.EqualFold(p.Code, code) {
			return &p, nil
		}
	}
	return nil, nil
}

func (s Promos) GetByID(_ context.Context, id string) (*models.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.promos[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s Promos) List(context.Context) ([]models.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PromoCode, 0, len(s.promos))
	for _, p := range s.promos {
		out = append(out, p)
	}
	return out, nil
}

func (s Promos) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.promos)), nil
}

func (s Promos) Create(_ context.Context, p *models.PromoCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.promos {
		if strings.EqualFold(existing.Code, p.Code) {
			return repository.ErrDuplicate
		}
	}
	s.promos[p.ID] = *p
	return nil
}

func (s Promos) Update(_ context.Context, p *models.PromoCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.promos[p.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, existing := range s.promos {
		if id != p.ID && strings.EqualFold(existing.Code, p.Code) {
			return repository.ErrDuplicate
		}
	}
	s.promos[p.ID] = *p
	return nil
}

func (s Promos) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.promos[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.promos, id)
	return nil
}

type Payments struct{ *Store }

func (s Payments) Create(_ context.Context, p *models.PaymentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = *p
	return nil
}

func (s Payments) GetByID(_ context.Context, id string) (*models.PaymentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s Payments) sorted(keep func(models.PaymentRequest) bool) []models.PaymentRequest {
	var out []models.PaymentRequest
	for _, p := range s.payments {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s Payments) ListByUser(_ context.Context, userID string) ([]models.PaymentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(p models.PaymentRequest) bool { return p.UserID == userID }), nil
}

func (s Payments) List(_ context.Context, status models.PaymentStatus, limit int) ([]models.PaymentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sorted(func(p models.PaymentRequest) bool { return status == "" || p.Status == status })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s Payments) CountByStatus(_ context.Context, status models.PaymentStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, p := range s.payments {
		if p.Status == status {
			n++
		}
	}
	return n, nil
}

func (s Payments) Resolve(_ context.Context, id string, fn func(req *models.PaymentRequest, user *models.User) error) (*models.PaymentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	var user *models.User
	if u, ok := s.users[req.UserID]; ok {
		user = &u
	}
	if err := fn(&req, user); err != nil {
		return nil, err
	}
	if user != nil {
		s.users[user.ID] = *user
	}
	s.payments[id] = req
	return &req, nil
}

type Images struct{ *Store }

func (s Images) AddImage(_ context.Context, item *models.ImageHistoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, *item)
	return nil
}

func (s Images) ListImages(_ context.Context, userID string) ([]models.ImageHistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ImageHistoryItem
	for _, it := range s.images {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s Images) DeleteImage(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.images {
		if it.ID == id && it.UserID == userID {
			s.images = append(s.images[:i], s.images[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type Videos struct{ *Store }

func (s Videos) Add(_ context.Context, item *models.VideoHistoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.videos {
		if v.OperationID == item.OperationID {
			return repository.ErrDuplicate
		}
	}
	s.videos = append(s.videos, *item)
	return nil
}

func (s Videos) GetByOperation(_ context.Context, operationID string) (*models.VideoHistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.videos {
		if v.OperationID == operationID {
			return &v, nil
		}
	}
	return nil, nil
}

func (s Videos) ListByUser(_ context.Context, userID string) ([]models.VideoHistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.VideoHistoryItem
	for _, v := range s.videos {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s Videos) ListPending(_ context.Context, limit int) ([]models.VideoHistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.VideoHistoryItem
	for _, v := range s.videos {
		if v.Status == models.VideoPending && len(out) < limit {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s Videos) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.videos {
		if v.ID == id && v.UserID == userID {
			if v.Status == models.VideoPending {
				return repository.ErrStillPending
			}
			s.videos = append(s.videos[:i], s.videos[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s Videos) Resolve(_ context.Context, operationID string, fn func(item *models.VideoHistoryItem, user *models.User) error) (*models.VideoHistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.videos {
		if v.OperationID != operationID {
			continue
		}
		var user *models.User
		if u, ok := s.users[v.UserID]; ok {
			user = &u
		}
		if err := fn(&v, user); err != nil {
			return nil, err
		}
		if user != nil {
			s.users[user.ID] = *user
		}
		s.videos[i] = v
		return &v, nil
	}
	return nil, repository.ErrNotFound
}

type Chats struct{ *Store }

func (s Chats) Append(_ context.Context, msgs ...models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = append(s.chats, msgs...)
	return nil
}

func (s Chats) ListByUser(_ context.Context, userID string) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ChatMessage
	for _, m := range s.chats {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s Chats) DeleteSession(_ context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.chats[:0]
	removed := 0
	for _, m := range s.chats {
		if m.UserID == userID && m.SessionID == sessionID {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	s.chats = kept
	if removed == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s Chats) Clear(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.chats[:0]
	var removed int64
	for _, m := range s.chats {
		if m.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	s.chats = kept
	return removed, nil
}

type Activity struct{ *Store }

func (s Activity) Append(_ context.Context, item *models.ActivityLogItem, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append([]models.ActivityLogItem{*item}, s.activity...)
	if len(s.activity) > keep {
		s.activity = s.activity[:keep]
	}
	return nil
}

func (s Activity) List(_ context.Context, limit int) ([]models.ActivityLogItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.activity) {
		limit = len(s.activity)
	}
	return append([]models.ActivityLogItem(nil), s.activity[:limit]...), nil
}

type Settings struct{ *Store }

func (s Settings) Get(_ context.Context, name string, dst any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.settings[name]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (s Settings) Put(_ context.Context, name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[name] = raw
	return nil
}

func (s Settings) PutIfAbsent(ctx context.Context, name string, value any) error {
	s.mu.Lock()
	_, ok := s.settings[name]
	s.mu.Unlock()
	if ok {
		return nil
	}
	return s.Put(ctx, name, value)
}
