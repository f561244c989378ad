package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/digkill/genstudio/internal/clock"
	"github.com/digkill/genstudio/internal/models"
	"github.com/digkill/genstudio/internal/repository"
)

// PasswordHasher turns a password into a stored one-way hash and checks a
// candidate password against it.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (h BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type AuthService struct {
	users           UserStore
	hasher          PasswordHasher
	activity        *ActivityService
	clock           clock.Clock
	log             *slog.Logger
	startingCredits int64
}

func NewAuthService(users UserStore, hasher PasswordHasher, activity *ActivityService, clk clock.Clock, log *slog.Logger, startingCredits int64) *AuthService {
	return &AuthService{
		users:           users,
		hasher:          hasher,
		activity:        activity,
		clock:           clk,
		log:             log,
		startingCredits: startingCredits,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Signup(ctx context.Context, fullName, email, password string) (*models.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = normalizeEmail(email)
	if fullName == "" {
		return nil, invalidInput("full name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalidInput("email is not valid")
	}
	if password == "" {
		return nil, invalidInput("password is required")
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateAccount
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	user := &models.User{
		ID:             uuid.NewString(),
		FullName:       fullName,
		Email:          email,
		PasswordHash:   hash,
		Credits:        s.startingCredits,
		LastLogin:      &now,
		RewardCycleDay: 1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateAccount
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.activity.Record(ctx, user.ID, models.ActivitySignup, "User created a new account.")
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	now := s.clock.Now()
	user, err = s.users.Update(ctx, user.ID, func(u *models.User) error {
		u.LastLogin = &now
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("record login: %w", err)
	}

	s.activity.Record(ctx, user.ID, models.ActivityLogin, "User logged in successfully.")
	return user, nil
}

// CurrentUser resolves the session's user id to a live account.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	return user, nil
}

func (s *AuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
