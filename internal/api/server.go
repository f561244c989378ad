// Package api exposes the studio over HTTP: the user-facing routes behind a
// bearer session token and the operator routes behind an admin check.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/digkill/genstudio/internal/metrics"
	"github.com/digkill/genstudio/internal/service"
	"github.com/digkill/genstudio/internal/session"
)

// maxUploadBytes bounds the multipart body of the edit endpoint.
const maxUploadBytes = 10 << 20

type Deps struct {
	Addr      string
	Log       *slog.Logger
	Sessions  *session.Manager
	Auth      *service.AuthService
	Ledger    *service.LedgerService
	Rewards   *service.RewardService
	Plans     *service.PlanService
	Promos    *service.PromoService
	Payments  *service.PaymentService
	Settings  *service.SettingsService
	Activity  *service.ActivityService
	Studio    *service.GenerationService
	Dashboard *service.DashboardService

	// RateLimitPerMinute and RateBurst bound generation calls per user.
	// Zero disables the limiter.
	RateLimitPerMinute int
	RateBurst          int
}

type Server struct {
	Deps
	limiter *rateLimiter
	router  *chi.Mux
}

func NewServer(deps Deps) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Log))
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)

	s := &Server{
		Deps:    deps,
		limiter: newRateLimiter(deps.RateLimitPerMinute, deps.RateBurst),
		router:  r,
	}

	r.Handle("/metrics", metrics.Handler())
	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/signup", s.handleSignup)
		api.Post("/auth/login", s.handleLogin)

		api.Group(func(user chi.Router) {
			user.Use(s.authenticate)

			user.Get("/me", s.handleMe)
			user.Get("/me/credits", s.handleCredits)
			user.Get("/features", s.handleFeatureFlags)
			user.Get("/rewards", s.handleRewardStatus)
			user.Post("/rewards/claim", s.handleClaimReward)
			user.Get("/plans", s.handleListPlans)
			user.Get("/payment-settings", s.handlePaymentSettings)
			user.Get("/payments", s.handleMyPayments)
			user.Post("/payments", s.handleCreatePayment)

			user.Route("/generate", func(gen chi.Router) {
				gen.Use(s.limiter.Handler)
				gen.Post("/images", s.handleGenerateImages)
				gen.Post("/enhance", s.handleEnhance)
				gen.Post("/edit", s.handleEdit)
				gen.Post("/video", s.handleStartVideo)
				gen.Post("/chat", s.handleChat)
			})

			user.Get("/videos", s.handleVideoHistory)
			user.Get("/videos/{operationId}/poll", s.handlePollVideo)

			user.Route("/history", func(h chi.Router) {
				h.Get("/images", s.handleImageHistory)
				h.Delete("/images/{id}", s.handleDeleteImage)
				h.Get("/videos", s.handleVideoHistory)
				h.Delete("/videos/{id}", s.handleDeleteVideo)
				h.Get("/chat", s.handleChatHistory)
				h.Delete("/chat/{sessionId}", s.handleDeleteChatSession)
			})

			user.Route("/admin", func(admin chi.Router) {
				admin.Use(requireAdmin)

				admin.Get("/dashboard", s.handleDashboard)
				admin.Get("/activity", s.handleActivity)
				admin.Get("/users", s.handleListUsers)
				admin.Post("/users/{id}/credits", s.handleAdjustCredits)
				admin.Delete("/users/{id}/chat", s.handleClearChat)
				admin.Get("/payments", s.handleListPayments)
				admin.Post("/payments/{id}/status", s.handlePaymentStatus)
				admin.Route("/plans", func(r chi.Router) {
					r.Get("/", s.handleListPlans)
					r.Post("/", s.handleCreatePlan)
					r.Put("/{id}", s.handleUpdatePlan)
					r.Delete("/{id}", s.handleDeletePlan)
				})
				admin.Route("/promo-codes", func(r chi.Router) {
					r.Get("/", s.handleListPromos)
					r.Post("/", s.handleCreatePromo)
					r.Put("/{id}", s.handleUpdatePromo)
					r.Delete("/{id}", s.handleDeletePromo)
				})
				admin.Get("/reward-settings", s.handleRewardSettings)
				admin.Put("/reward-settings", s.handleUpdateRewardSettings)
				admin.Get("/feature-flags", s.handleFeatureFlags)
				admin.Put("/feature-flags", s.handleUpdateFeatureFlags)
				admin.Get("/payment-settings", s.handlePaymentSettings)
				admin.Put("/payment-settings", s.handleUpdatePaymentSettings)
			})
		})
	})
	return s
}

// ServeHTTP lets tests drive the router without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// image and video calls wait on the generation backend
		WriteTimeout: 5 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.Log.Error("api shutdown error", "err", err)
		}
	}()

	s.Log.Info("api listening", "addr", s.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}
