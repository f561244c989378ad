package api

import (
	"net/http"
	"time"

	"github.com/digkill/genstudio/internal/models"
	"github.com/digkill/genstudio/internal/service"
)

type credentialsRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	user, err := s.Auth.Signup(r.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSession(w, r, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	user, err := s.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSession(w, r, http.StatusOK, user)
}

func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, status int, user *models.User) {
	token, expires, err := s.Sessions.Issue(user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, sessionResponse{Token: token, ExpiresAt: expires, User: user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	balance, err := s.Ledger.Balance(r.Context(), currentUser(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"credits": balance})
}

func (s *Server) handleFeatureFlags(w http.ResponseWriter, r *http.Request) {
	flags, err := s.Settings.FeatureFlags(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, flags)
}

func (s *Server) handleRewardStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.Rewards.GetStatus(r.Context(), currentUser(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleClaimReward(w http.ResponseWriter, r *http.Request) {
	res, err := s.Rewards.ClaimReward(r.Context(), currentUser(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.Plans.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) handlePaymentSettings(w http.ResponseWriter, r *http.Request) {
	ps, err := s.Settings.PaymentSettings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

type paymentRequest struct {
	PlanID            string               `json:"plan_id"`
	PaymentMethod     models.PaymentMethod `json:"payment_method"`
	UserAccountNumber string               `json:"user_account_number"`
	TransactionID     string               `json:"transaction_id"`
	PromoCode         string               `json:"promo_code"`
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	created, err := s.Payments.Create(r.Context(), currentUser(r).ID, service.CreatePaymentInput{
		PlanID:            req.PlanID,
		PaymentMethod:     req.PaymentMethod,
		UserAccountNumber: req.UserAccountNumber,
		TransactionID:     req.TransactionID,
		PromoCode:         req.PromoCode,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleMyPayments(w http.ResponseWriter, r *http.Request) {
	list, err := s.Payments.ListForUser(r.Context(), currentUser(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
