package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/digkill/genstudio/internal/models"
	"github.com/digkill/genstudio/internal/service"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Dashboard.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid limit"})
			return
		}
		limit = n
	}
	items, err := s.Activity.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Auth.ListUsers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type adjustCreditsRequest struct {
	Delta int64 `json:"delta"`
}

func (s *Server) handleAdjustCredits(w http.ResponseWriter, r *http.Request) {
	var req adjustCreditsRequest
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	user, err := s.Ledger.AdminAdjust(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"), req.Delta)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleClearChat(w http.ResponseWriter, r *http.Request) {
	if err := s.Studio.ClearChat(r.Context(), currentUser(r).ID, chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	status := models.PaymentStatus(r.URL.Query().Get("status"))
	list, err := s.Payments.ListAll(r.Context(), status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type paymentStatusRequest struct {
	Status models.PaymentStatus `json:"status"`
	Reason string               `json:"reason"`
}

func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req paymentStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	updated, err := s.Payments.UpdateStatus(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"), req.Status, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type planRequest struct {
	Credits  int64  `json:"credits"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
}

type planUpdateRequest struct {
	Credits  *int64  `json:"credits"`
	Price    *int64  `json:"price"`
	Currency *string `json:"currency"`
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	plan, err := s.Plans.Create(r.Context(), currentUser(r).ID, service.CreatePlanInput{
		Credits:  req.Credits,
		Price:    req.Price,
		Currency: req.Currency,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req planUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	plan, err := s.Plans.Update(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"), service.UpdatePlanInput{
		Credits:  req.Credits,
		Price:    req.Price,
		Currency: req.Currency,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := s.Plans.Delete(r.Context(), currentUser(r).ID, chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type promoRequest struct {
	Code               string `json:"code"`
	DiscountPercentage int    `json:"discount_percentage"`
	IsActive           *bool  `json:"is_active"`
}

type promoUpdateRequest struct {
	Code               *string `json:"code"`
	DiscountPercentage *int    `json:"discount_percentage"`
	IsActive           *bool   `json:"is_active"`
}

func (s *Server) handleListPromos(w http.ResponseWriter, r *http.Request) {
	promos, err := s.Promos.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, promos)
}

func (s *Server) handleCreatePromo(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	promo, err := s.Promos.Create(r.Context(), currentUser(r).ID, service.CreatePromoInput{
		Code:               req.Code,
		DiscountPercentage: req.DiscountPercentage,
		IsActive:           req.IsActive,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, promo)
}

func (s *Server) handleUpdatePromo(w http.ResponseWriter, r *http.Request) {
	var req promoUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	promo, err := s.Promos.Update(r.Context(), currentUser(r).ID, chi.URLParam(r, "id"), service.UpdatePromoInput{
		Code:               req.Code,
		DiscountPercentage: req.DiscountPercentage,
		IsActive:           req.IsActive,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, promo)
}

func (s *Server) handleDeletePromo(w http.ResponseWriter, r *http.Request) {
	if err := s.Promos.Delete(r.Context(), currentUser(r).ID, chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRewardSettings(w http.ResponseWriter, r *http.Request) {
	rs, err := s.Settings.RewardSettings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (s *Server) handleUpdateRewardSettings(w http.ResponseWriter, r *http.Request) {
	var req models.RewardSettings
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	rs, err := s.Settings.UpdateRewardSettings(r.Context(), currentUser(r).ID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (s *Server) handleUpdateFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var req models.FeatureFlags
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	flags, err := s.Settings.UpdateFeatureFlags(r.Context(), currentUser(r).ID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, flags)
}

func (s *Server) handleUpdatePaymentSettings(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentSettings
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	ps, err := s.Settings.UpdatePaymentSettings(r.Context(), currentUser(r).ID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}
