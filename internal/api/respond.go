package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/digkill/genstudio/internal/service"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func badJSON(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
}

// statusFor maps service errors onto HTTP statuses. Anything unknown is a 500.
func statusFor(err error) int {
	var genErr *service.GenerationError
	switch {
	case errors.As(err, &genErr):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrRequestNotFound),
		errors.Is(err, service.ErrPlanNotFound),
		errors.Is(err, service.ErrPromoNotFound),
		errors.Is(err, service.ErrHistoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateAccount),
		errors.Is(err, service.ErrDuplicatePromo),
		errors.Is(err, service.ErrRequestAlreadyProcessed),
		errors.Is(err, service.ErrNoRewardAvailable),
		errors.Is(err, service.ErrVideoPending):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, service.ErrNegativeResultingBalance),
		errors.Is(err, service.ErrInvalidRewardSettings),
		errors.Is(err, service.ErrInvalidAmount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrFeatureDisabled),
		errors.Is(err, service.ErrTargetIsAdmin):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInvalidStatus):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		s.Log.Error("api handler error", "path", r.URL.Path, "err", err)
		msg = "internal error"
	case http.StatusBadGateway:
		s.Log.Warn("generation backend error", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorBody{Error: msg})
}
