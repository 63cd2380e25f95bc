package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/fjod/go_quote/internal/form"
	"github.com/fjod/go_quote/internal/repository"
	"github.com/fjod/go_quote/internal/service"
	"github.com/fjod/go_quote/internal/validation"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  validation.Errors `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondServiceError maps service and domain errors to HTTP statuses.
func respondServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	var invalid *form.InvalidError
	switch {
	case errors.As(err, &invalid):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "quote selection is invalid",
			Code:   "invalid_selection",
			Fields: invalid.Errors,
		})
	case errors.Is(err, service.ErrSessionExpired):
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, service.ErrEmptySessionID):
		respondError(w, http.StatusBadRequest, "invalid_session_id", err.Error())
	case errors.Is(err, form.ErrSubmitInFlight):
		respondError(w, http.StatusConflict, "submit_in_flight", err.Error())
	case errors.Is(err, form.ErrAlreadySubmitted):
		respondError(w, http.StatusConflict, "already_submitted", err.Error())
	case errors.Is(err, repository.ErrDevisNotFound):
		respondError(w, http.StatusNotFound, "devis_not_found", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		log.Error("unhandled service error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
