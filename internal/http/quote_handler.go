package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fjod/go_quote/internal/domain"
	"github.com/fjod/go_quote/internal/form"
	"github.com/fjod/go_quote/internal/pricing"
	"github.com/fjod/go_quote/internal/service"
)

// QuoteService is what the handler needs from the quote service.
type QuoteService interface {
	Table() *pricing.Table
	Estimate(patch service.Patch) form.State
	StartSession(ctx context.Context, query url.Values) (*service.SessionView, error)
	GetSession(ctx context.Context, id string) (*service.SessionView, error)
	UpdateSession(ctx context.Context, id string, patch service.Patch) (*service.SessionView, error)
	SubmitSession(ctx context.Context, id string) (*domain.Summary, error)
	GetDevis(ctx context.Context, number string) (*domain.Devis, error)
}

type QuoteHandler struct {
	svc      QuoteService
	timeout  time.Duration
	validate *validator.Validate
	log      *zap.Logger
}

func NewQuoteHandler(svc QuoteService, timeout time.Duration, log *zap.Logger) *QuoteHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuoteHandler{
		svc:      svc,
		timeout:  timeout,
		validate: validator.New(),
		log:      log,
	}
}

type PricingResponseDTO struct {
	SiteTypes   []pricing.Option        `json:"siteTypes"`
	DesignTypes []pricing.Option        `json:"designTypes"`
	Features    []pricing.FeatureOption `json:"features"`
	Maintenance []pricing.Option        `json:"maintenance"`
	Currency    string                  `json:"currency"`
}

type SubmitResponseDTO struct {
	DevisNumber string          `json:"devisNumber"`
	Status      string          `json:"status"`
	Summary     *domain.Summary `json:"summary"`
}

// GET /api/v1/pricing
func (h *QuoteHandler) GetPricing(w http.ResponseWriter, r *http.Request) {
	t := h.svc.Table()
	respondJSON(w, http.StatusOK, PricingResponseDTO{
		SiteTypes:   t.Options(pricing.CategorySiteType),
		DesignTypes: t.Options(pricing.CategoryDesignType),
		Features:    t.Features(),
		Maintenance: t.Options(pricing.CategoryMaintenance),
		Currency:    "EUR",
	})
}

// POST /api/v1/quotes/estimate
func (h *QuoteHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	patch, ok := h.decodePatch(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.svc.Estimate(patch))
}

// POST /api/v1/quotes/sessions?siteType=...
func (h *QuoteHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.svc.StartSession(ctx, r.URL.Query())
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}
	w.Header().Set("Location", "/api/v1/quotes/sessions/"+view.ID)
	respondJSON(w, http.StatusCreated, view)
}

// GET /api/v1/quotes/sessions/{id}
func (h *QuoteHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.svc.GetSession(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// PATCH /api/v1/quotes/sessions/{id}
func (h *QuoteHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	patch, ok := h.decodePatch(w, r)
	if !ok {
		return
	}

	view, err := h.svc.UpdateSession(ctx, chi.URLParam(r, "id"), patch)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// POST /api/v1/quotes/sessions/{id}/submit
func (h *QuoteHandler) SubmitSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	summary, err := h.svc.SubmitSession(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}
	w.Header().Set("Location", "/api/v1/devis/"+summary.DevisNumber)
	respondJSON(w, http.StatusAccepted, SubmitResponseDTO{
		DevisNumber: summary.DevisNumber,
		Status:      string(domain.FormStatusSubmitting),
		Summary:     summary,
	})
}

// GET /api/v1/devis/{number}
func (h *QuoteHandler) GetDevis(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	number := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "number")))
	if !strings.HasPrefix(number, "DEV-") {
		respondError(w, http.StatusBadRequest, "invalid_devis_number", "devis number must look like DEV-YYYYMMDD-XXXXXX")
		return
	}

	devis, err := h.svc.GetDevis(ctx, number)
	if err != nil {
		respondServiceError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, devis)
}

func (h *QuoteHandler) decodePatch(w http.ResponseWriter, r *http.Request) (service.Patch, bool) {
	var patch service.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return patch, false
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return patch, false
	}
	if err := h.validate.Struct(patch); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid request",
			Code:    "invalid_request",
			Details: err.Error(),
		})
		return patch, false
	}
	return patch, true
}
