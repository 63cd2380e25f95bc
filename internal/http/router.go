package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type RouterConfig struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	CORSOrigins    []string
	// Limiter guards /api routes; nil disables rate limiting.
	Limiter Limiter
}

func NewRouter(h *QuoteHandler, cfg RouterConfig, log *zap.Logger) chi.Router {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Location", "X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if cfg.MaxBodyBytes > 0 {
		r.Use(middleware.RequestSize(cfg.MaxBodyBytes))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(SecurityHeaders)
		if cfg.Limiter != nil {
			r.Use(RateLimit(cfg.Limiter, log))
		}

		r.Route("/v1", func(r chi.Router) {
			r.Get("/pricing", h.GetPricing)
			r.Route("/quotes", func(r chi.Router) {
				r.Post("/estimate", h.Estimate)
				r.Post("/sessions", h.StartSession)
				r.Get("/sessions/{id}", h.GetSession)
				r.Patch("/sessions/{id}", h.UpdateSession)
				r.Post("/sessions/{id}/submit", h.SubmitSession)
			})
			r.Get("/devis/{number}", h.GetDevis)
		})
	})

	return r
}
