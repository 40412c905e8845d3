// Package api serves the HTTP API: indicator snapshots, on-demand refresh,
// signal generation and the presentation style table.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"signaldesk/internal/analysis"
	"signaldesk/internal/signald"
)

// Service is what the handlers need from the signal service.
type Service interface {
	Symbols() []string
	Interval() string
	MarketStatus() string
	Latest(symbol string) (signald.Snapshot, bool)
	Refresh(ctx context.Context, symbol string) (signald.Snapshot, error)
	Analyze(ctx context.Context, symbol string) (analysis.Signal, error)
	RecentSignals(ctx context.Context, symbol string, limit int) ([]analysis.Signal, error)
}

// Options are the optional handlers mounted next to the API.
type Options struct {
	Health http.Handler // GET /api/v1/health; a static ok when nil
	WS     http.Handler // GET /ws; not mounted when nil
}

type handlers struct {
	svc Service
	log *slog.Logger
}

// NewRouter builds the chi router.
func NewRouter(svc Service, opts Options) http.Handler {
	h := &handlers{svc: svc, log: slog.Default().With(slog.String("component", "api"))}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		if opts.Health != nil {
			r.Method(http.MethodGet, "/health", opts.Health)
		} else {
			r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			})
		}
		r.Get("/symbols", h.symbols)
		r.Get("/styles", h.styles)

		r.Route("/indicators/{symbol}", func(r chi.Router) {
			r.Get("/", h.indicators)
			r.Post("/refresh", h.refresh)
		})
		r.Route("/signals/{symbol}", func(r chi.Router) {
			// Analysis calls queue behind the scheduler; allow for a few slots.
			r.With(middleware.Timeout(90*time.Second)).Post("/", h.analyze)
			r.Get("/", h.signals)
		})
	})

	if opts.WS != nil {
		r.Method(http.MethodGet, "/ws", opts.WS)
	}
	return r
}

func (h *handlers) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"took", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
