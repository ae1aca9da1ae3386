package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	scoutmiddleware "github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/middleware"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/telemetry"
)

// RouterOptions controls the construction of the scout API router.
// The zero value is valid; route groups whose service is nil are not mounted.
type RouterOptions struct {
	Sessions  SessionService
	Photos    PhotoService // mounted under the session routes
	Sync      SyncService
	Heatmap   HeatmapService
	Validator PayloadValidator

	// Tokens enables bearer authentication when set.
	Tokens scoutmiddleware.TokenParser

	// Metrics records per-route request metrics; MetricsHandler serves /metrics.
	Metrics        *telemetry.ScoutMetrics
	MetricsHandler http.Handler

	CORSOptions   *cors.Options
	Middleware    []func(http.Handler) http.Handler
	HealthHandler http.HandlerFunc
	ExtraRoutes   func(chi.Router)
}

// DefaultCORSOptions returns the shared development CORS policy.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles a chi.Router with shared middleware, CORS policy, and
// the scouting handlers mounted.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	// Baseline middleware shared across entrypoints.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	if opts.Metrics != nil {
		r.Use(scoutmiddleware.NewMetricsMiddleware(opts.Metrics))
	}
	if opts.Tokens != nil {
		r.Use(scoutmiddleware.NewAuthnMiddleware(opts.Tokens))
	}

	// Apply custom middleware passed from the caller.
	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Route("/api/v1", func(r chi.Router) {
		if opts.Sessions != nil {
			MountSessionRoutes(r, opts.Sessions, opts.Photos, opts.Validator)
		}
		if opts.Sync != nil || opts.Heatmap != nil {
			MountReadRoutes(r, opts.Sync, opts.Heatmap)
		}
	})

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/health", healthHandler)

	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	if opts.ExtraRoutes != nil {
		opts.ExtraRoutes(r)
	}

	return r
}

// MountSessionRoutes mounts session lifecycle and observation endpoints, and
// the photo metadata endpoints when photos is not nil.
func MountSessionRoutes(r chi.Router, service SessionService, photos PhotoService, validator PayloadValidator) {
	sessions := NewSessionHandlers(service)
	observations := NewObservationHandlers(service, validator)

	r.Post("/farms/{farmID}/sessions", sessions.Create)
	r.Get("/farms/{farmID}/sessions", sessions.List)

	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", sessions.Get)
		r.Patch("/", sessions.Update)
		r.Post("/start", sessions.transition(service.Start))
		r.Post("/submit", sessions.transition(service.Submit))
		r.Post("/complete", sessions.transition(service.Complete))
		r.Post("/reopen", sessions.transition(service.Reopen))
		r.Post("/incomplete", sessions.transition(service.MarkIncomplete))
		r.Get("/audit", sessions.AuditEvents)

		r.Put("/observations", observations.Upsert)
		r.Post("/observations/bulk", observations.Bulk)
		r.Delete("/observations/{observationID}", observations.Delete)

		if photos != nil {
			photoHandlers := NewPhotoHandlers(photos)
			r.Get("/photos", photoHandlers.List)
			r.Post("/photos", photoHandlers.Register)
			r.Post("/photos/confirm", photoHandlers.Confirm)
		}
	})
}

// MountReadRoutes mounts the delta sync and heatmap endpoints.
func MountReadRoutes(r chi.Router, sync SyncService, heatmap HeatmapService) {
	reads := NewReadHandlers(sync, heatmap)
	if sync != nil {
		r.Get("/farms/{farmID}/sync", reads.Sync)
	}
	if heatmap != nil {
		r.Get("/farms/{farmID}/heatmap", reads.Heatmap)
	}
}

// NewH2CHandler wraps the shared router with an h2c server to provide HTTP/2
// over cleartext for edge clients that multiplex sync calls.
func NewH2CHandler(opts RouterOptions) http.Handler {
	return h2c.NewHandler(NewRouter(opts), &http2.Server{})
}
