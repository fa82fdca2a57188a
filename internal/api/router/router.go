package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/care-coordinator/internal/conversation"
	httpmiddleware "github.com/wolfman30/care-coordinator/internal/http/middleware"
	"github.com/wolfman30/care-coordinator/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	MetricsHandler      http.Handler
	HealthChecks        map[string]HealthCheck
	CORSAllowedOrigins  []string

	// RateLimitRPS <= 0 disables per-client limiting of /message.
	RateLimitRPS   float64
	RateLimitBurst int

	// DebugRoutes exposes /debug for local development.
	DebugRoutes bool
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, "API is up and running!")
	})
	r.Get("/health", newHealthHandler(cfg.HealthChecks, 2*time.Second).ServeHTTP)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.ConversationHandler == nil {
		return r
	}
	h := cfg.ConversationHandler

	r.Route("/message", func(msg chi.Router) {
		if cfg.RateLimitRPS > 0 {
			msg.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}
		msg.Post("/create", h.CreateMessage)
	})

	if cfg.DebugRoutes {
		r.Route("/debug", func(debug chi.Router) {
			debug.Get("/user", h.DebugUser)
			debug.Post("/prompt", h.DebugPrompt)
			debug.Put("/prompt/{id}", h.OverridePrompt)
			debug.Delete("/prompt/{id}", h.ResetPrompt)
		})
	}

	return r
}
