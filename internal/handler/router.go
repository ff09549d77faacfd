package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/event-registration/internal/config"
	"github.com/Shivanand-hulikatti/event-registration/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Events         EventService
	Accounts       AccountService
	Sessions       SessionResolver
	DB             Pinger
	Logger         zerolog.Logger
	CORS           config.CORSConfig
	LoginPerMinute int
	SecureCookies  bool
	// WebDir is served at the root when non-empty.
	WebDir string
}

// NewRouter builds the chi router for the whole API.
func NewRouter(cfg RouterConfig) http.Handler {
	eventHandler := NewEventHandler(cfg.Events)
	authHandler := NewAuthHandler(cfg.Accounts, cfg.SecureCookies)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.HTTPMiddleware)
	r.Use(SecurityHeaders)
	r.Use(CORS(cfg.CORS, cfg.Logger))

	r.Get("/health", HealthCheck(cfg.DB))
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(Sessions(cfg.Sessions))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Signup)
			r.With(LoginRateLimit(cfg.LoginPerMinute)).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		r.Route("/events", func(r chi.Router) {
			r.Post("/", eventHandler.CreateEvent)
			r.Get("/", eventHandler.ListEvents)
			r.Get("/upcoming", eventHandler.ListUpcomingEvents)
			r.Get("/{id}", eventHandler.GetEvent)
			r.Get("/{id}/stats", eventHandler.GetStats)
			r.Post("/{id}/register", eventHandler.Register)
			r.Post("/{id}/cancel", eventHandler.CancelRegistration)
		})
	})

	// Static HTML from the web directory at the root.
	if cfg.WebDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.WebDir)))
	}

	return r
}
