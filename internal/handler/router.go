package handler

import (
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"fe-v2/internal/container"
	"fe-v2/internal/middleware"
)

// NewRouter configures and returns the HTTP router
func NewRouter(container *container.Container) *chi.Mux {
	cfg := container.GetConfig()
	log := container.GetLogger()
	session := container.GetSessionService()

	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.AccessLog(log.Component("http")))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	healthHandler := NewHealthHandler(container)
	authHandler := NewAuthHandler(container)
	dashboardHandler := NewDashboardHandler(container)

	r.Get("/health", healthHandler.Check)

	// Login flow (public)
	r.Get(cfg.LoginPath, authHandler.LoginPage)
	r.Group(func(r chi.Router) {
		if cfg.LoginRateLimit > 0 {
			limiter := middleware.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
			r.Use(middleware.RateLimit(limiter, log.Component("ratelimit")))
		}

		r.Get(cfg.LoginPath+"/start", authHandler.StartLogin)
		r.Get(cfg.CallbackPath, authHandler.Callback)
	})
	// POST only: a GET logout could be triggered by any embedded image
	r.Post("/logout", authHandler.Logout)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins), log))
		r.Get("/session", authHandler.Session)
		r.NotFound(authHandler.APINotFound)
	})

	// Protected pages
	r.Group(func(r chi.Router) {
		r.Use(middleware.RouteGuard(session, cfg.LoginPath, log))

		r.Get("/", dashboardHandler.Show)
		if cfg.LandingPath != "/" {
			r.Get(cfg.LandingPath, dashboardHandler.Show)
		}
		r.Get("/project/{id}", dashboardHandler.Project)
	})

	r.NotFound(dashboardHandler.NotFound)

	log.Info("Router configured successfully")
	return r
}
