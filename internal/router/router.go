package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"clinic-gatekeeper/internal/config"
	"clinic-gatekeeper/internal/gatekeeper"
	"clinic-gatekeeper/internal/handler"
	"clinic-gatekeeper/internal/metrics"
	"clinic-gatekeeper/internal/middleware"
)

const (
	SignOutPath = "/api/auth/sign-out"
	MetricsPath = "/api/metrics"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	Session *handler.SessionHandler
	Audit   *handler.AuditHandler
	Health  *handler.HealthHandler
	// Metrics is optional; nil disables instrumentation and the scrape route.
	Metrics *metrics.Recorder
}

// New mounts every route behind the gatekeeper. Which paths it guards is
// decided by its route classifier, not by the route tree.
func New(cfg *config.Config, gate *gatekeeper.Engine, sessionAuth *middleware.SessionAuth, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM, gate.SignInPath())

	r.Use(middleware.RealIP(cfg.TrustedProxies))
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	if h.Metrics != nil {
		r.Use(h.Metrics.Instrument)
	}
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)
	r.Use(gate.Handler)

	r.Get("/health", h.Health.Health)
	if h.Metrics != nil {
		r.Method(http.MethodGet, MetricsPath, h.Metrics.Handler())
	}

	r.Group(func(g chi.Router) {
		g.Use(middleware.Timeout(cfg.RequestTimeout))

		g.Get("/", h.Session.Home)
		g.Get(gate.SignInPath(), h.Auth.SignInPage)
		g.Post(gate.SignInPath(), h.Auth.SignIn)
		g.Post(SignOutPath, h.Auth.SignOut)

		g.With(sessionAuth.RequireSession).Get("/api/audit", h.Audit.List)

		g.Get("/dashboard/session", h.Session.Session)
		g.Get("/*", h.Session.Page)
	})

	return r
}
