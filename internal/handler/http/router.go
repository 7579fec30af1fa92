package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GwangCheonLee/authcore/internal/domain"
	"github.com/GwangCheonLee/authcore/internal/service"
	"github.com/GwangCheonLee/authcore/internal/token"
	"github.com/GwangCheonLee/authcore/pkg/health"
	"github.com/GwangCheonLee/authcore/pkg/middleware"
)

// RouterConfig carries the handler-level configuration.
type RouterConfig struct {
	Environment      string
	RefreshTTL       time.Duration
	OAuthRedirectURL string
	CORS             CORSConfig
	PprofCIDRs       []string
}

// NewRouter creates a chi router with all authcore routes registered.
func NewRouter(
	authService *service.AuthService,
	issuer *token.Issuer,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(cfg.CORS))
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing("authcore"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("authcore"))

	// Ops endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)
	}

	authHandler := NewAuthHandler(authService, logger, cfg.Environment, cfg.RefreshTTL, cfg.OAuthRedirectURL)
	userHandler := NewUserHandler(authService, logger)
	guard := NewGuard(issuer, authService, logger)

	// Public auth endpoints
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Get("/oauth/{provider}/callback", authHandler.OAuthCallback)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/sign-up", authHandler.SignUp)
			r.Post("/sign-in", authHandler.SignIn)
		})

		r.Post("/refresh", authHandler.Refresh)

		// Password and two-factor management require a signed-in user.
		r.Group(func(r chi.Router) {
			r.Use(guard.Access)
			r.With(ContentTypeJSON).Patch("/password", authHandler.ChangePassword)
			r.Post("/two-factor", authHandler.GenerateTwoFactor)
			r.Get("/two-factor/qr", authHandler.TwoFactorQR)
		})
	})

	// Account endpoints
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(guard.Access)

		r.With(RequireOwnership).Get("/{id}", userHandler.Get)
		r.With(RequireRole(domain.RoleAdmin)).Delete("/{id}", userHandler.Deactivate)
	})

	return r
}
