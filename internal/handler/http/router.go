package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clubcommerce/auth-service/internal/auth"
	"github.com/clubcommerce/auth-service/internal/service"
	"github.com/clubcommerce/auth-service/internal/session"
	"github.com/clubcommerce/auth-service/pkg/health"
	"github.com/clubcommerce/auth-service/pkg/middleware"
)

// RouterConfig bundles the dependencies for the HTTP router.
type RouterConfig struct {
	AuthService   *service.AuthService
	OAuthService  *service.OAuthService
	JWTManager    *auth.JWTManager
	Cookies       *session.CookieManager
	Redirect      *session.RedirectBuilder
	HealthHandler *health.Handler
	Logger        *slog.Logger
	CORS          middleware.CORSConfig
	Tracing       bool
}

// NewRouter creates a chi router with all auth service routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.PrometheusMetrics("auth"))
	if cfg.Tracing {
		r.Use(middleware.Tracing("auth-service"))
	}

	// Health check endpoints
	r.Get("/health/live", cfg.HealthHandler.LivenessHandler())
	r.Get("/health/ready", cfg.HealthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Token validator that bridges to our internal JWTManager.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := cfg.JWTManager.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		}, nil
	}

	authHandler := NewAuthHandler(cfg.AuthService, cfg.Cookies, cfg.Logger)
	oauthHandler := NewOAuthHandler(cfg.OAuthService, cfg.Cookies, cfg.Redirect, cfg.Logger)
	userHandler := NewUserHandler(cfg.AuthService)

	r.Route("/api/v1/auth", func(r chi.Router) {
		// Public JSON endpoints
		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
			r.Post("/logout", authHandler.Logout)
			r.Post("/resend-verification", authHandler.ResendVerification)
		})

		// Verification and OAuth endpoints are browser-navigable GETs.
		r.Get("/verify-email", authHandler.VerifyEmail)
		r.Get("/oauth/{provider}", oauthHandler.Begin)
		r.Get("/oauth/{provider}/callback", oauthHandler.Callback)

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Use(middleware.Auth(tokenValidator))

			r.Post("/change-password", authHandler.ChangePassword)
		})
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Get("/me", userHandler.GetProfile)
		r.Put("/me", userHandler.UpdateProfile)
	})

	return r
}
