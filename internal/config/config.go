package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/clubcommerce/auth-service/pkg/config"
)

// Config holds all configuration for the auth service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"AUTH_HTTP_PORT" envDefault:"8001"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"clubcommerce"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"clubcommerce_secret"`
	PostgresDB   string `env:"AUTH_DB_NAME" envDefault:"auth_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Redis (verification registry)
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT: the access and refresh secrets are independent so a leaked
	// access secret cannot mint refresh tokens.
	JWTAccessSecret  string        `env:"JWT_ACCESS_SECRET" envDefault:"dev-access-secret-do-not-use"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET" envDefault:"dev-refresh-secret-do-not-use"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"168h"`

	// OAuth providers
	GitHubClientID     string `env:"OAUTH_GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"OAUTH_GITHUB_CLIENT_SECRET"`
	GoogleClientID     string `env:"OAUTH_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"OAUTH_GOOGLE_CLIENT_SECRET"`
	OAuthStateSecret   string `env:"OAUTH_STATE_SECRET" envDefault:"dev-state-secret-do-not-use"`

	// Front end
	FrontendBaseURL   string `env:"FRONTEND_BASE_URL" envDefault:"http://localhost:3000"`
	OAuthCallbackPath string `env:"FRONTEND_OAUTH_CALLBACK_PATH" envDefault:"/auth/callback"`
	PublicBaseURL     string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8001"`

	// Cookies
	CookieDomain string `env:"COOKIE_DOMAIN" envDefault:""`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	// Tracing
	TracingEnabled  bool    `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint    string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TraceSampleRate float64 `env:"TRACE_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables. Missing or weak
// signing secrets outside development are a fatal configuration error.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load auth config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}

	if cfg.JWTAccessExpiry <= 0 || cfg.JWTRefreshExpiry <= 0 {
		return nil, fmt.Errorf("token expiries must be positive")
	}
	if cfg.JWTAccessExpiry >= cfg.JWTRefreshExpiry {
		return nil, fmt.Errorf("access token expiry (%s) must be shorter than refresh token expiry (%s)",
			cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	}

	if cfg.Environment != "development" {
		for name, val := range map[string]string{
			"JWT_ACCESS_SECRET":  cfg.JWTAccessSecret,
			"JWT_REFRESH_SECRET": cfg.JWTRefreshSecret,
			"OAUTH_STATE_SECRET": cfg.OAuthStateSecret,
		} {
			if val == "" || val == "dev-access-secret-do-not-use" || val == "dev-refresh-secret-do-not-use" || val == "dev-state-secret-do-not-use" {
				return nil, fmt.Errorf("%s must be explicitly set via environment variable in %q mode", name, cfg.Environment)
			}
			if len(val) < 32 {
				return nil, fmt.Errorf("%s must be at least 32 characters long, got %d", name, len(val))
			}
		}
	}

	if cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	return cfg, nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}

// RedisAddr returns the Redis host:port address.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// OAuthRedirectURL builds the provider callback URL on this service.
func (c *Config) OAuthRedirectURL(provider string) string {
	return fmt.Sprintf("%s/api/v1/auth/oauth/%s/callback", c.PublicBaseURL, provider)
}
