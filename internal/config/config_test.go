package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8001, cfg.HTTPPort)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, 168*time.Hour, cfg.JWTRefreshExpiry)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoad_ProductionRequiresRealSecrets(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	// Dev placeholder secrets must be rejected outside development.
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be explicitly set")
}

func TestLoad_ProductionRejectsShortSecrets(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_ACCESS_SECRET", "short-access")
	t.Setenv("JWT_REFRESH_SECRET", strings.Repeat("r", 40))
	t.Setenv("OAUTH_STATE_SECRET", strings.Repeat("s", 40))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestLoad_ProductionWithProperSecrets(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_ACCESS_SECRET", strings.Repeat("a", 40))
	t.Setenv("JWT_REFRESH_SECRET", strings.Repeat("r", 40))
	t.Setenv("OAUTH_STATE_SECRET", strings.Repeat("s", 40))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
}

func TestLoad_RejectsIdenticalSecrets(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", strings.Repeat("x", 40))
	t.Setenv("JWT_REFRESH_SECRET", strings.Repeat("x", 40))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestLoad_RejectsAccessOutlivingRefresh(t *testing.T) {
	t.Setenv("JWT_ACCESS_TOKEN_EXPIRY", "200h")
	t.Setenv("JWT_REFRESH_TOKEN_EXPIRY", "168h")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be shorter")
}

func TestLoad_RejectsBadPort(t *testing.T) {
	t.Setenv("AUTH_HTTP_PORT", "70000")

	_, err := Load()
	assert.Error(t, err)
}

func TestConfig_PostgresDSN(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	dsn := cfg.PostgresDSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "auth_db")
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestConfig_OAuthRedirectURL(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t,
		"http://localhost:8001/api/v1/auth/oauth/github/callback",
		cfg.OAuthRedirectURL("github"),
	)
}
