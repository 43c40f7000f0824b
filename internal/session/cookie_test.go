package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubcommerce/auth-service/internal/domain"
)

func attachAndCollect(t *testing.T, m *CookieManager) map[string]*http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Attach(rec, &domain.TokenPair{AccessToken: "access-jwt", RefreshToken: "refresh-jwt"})

	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, AccessCookieName)
	require.Contains(t, cookies, RefreshCookieName)
	return cookies
}

func TestCookieManager_Production(t *testing.T) {
	m := NewCookieManager("production", "club.example", 15*time.Minute, 7*24*time.Hour)
	cookies := attachAndCollect(t, m)

	for _, name := range []string{AccessCookieName, RefreshCookieName} {
		c := cookies[name]
		assert.True(t, c.HttpOnly, "%s must be HttpOnly", name)
		assert.True(t, c.Secure, "%s must be Secure in production", name)
		assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
		assert.Equal(t, "club.example", c.Domain)
		assert.Equal(t, "/", c.Path)
	}

	assert.Equal(t, "access-jwt", cookies[AccessCookieName].Value)
	assert.Equal(t, "refresh-jwt", cookies[RefreshCookieName].Value)

	// The access cookie dies well before the refresh cookie.
	assert.Equal(t, int((15 * time.Minute).Seconds()), cookies[AccessCookieName].MaxAge)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), cookies[RefreshCookieName].MaxAge)
	assert.Less(t, cookies[AccessCookieName].MaxAge, cookies[RefreshCookieName].MaxAge)
}

func TestCookieManager_Development(t *testing.T) {
	m := NewCookieManager("development", "", 15*time.Minute, 7*24*time.Hour)
	cookies := attachAndCollect(t, m)

	for _, name := range []string{AccessCookieName, RefreshCookieName} {
		c := cookies[name]
		assert.True(t, c.HttpOnly)
		assert.False(t, c.Secure, "local HTTP must still receive %s", name)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	}
}

func TestCookieManager_Clear(t *testing.T) {
	m := NewCookieManager("production", "", 15*time.Minute, 7*24*time.Hour)
	rec := httptest.NewRecorder()
	m.Clear(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Empty(t, c.Value)
		assert.Equal(t, -1, c.MaxAge)
	}
}

func TestRedirectBuilder(t *testing.T) {
	b := NewRedirectBuilder("http://localhost:3000", "/auth/callback")

	success := b.Success("github", "")
	assert.Contains(t, success, "http://localhost:3000/auth/callback")
	assert.Contains(t, success, "provider=github")
	assert.Contains(t, success, "status=success")
	assert.NotContains(t, success, "redirect_url")

	failure := b.Failure("google", "oauth_failed", "exchange rejected", "")
	assert.Contains(t, failure, "provider=google")
	assert.Contains(t, failure, "error=oauth_failed")
	assert.Contains(t, failure, "error_description=exchange+rejected")
	assert.NotContains(t, failure, "redirect_url")
}

func TestRedirectBuilder_CarriesRedirectTarget(t *testing.T) {
	b := NewRedirectBuilder("http://localhost:3000", "/auth/callback")

	success := b.Success("github", "/account/orders")
	assert.Contains(t, success, "redirect_url=%2Faccount%2Forders")
	assert.Contains(t, success, "status=success")

	failure := b.Failure("github", "access_denied", "", "/account/orders")
	assert.Contains(t, failure, "redirect_url=%2Faccount%2Forders")
	assert.Contains(t, failure, "error=access_denied")
}
