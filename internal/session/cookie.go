package session

import (
	"net/http"
	"time"

	"github.com/clubcommerce/auth-service/internal/domain"
)

const (
	// AccessCookieName is the cookie carrying the access token.
	AccessCookieName = "access_token"
	// RefreshCookieName is the cookie carrying the refresh token.
	RefreshCookieName = "refresh_token"
)

// CookieManager writes and clears the session cookie pair. Flags depend on
// the environment: production gets Secure + SameSite=Strict, everything
// else gets SameSite=Lax without Secure so local HTTP development works.
type CookieManager struct {
	secure     bool
	sameSite   http.SameSite
	domain     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCookieManager creates a cookie manager for the given environment.
func NewCookieManager(environment, cookieDomain string, accessTTL, refreshTTL time.Duration) *CookieManager {
	m := &CookieManager{
		secure:     false,
		sameSite:   http.SameSiteLaxMode,
		domain:     cookieDomain,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
	if environment == "production" {
		m.secure = true
		m.sameSite = http.SameSiteStrictMode
	}
	return m
}

// Attach sets the access and refresh token cookies on the response.
func (m *CookieManager) Attach(w http.ResponseWriter, tokens *domain.TokenPair) {
	http.SetCookie(w, m.cookie(AccessCookieName, tokens.AccessToken, m.accessTTL))
	http.SetCookie(w, m.cookie(RefreshCookieName, tokens.RefreshToken, m.refreshTTL))
}

// Clear expires both session cookies.
func (m *CookieManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie(AccessCookieName, "", -time.Second))
	http.SetCookie(w, m.cookie(RefreshCookieName, "", -time.Second))
}

func (m *CookieManager) cookie(name, value string, ttl time.Duration) *http.Cookie {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   m.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: m.sameSite,
	}
}
