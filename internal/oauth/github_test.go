package oauth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubcommerce/auth-service/pkg/httpclient"
)

func newTestClient(t *testing.T) *httpclient.CircuitBreakerClient {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	return httpclient.NewCircuitBreakerClient(httpclient.New(cfg), httpclient.DefaultCircuitBreakerConfig("test-github"), logger)
}

// fakeGitHub runs an httptest server that answers the three GitHub endpoints
// the adapter touches.
type fakeGitHub struct {
	server       *httptest.Server
	tokenStatus  int
	tokenBody    map[string]string
	user         map[string]any
	emails       []map[string]any
	emailsStatus int
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{
		tokenStatus: http.StatusOK,
		tokenBody:   map[string]string{"access_token": "gh-access"},
		user: map[string]any{
			"id":         int64(4242),
			"login":      "octocat",
			"name":       "Octo Cat",
			"email":      "octo@cat.example",
			"avatar_url": "https://avatars.example/octocat",
		},
		emailsStatus: http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
		w.WriteHeader(f.tokenStatus)
		_ = json.NewEncoder(w).Encode(f.tokenBody)
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gh-access", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(f.user)
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(f.emailsStatus)
		if f.emailsStatus == http.StatusOK {
			_ = json.NewEncoder(w).Encode(f.emails)
		}
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGitHub) adapter(t *testing.T) *GitHubAdapter {
	t.Helper()
	return NewGitHubAdapter(GitHubConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8001/api/v1/auth/oauth/github/callback",
		AuthURL:      f.server.URL + "/login/oauth/authorize",
		TokenURL:     f.server.URL + "/login/oauth/access_token",
		APIBaseURL:   f.server.URL,
	}, newTestClient(t))
}

// ---------------------------------------------------------------------------
// AuthCodeURL
// ---------------------------------------------------------------------------

func TestGitHubAdapter_AuthCodeURL(t *testing.T) {
	f := newFakeGitHub(t)
	a := f.adapter(t)

	raw := a.AuthCodeURL("opaque-state")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "opaque-state", q.Get("state"))
	assert.Equal(t, "read:user user:email", q.Get("scope"))
	assert.NotEmpty(t, q.Get("redirect_uri"))
}

// ---------------------------------------------------------------------------
// Exchange
// ---------------------------------------------------------------------------

func TestGitHubAdapter_Exchange(t *testing.T) {
	f := newFakeGitHub(t)
	a := f.adapter(t)

	token, err := a.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "gh-access", token.AccessToken)
}

func TestGitHubAdapter_Exchange_ProviderError(t *testing.T) {
	f := newFakeGitHub(t)
	// GitHub reports bad codes with a 200 and an error field.
	f.tokenBody = map[string]string{"error": "bad_verification_code"}
	a := f.adapter(t)

	_, err := a.Exchange(context.Background(), "expired-code")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// FetchProfile
// ---------------------------------------------------------------------------

func TestGitHubAdapter_FetchProfile(t *testing.T) {
	f := newFakeGitHub(t)
	a := f.adapter(t)

	profile, err := a.FetchProfile(context.Background(), &Token{AccessToken: "gh-access"})
	require.NoError(t, err)

	assert.Equal(t, "github", profile.Provider)
	assert.Equal(t, "4242", profile.ProviderID)
	assert.Equal(t, "octo@cat.example", profile.Email)
	assert.Equal(t, "octocat", profile.Username)
	assert.Equal(t, "https://avatars.example/octocat", profile.AvatarURL)
}

func TestGitHubAdapter_FetchProfile_PrimaryEmailLookup(t *testing.T) {
	f := newFakeGitHub(t)
	f.user["email"] = ""
	f.emails = []map[string]any{
		{"email": "old@cat.example", "primary": false, "verified": true},
		{"email": "primary@cat.example", "primary": true, "verified": true},
	}
	a := f.adapter(t)

	profile, err := a.FetchProfile(context.Background(), &Token{AccessToken: "gh-access"})
	require.NoError(t, err)
	assert.Equal(t, "primary@cat.example", profile.Email)
}

func TestGitHubAdapter_FetchProfile_PlaceholderEmail(t *testing.T) {
	f := newFakeGitHub(t)
	// No public email and the emails endpoint is forbidden: the profile must
	// still come back usable, with a synthesized address.
	f.user["email"] = ""
	f.emailsStatus = http.StatusForbidden
	a := f.adapter(t)

	profile, err := a.FetchProfile(context.Background(), &Token{AccessToken: "gh-access"})
	require.NoError(t, err)
	assert.Equal(t, "octocat@users.noreply.github.com", profile.Email)
}

func TestPlaceholderEmail(t *testing.T) {
	assert.Equal(t, "octocat@users.noreply.github.com", PlaceholderEmail("octocat", "github"))
	assert.Equal(t, "12345@users.noreply.google.com", PlaceholderEmail("12345", "google"))
}
