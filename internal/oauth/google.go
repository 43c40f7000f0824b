package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/clubcommerce/auth-service/pkg/errors"
	"github.com/clubcommerce/auth-service/pkg/httpclient"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleConfig holds credentials and endpoint overrides for the Google adapter.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
}

// GoogleAdapter implements ProviderAdapter for Google OAuth clients.
type GoogleAdapter struct {
	cfg    GoogleConfig
	client *httpclient.CircuitBreakerClient
}

// NewGoogleAdapter creates a Google adapter. Empty endpoint fields fall back
// to the public Google endpoints.
func NewGoogleAdapter(cfg GoogleConfig, client *httpclient.CircuitBreakerClient) *GoogleAdapter {
	if cfg.AuthURL == "" {
		cfg.AuthURL = googleAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = googleTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = googleUserInfoURL
	}
	return &GoogleAdapter{cfg: cfg, client: client}
}

// Name returns "google".
func (a *GoogleAdapter) Name() string { return "google" }

// AuthCodeURL builds the Google authorize URL for the given state.
func (a *GoogleAdapter) AuthCodeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", a.cfg.ClientID)
	q.Set("redirect_uri", a.cfg.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("access_type", "offline")
	q.Set("state", state)
	return a.cfg.AuthURL + "?" + q.Encode()
}

// Exchange trades an authorization code for Google tokens.
func (a *GoogleAdapter) Exchange(ctx context.Context, code string) (*Token, error) {
	form := url.Values{}
	form.Set("client_id", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", a.cfg.RedirectURL)
	form.Set("grant_type", "authorization_code")

	resp, err := a.client.PostForm(ctx, a.cfg.TokenURL, form)
	if err != nil {
		return nil, fmt.Errorf("google token exchange: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Unauthorized(fmt.Sprintf("google token exchange returned status %d", resp.StatusCode))
	}

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode google token response: %w", err)
	}
	if body.AccessToken == "" {
		return nil, apperrors.Unauthorized("google token exchange returned no access token")
	}

	return &Token{AccessToken: body.AccessToken, RefreshToken: body.RefreshToken}, nil
}

// FetchProfile retrieves the Google userinfo profile. Google accounts
// normally always carry an email; a placeholder is synthesized for the
// rare profile without one.
func (a *GoogleAdapter) FetchProfile(ctx context.Context, token *Token) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.UserInfoURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := a.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch google profile: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo returned status %d", resp.StatusCode)
	}

	var gUser struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&gUser); err != nil {
		return nil, fmt.Errorf("decode google userinfo: %w", err)
	}

	username := gUser.Email
	if i := strings.IndexByte(username, '@'); i > 0 {
		username = username[:i]
	}
	if username == "" {
		username = gUser.ID
	}

	email := gUser.Email
	if email == "" {
		email = PlaceholderEmail(username, a.Name())
	}

	return &Profile{
		Provider:     a.Name(),
		ProviderID:   gUser.ID,
		Email:        email,
		Name:         gUser.Name,
		Username:     username,
		AvatarURL:    gUser.Picture,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}, nil
}
