package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	apperrors "github.com/clubcommerce/auth-service/pkg/errors"
	"github.com/clubcommerce/auth-service/pkg/httpclient"
)

const (
	githubAuthURL  = "https://github.com/login/oauth/authorize"
	githubTokenURL = "https://github.com/login/oauth/access_token"
	githubAPIURL   = "https://api.github.com"
)

// GitHubConfig holds credentials and endpoint overrides for the GitHub adapter.
// The endpoint fields default to the public GitHub URLs and exist so tests
// can point the adapter at a local server.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string
}

// GitHubAdapter implements ProviderAdapter for GitHub OAuth apps.
type GitHubAdapter struct {
	cfg    GitHubConfig
	client *httpclient.CircuitBreakerClient
}

// NewGitHubAdapter creates a GitHub adapter. Empty endpoint fields fall back
// to the public GitHub endpoints.
func NewGitHubAdapter(cfg GitHubConfig, client *httpclient.CircuitBreakerClient) *GitHubAdapter {
	if cfg.AuthURL == "" {
		cfg.AuthURL = githubAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = githubTokenURL
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = githubAPIURL
	}
	return &GitHubAdapter{cfg: cfg, client: client}
}

// Name returns "github".
func (a *GitHubAdapter) Name() string { return "github" }

// AuthCodeURL builds the GitHub authorize URL for the given state.
func (a *GitHubAdapter) AuthCodeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", a.cfg.ClientID)
	q.Set("redirect_uri", a.cfg.RedirectURL)
	q.Set("scope", "read:user user:email")
	q.Set("state", state)
	return a.cfg.AuthURL + "?" + q.Encode()
}

// Exchange trades an authorization code for an access token.
func (a *GitHubAdapter) Exchange(ctx context.Context, code string) (*Token, error) {
	form := url.Values{}
	form.Set("client_id", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", a.cfg.RedirectURL)

	resp, err := a.client.PostForm(ctx, a.cfg.TokenURL, form)
	if err != nil {
		return nil, fmt.Errorf("github token exchange: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Unauthorized(fmt.Sprintf("github token exchange returned status %d", resp.StatusCode))
	}

	var body struct {
		AccessToken      string `json:"access_token"`
		RefreshToken     string `json:"refresh_token"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode github token response: %w", err)
	}
	if body.Error != "" {
		return nil, apperrors.Unauthorized(fmt.Sprintf("github token exchange failed: %s", body.Error))
	}
	if body.AccessToken == "" {
		return nil, apperrors.Unauthorized("github token exchange returned no access token")
	}

	return &Token{AccessToken: body.AccessToken, RefreshToken: body.RefreshToken}, nil
}

// FetchProfile retrieves the GitHub user profile. When the profile carries
// no public email, the /user/emails endpoint is tried; if that also yields
// nothing, a placeholder address is synthesized from the login.
func (a *GitHubAdapter) FetchProfile(ctx context.Context, token *Token) (*Profile, error) {
	var ghUser struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := a.getJSON(ctx, a.cfg.APIBaseURL+"/user", token.AccessToken, &ghUser); err != nil {
		return nil, fmt.Errorf("fetch github profile: %w", err)
	}

	email := ghUser.Email
	if email == "" {
		email = a.lookupPrimaryEmail(ctx, token.AccessToken)
	}
	if email == "" {
		email = PlaceholderEmail(ghUser.Login, a.Name())
	}

	name := ghUser.Name
	if name == "" {
		name = ghUser.Login
	}

	return &Profile{
		Provider:     a.Name(),
		ProviderID:   strconv.FormatInt(ghUser.ID, 10),
		Email:        email,
		Name:         name,
		Username:     ghUser.Login,
		AvatarURL:    ghUser.AvatarURL,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}, nil
}

// lookupPrimaryEmail queries /user/emails for a verified primary address.
// Failures are swallowed: the caller falls back to a placeholder.
func (a *GitHubAdapter) lookupPrimaryEmail(ctx context.Context, accessToken string) string {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := a.getJSON(ctx, a.cfg.APIBaseURL+"/user/emails", accessToken, &emails); err != nil {
		return ""
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	return ""
}

func (a *GitHubAdapter) getJSON(ctx context.Context, endpoint, accessToken string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := a.client.Do(ctx, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github api %s returned status %d", endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(target); err != nil {
		return fmt.Errorf("decode github response: %w", err)
	}
	return nil
}
