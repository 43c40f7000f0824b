package session

import (
	"net/url"
	"strings"
)

// RedirectBuilder assembles front-end callback URLs for the OAuth flow.
// Success and failure both land on the same front-end route; failures carry
// error and error_description query parameters. A non-empty redirectURL is
// passed through as a redirect_url parameter so the front end can resume
// where the user left off.
type RedirectBuilder struct {
	baseURL      string
	callbackPath string
}

// NewRedirectBuilder creates a builder targeting the given front-end origin.
func NewRedirectBuilder(frontendBaseURL, callbackPath string) *RedirectBuilder {
	return &RedirectBuilder{
		baseURL:      strings.TrimRight(frontendBaseURL, "/"),
		callbackPath: callbackPath,
	}
}

// Success returns the front-end URL for a completed OAuth login.
func (b *RedirectBuilder) Success(provider, redirectURL string) string {
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("status", "success")
	if redirectURL != "" {
		q.Set("redirect_url", redirectURL)
	}
	return b.baseURL + b.callbackPath + "?" + q.Encode()
}

// Failure returns the front-end URL carrying an error code and description.
func (b *RedirectBuilder) Failure(provider, code, description, redirectURL string) string {
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("error", code)
	if description != "" {
		q.Set("error_description", description)
	}
	if redirectURL != "" {
		q.Set("redirect_url", redirectURL)
	}
	return b.baseURL + b.callbackPath + "?" + q.Encode()
}
