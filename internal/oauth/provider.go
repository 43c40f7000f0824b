package oauth

import (
	"context"
	"fmt"
)

// Token holds the credentials returned by a provider's token endpoint.
type Token struct {
	AccessToken  string
	RefreshToken string
}

// Profile is the canonical identity shape extracted from a provider's
// profile API. Email is always non-empty: when the provider supplies no
// usable address, a placeholder is synthesized instead.
type Profile struct {
	Provider     string
	ProviderID   string
	Email        string
	Name         string
	Username     string
	AvatarURL    string
	AccessToken  string
	RefreshToken string
}

// ProviderAdapter abstracts a third-party identity provider. Each adapter
// knows how to build the authorize URL, exchange an authorization code for
// tokens, and fetch the user profile.
type ProviderAdapter interface {
	// Name returns the provider identifier ("github", "google").
	Name() string

	// AuthCodeURL builds the provider authorize URL carrying the given
	// opaque state value.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for provider tokens.
	Exchange(ctx context.Context, code string) (*Token, error)

	// FetchProfile retrieves the user profile using the access token.
	FetchProfile(ctx context.Context, token *Token) (*Profile, error)
}

// PlaceholderEmail synthesizes a non-contactable but syntactically valid
// address for profiles whose provider exposes no email.
func PlaceholderEmail(username, provider string) string {
	return fmt.Sprintf("%s@users.noreply.%s.com", username, provider)
}
