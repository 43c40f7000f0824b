package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clubcommerce/auth-service/internal/auth"
	"github.com/clubcommerce/auth-service/internal/domain"
	"github.com/clubcommerce/auth-service/internal/event"
	"github.com/clubcommerce/auth-service/internal/oauth"
	"github.com/clubcommerce/auth-service/internal/repository"
	apperrors "github.com/clubcommerce/auth-service/pkg/errors"
)

// OAuthService bridges external identity providers to local accounts. It
// resolves a provider callback to a user record (create-or-link) and issues
// the same session tokens as a password login.
type OAuthService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	jwtManager       *auth.JWTManager
	producer         *event.Producer
	adapters         map[string]oauth.ProviderAdapter
	state            *oauth.StateManager
	logger           *slog.Logger
}

// NewOAuthService creates a new OAuth bridge service for the given adapters.
func NewOAuthService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	jwtManager *auth.JWTManager,
	producer *event.Producer,
	adapters []oauth.ProviderAdapter,
	state *oauth.StateManager,
	logger *slog.Logger,
) *OAuthService {
	byName := make(map[string]oauth.ProviderAdapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}
	return &OAuthService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		jwtManager:       jwtManager,
		producer:         producer,
		adapters:         byName,
		state:            state,
		logger:           logger,
	}
}

// BeginFlow issues a signed state value and returns the provider authorize
// URL the client should be redirected to. A non-empty redirectURL rides
// inside the state and resurfaces on the front-end callback after login.
func (s *OAuthService) BeginFlow(ctx context.Context, provider, redirectURL string) (string, error) {
	adapter, ok := s.adapters[provider]
	if !ok {
		return "", apperrors.NotFound("oauth provider", provider)
	}

	state, err := s.state.Issue(redirectURL)
	if err != nil {
		return "", fmt.Errorf("issue oauth state: %w", err)
	}

	return adapter.AuthCodeURL(state), nil
}

// RedirectTarget recovers the redirect target embedded in a state value.
// Returns "" for a missing, tampered, or expired state so error redirects
// never honor an unauthenticated target.
func (s *OAuthService) RedirectTarget(state string) string {
	redirectURL, err := s.state.Verify(state)
	if err != nil {
		return ""
	}
	return redirectURL
}

// HandleCallback completes the OAuth flow: verifies state, exchanges the
// code, fetches the profile, resolves or creates the local user, and issues
// session tokens. The third return value is the redirect target carried in
// the state; it is only non-empty when the state verified.
func (s *OAuthService) HandleCallback(ctx context.Context, provider, code, state string) (*domain.User, *domain.TokenPair, string, error) {
	adapter, ok := s.adapters[provider]
	if !ok {
		return nil, nil, "", apperrors.NotFound("oauth provider", provider)
	}

	redirectURL, err := s.state.Verify(state)
	if err != nil {
		return nil, nil, "", apperrors.Unauthorized("invalid oauth state")
	}
	if code == "" {
		return nil, nil, redirectURL, apperrors.Unauthorized("missing authorization code")
	}

	token, err := adapter.Exchange(ctx, code)
	if err != nil {
		return nil, nil, redirectURL, fmt.Errorf("exchange authorization code: %w", err)
	}

	profile, err := adapter.FetchProfile(ctx, token)
	if err != nil {
		return nil, nil, redirectURL, fmt.Errorf("fetch provider profile: %w", err)
	}

	user, err := s.resolveUser(ctx, profile)
	if err != nil {
		return nil, nil, redirectURL, err
	}

	tokens, err := issueTokenPair(ctx, s.jwtManager, s.refreshTokenRepo, user)
	if err != nil {
		return nil, nil, redirectURL, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "oauth login completed",
		slog.String("provider", provider),
		slog.String("user_id", user.ID.String()),
	)

	return user, tokens, redirectURL, nil
}

// resolveUser maps a provider profile to a local account. Match order:
// provider+providerId, then email (linking the provider to an existing
// account), then a fresh account. Accounts created here are marked verified
// since the provider already attests the identity.
func (s *OAuthService) resolveUser(ctx context.Context, profile *oauth.Profile) (*domain.User, error) {
	user, err := s.userRepo.GetByOAuth(ctx, profile.Provider, profile.ProviderID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("lookup user by oauth identity: %w", err)
	}

	user, err = s.userRepo.GetByEmail(ctx, profile.Email)
	if err == nil {
		// Link the provider identity to the existing account.
		user.OAuthProvider = profile.Provider
		user.OAuthID = profile.ProviderID
		if user.AvatarURL == "" {
			user.AvatarURL = profile.AvatarURL
		}
		if updateErr := s.userRepo.Update(ctx, user); updateErr != nil {
			return nil, fmt.Errorf("link oauth identity: %w", updateErr)
		}

		s.logger.InfoContext(ctx, "oauth identity linked to existing account",
			slog.String("provider", profile.Provider),
			slog.String("user_id", user.ID.String()),
		)
		return user, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}

	now := time.Now().UTC()
	user = &domain.User{
		ID:            uuid.New(),
		Email:         profile.Email,
		Username:      profile.Username,
		Role:          domain.RoleCustomer,
		EmailVerified: true,
		OAuthProvider: profile.Provider,
		OAuthID:       profile.ProviderID,
		AvatarURL:     profile.AvatarURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create oauth user: %w", err)
	}

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "oauth account created",
		slog.String("provider", profile.Provider),
		slog.String("user_id", user.ID.String()),
	)

	return user, nil
}
