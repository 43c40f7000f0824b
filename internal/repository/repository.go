package repository

import (
	"context"
	"time"

	"github.com/clubcommerce/auth-service/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByOAuth retrieves a user by OAuth provider and provider-side ID.
	GetByOAuth(ctx context.Context, provider, oauthID string) (*domain.User, error)

	// Update modifies an existing user in the store.
	Update(ctx context.Context, user *domain.User) error

	// MarkEmailVerified sets the email_verified flag for the user.
	MarkEmailVerified(ctx context.Context, id string) error

	// Delete removes a user from the store by their identifier.
	Delete(ctx context.Context, id string) error
}

// RefreshTokenRepository defines the interface for refresh token persistence operations.
type RefreshTokenRepository interface {
	// Create stores a new refresh token hash.
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// GetByHash retrieves a refresh token record by its hash.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// RevokeByUserID revokes all refresh tokens for the given user.
	RevokeByUserID(ctx context.Context, userID string) error

	// Revoke revokes a specific refresh token by its hash.
	Revoke(ctx context.Context, tokenHash string) error
}

// VerificationRepository defines the interface for the pending email
// verification registry.
type VerificationRepository interface {
	// Create stores a pending verification entry for the token with the
	// given time-to-live.
	Create(ctx context.Context, token, userID string, ttl time.Duration) error

	// Claim atomically fetches and deletes the entry for the token. It
	// returns ErrNotFound when no entry exists; a returned entry may still
	// be unclaimable if its attempt budget is exhausted.
	Claim(ctx context.Context, token string) (*domain.VerificationEntry, error)

	// RecordMiss counts a failed claim attempt against the token and
	// destroys the entry once the attempt cap is reached.
	RecordMiss(ctx context.Context, token string) error

	// Delete removes the entry for the token, if any.
	Delete(ctx context.Context, token string) error
}
