package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clubcommerce/auth-service/internal/auth"
	"github.com/clubcommerce/auth-service/internal/domain"
	"github.com/clubcommerce/auth-service/internal/event"
	"github.com/clubcommerce/auth-service/internal/repository"
	apperrors "github.com/clubcommerce/auth-service/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// invalidTokenMessage is the client-visible message for every verification
// failure except a stale user reference. Lookup miss, exhausted attempts and
// lost races all look identical so probing tokens reveals nothing about the
// attempt counter.
const invalidTokenMessage = "Invalid or expired token"

// AuthService implements registration, login, email verification and
// session token lifecycle.
type AuthService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	verificationRepo repository.VerificationRepository
	jwtManager       *auth.JWTManager
	producer         *event.Producer
	logger           *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	verificationRepo repository.VerificationRepository,
	jwtManager *auth.JWTManager,
	producer *event.Producer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		verificationRepo: verificationRepo,
		jwtManager:       jwtManager,
		producer:         producer,
		logger:           logger,
	}
}

// --- Input types ---

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// UpdateProfileInput holds the parameters for updating a user's profile.
type UpdateProfileInput struct {
	Username  *string
	AvatarURL *string
}

// --- Auth Operations ---

// Register creates a new unverified user account, stores a pending
// verification entry, and returns the user with a fresh token pair.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, *domain.TokenPair, error) {
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.Username == "" {
		return nil, nil, apperrors.InvalidInput("username is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:            uuid.New(),
		Email:         input.Email,
		Username:      input.Username,
		PasswordHash:  string(hashedPassword),
		Role:          domain.RoleCustomer,
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	tokens, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	if err := s.startVerification(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to start email verification",
			slog.String("user_id", user.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID.String()),
		slog.String("email", user.Email),
	)

	return user, tokens, nil
}

// Login authenticates a user with email and password, returning tokens.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.TokenPair, error) {
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	if !user.HasPassword() {
		// OAuth-only account.
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}

	tokens, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID.String()),
		slog.String("email", user.Email),
	)

	return user, tokens, nil
}

// VerifyEmail redeems a verification token. The registry entry is claimed
// atomically, so a token can be spent exactly once even under concurrent
// requests. Failed lookups count against the token's attempt budget; once
// the budget is exhausted the entry is destroyed for good.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*domain.User, *domain.TokenPair, error) {
	if token == "" {
		return nil, nil, apperrors.Unauthorized(invalidTokenMessage)
	}

	entry, err := s.verificationRepo.Claim(ctx, token)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.recordVerificationMiss(ctx, token)
			return nil, nil, apperrors.Unauthorized(invalidTokenMessage)
		}
		return nil, nil, fmt.Errorf("claim verification entry: %w", err)
	}

	if !entry.Claimable() {
		s.recordVerificationMiss(ctx, token)
		return nil, nil, apperrors.Unauthorized(invalidTokenMessage)
	}

	user, err := s.userRepo.GetByID(ctx, entry.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// The entry pointed at a user that no longer exists. This is a
			// data-integrity anomaly, not a bad credential.
			s.logger.WarnContext(ctx, "verification entry references unknown user",
				slog.String("user_id", entry.UserID),
			)
			return nil, nil, apperrors.InvalidInput("user for verification token no longer exists")
		}
		return nil, nil, fmt.Errorf("get user for verification: %w", err)
	}

	if err := s.userRepo.MarkEmailVerified(ctx, entry.UserID); err != nil {
		return nil, nil, fmt.Errorf("mark email verified: %w", err)
	}
	user.EmailVerified = true

	tokens, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	if err := s.producer.PublishUserVerified(ctx, entry.UserID, user.Email); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.verified event",
			slog.String("user_id", entry.UserID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "email verified",
		slog.String("user_id", entry.UserID),
		slog.String("email", user.Email),
	)

	return user, tokens, nil
}

// ResendVerification issues a fresh verification token for an unverified
// account. The response never reveals whether the email exists.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		s.logger.InfoContext(ctx, "verification resend requested for unknown email",
			slog.String("email", email),
		)
		return nil
	}

	if user.EmailVerified {
		s.logger.InfoContext(ctx, "verification resend requested for verified account",
			slog.String("user_id", user.ID.String()),
		)
		return nil
	}

	if err := s.startVerification(ctx, user); err != nil {
		return fmt.Errorf("start verification: %w", err)
	}

	s.logger.InfoContext(ctx, "verification email requested",
		slog.String("user_id", user.ID.String()),
		slog.String("email", user.Email),
	)

	return nil
}

// RefreshToken validates a refresh token, rotates it, and returns a new pair.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.InvalidInput("refresh token is required")
	}

	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	tokenHash := hashToken(refreshToken)
	storedToken, err := s.refreshTokenRepo.GetByHash(ctx, tokenHash)
	if err != nil {
		return nil, apperrors.Unauthorized("refresh token not found")
	}

	if storedToken.Revoked() {
		return nil, apperrors.Unauthorized("refresh token has been revoked")
	}

	if storedToken.Expired(time.Now().UTC()) {
		return nil, apperrors.Unauthorized("refresh token has expired")
	}

	// Rotation: the presented token is revoked before a new one is issued.
	if err := s.refreshTokenRepo.Revoke(ctx, tokenHash); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke old refresh token",
			slog.String("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user for token refresh: %w", err)
	}

	tokens, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "tokens refreshed",
		slog.String("user_id", user.ID.String()),
	)

	return tokens, nil
}

// Logout revokes the presented refresh token. Unknown tokens are ignored so
// logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	tokenHash := hashToken(refreshToken)
	if err := s.refreshTokenRepo.Revoke(ctx, tokenHash); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	return nil
}

// ChangePassword allows an authenticated user to change their password.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return apperrors.InvalidInput("current password is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if currentPassword == newPassword {
		return apperrors.InvalidInput("new password must be different from current password")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user for password change: %w", err)
	}

	if !user.HasPassword() {
		return apperrors.InvalidInput("account has no password; it uses an external login provider")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	user.PasswordHash = string(hashedPassword)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	// Force re-login everywhere.
	if err := s.refreshTokenRepo.RevokeByUserID(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke refresh tokens after password change",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishUserPasswordReset(ctx, userID, user.Email); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_reset event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("user_id", userID),
	)

	return nil
}

// --- Profile Operations ---

// GetProfile retrieves a user by their ID.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return user, nil
}

// UpdateProfile updates a user's profile fields.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	if input.Username != nil {
		if *input.Username == "" {
			return nil, apperrors.InvalidInput("username must not be empty")
		}
		user.Username = *input.Username
	}

	if input.AvatarURL != nil {
		user.AvatarURL = *input.AvatarURL
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.InfoContext(ctx, "user profile updated",
		slog.String("user_id", userID),
	)

	return user, nil
}

// --- Helpers ---

// startVerification creates a registry entry for a fresh token and notifies
// the mailer via Kafka.
func (s *AuthService) startVerification(ctx context.Context, user *domain.User) error {
	token, err := domain.NewVerificationToken()
	if err != nil {
		return err
	}

	if err := s.verificationRepo.Create(ctx, token, user.ID.String(), domain.VerificationTTL); err != nil {
		return fmt.Errorf("create verification entry: %w", err)
	}

	if err := s.producer.PublishVerificationRequested(ctx, user.ID.String(), user.Email, token); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.verification_requested event",
			slog.String("user_id", user.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// recordVerificationMiss charges a failed attempt against the token.
func (s *AuthService) recordVerificationMiss(ctx context.Context, token string) {
	if err := s.verificationRepo.RecordMiss(ctx, token); err != nil {
		s.logger.ErrorContext(ctx, "failed to record verification miss",
			slog.String("error", err.Error()),
		)
	}
}

// generateTokenPair creates an access/refresh token pair and stores the refresh token hash.
func (s *AuthService) generateTokenPair(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	return issueTokenPair(ctx, s.jwtManager, s.refreshTokenRepo, user)
}

// issueTokenPair signs an access/refresh pair for the user and persists the
// refresh token hash. Shared by password and OAuth login paths.
func issueTokenPair(ctx context.Context, jm *auth.JWTManager, tokenRepo repository.RefreshTokenRepository, user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := jm.GenerateAccessToken(user.ID.String(), user.Email, user.Role.String())
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := jm.GenerateRefreshToken(user.ID.String())
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	tokenHash := hashToken(refreshToken)
	refreshClaims, err := jm.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("validate refresh token for expiry: %w", err)
	}

	if err := tokenRepo.Create(ctx, user.ID.String(), tokenHash, refreshClaims.ExpiresAt.Time); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(jm.AccessExpiry().Seconds()),
	}, nil
}

// hashToken returns the SHA256 hex digest of the given token string.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// validatePassword checks that the password meets minimum complexity requirements.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
