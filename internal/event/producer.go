package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clubcommerce/auth-service/internal/domain"
	pkgkafka "github.com/clubcommerce/auth-service/pkg/kafka"
)

// Kafka topic constants for user domain events.
const (
	TopicUserRegistered            = "club.user.registered"
	TopicUserVerified              = "club.user.verified"
	TopicUserVerificationRequested = "club.user.verification_requested"
	TopicUserPasswordReset         = "club.user.password_reset"
)

// Aggregate type constant.
const AggregateTypeUser = "user"

// Source identifier for events originating from this service.
const SourceAuthService = "auth-service"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Provider string `json:"provider,omitempty"`
}

// UserVerifiedData is the payload for a user.verified event.
type UserVerifiedData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// VerificationRequestedData is the payload for a user.verification_requested
// event. The notification service builds the verification link from the token.
type VerificationRequestedData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

// UserPasswordResetData is the payload for a user.password_reset event.
type UserPasswordResetData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Producer publishes user domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the auth service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:       user.ID.String(),
		Email:    user.Email,
		Username: user.Username,
		Role:     user.Role.String(),
		Provider: user.OAuthProvider,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, data.ID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", data.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// PublishUserVerified publishes a user.verified event.
func (p *Producer) PublishUserVerified(ctx context.Context, userID, email string) error {
	data := UserVerifiedData{
		UserID: userID,
		Email:  email,
	}

	event, err := pkgkafka.NewEvent(TopicUserVerified, userID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create user.verified event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserVerified, event); err != nil {
		return fmt.Errorf("publish user.verified event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.verified event",
		slog.String("user_id", userID),
	)

	return nil
}

// PublishVerificationRequested publishes a user.verification_requested event.
func (p *Producer) PublishVerificationRequested(ctx context.Context, userID, email, token string) error {
	data := VerificationRequestedData{
		UserID: userID,
		Email:  email,
		Token:  token,
	}

	event, err := pkgkafka.NewEvent(TopicUserVerificationRequested, userID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create user.verification_requested event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserVerificationRequested, event); err != nil {
		return fmt.Errorf("publish user.verification_requested event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.verification_requested event",
		slog.String("user_id", userID),
		slog.String("email", email),
	)

	return nil
}

// PublishUserPasswordReset publishes a user.password_reset event.
func (p *Producer) PublishUserPasswordReset(ctx context.Context, userID, email string) error {
	data := UserPasswordResetData{
		UserID: userID,
		Email:  email,
	}

	event, err := pkgkafka.NewEvent(TopicUserPasswordReset, userID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create user.password_reset event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserPasswordReset, event); err != nil {
		return fmt.Errorf("publish user.password_reset event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.password_reset event",
		slog.String("user_id", userID),
		slog.String("email", email),
	)

	return nil
}
