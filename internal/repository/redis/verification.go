package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clubcommerce/auth-service/internal/domain"
	apperrors "github.com/clubcommerce/auth-service/pkg/errors"
)

const keyPrefix = "verify:"

// claimScript atomically reads a verification entry and deletes it when it
// is still claimable (has a user id and has not exhausted its attempts).
// Unclaimable entries are left in place so the miss counter keeps its state.
// Returns {user_id, tries} or false when the key does not exist.
var claimScript = redis.NewScript(`
local vals = redis.call('HMGET', KEYS[1], 'user_id', 'tries')
if not vals[1] and not vals[2] then
  return false
end
local user_id = vals[1] or ''
local tries = tonumber(vals[2]) or 0
if user_id ~= '' and tries < tonumber(ARGV[1]) then
  redis.call('DEL', KEYS[1])
end
return {user_id, tries}
`)

// missScript increments the attempt counter for a token and destroys the
// entry once the cap is reached. A fresh counter gets the TTL in ARGV[2]
// (milliseconds) so probed tokens do not linger forever.
var missScript = redis.NewScript(`
local tries = redis.call('HINCRBY', KEYS[1], 'tries', 1)
if tries >= tonumber(ARGV[1]) then
  redis.call('DEL', KEYS[1])
elseif tries == 1 and redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return tries
`)

// VerificationRepository implements repository.VerificationRepository using
// Redis hashes keyed by verification token.
type VerificationRepository struct {
	client *redis.Client
}

// NewVerificationRepository creates a new Redis-backed verification registry.
func NewVerificationRepository(client *redis.Client) *VerificationRepository {
	return &VerificationRepository{client: client}
}

// Create stores a pending verification entry. The user_id field is set
// without touching an existing tries counter, so a token that already
// accumulated misses keeps its penalty.
func (r *VerificationRepository) Create(ctx context.Context, token, userID string, ttl time.Duration) error {
	key := keyPrefix + token

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, "user_id", userID)
	pipe.PExpire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis create verification entry: %w", err)
	}

	return nil
}

// Claim atomically fetches the entry for the token, deleting it when it is
// claimable. Returns ErrNotFound when no entry exists at all.
func (r *VerificationRepository) Claim(ctx context.Context, token string) (*domain.VerificationEntry, error) {
	key := keyPrefix + token

	res, err := claimScript.Run(ctx, r.client, []string{key}, domain.MaxVerificationAttempts).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("verification entry", token)
		}
		return nil, fmt.Errorf("redis claim verification entry: %w", err)
	}

	vals, ok := res.([]any)
	if !ok || len(vals) != 2 {
		return nil, fmt.Errorf("redis claim verification entry: unexpected reply %T", res)
	}

	entry := &domain.VerificationEntry{}
	if s, ok := vals[0].(string); ok {
		entry.UserID = s
	}
	switch v := vals[1].(type) {
	case int64:
		entry.Tries = int(v)
	case string:
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			return nil, fmt.Errorf("redis claim verification entry: bad tries value %q", v)
		}
		entry.Tries = n
	}

	return entry, nil
}

// RecordMiss counts a failed claim against the token. The entry is destroyed
// once the attempt cap is reached, making the token permanently dead.
func (r *VerificationRepository) RecordMiss(ctx context.Context, token string) error {
	key := keyPrefix + token
	ttlMillis := domain.VerificationTTL.Milliseconds()

	if err := missScript.Run(ctx, r.client, []string{key}, domain.MaxVerificationAttempts, ttlMillis).Err(); err != nil {
		return fmt.Errorf("redis record verification miss: %w", err)
	}

	return nil
}

// Delete removes the entry for the token, if any.
func (r *VerificationRepository) Delete(ctx context.Context, token string) error {
	key := keyPrefix + token

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del verification entry: %w", err)
	}

	return nil
}
