package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GwangCheonLee/authcore/internal/token"
	apperrors "github.com/GwangCheonLee/authcore/pkg/errors"
)

// DefaultOpTimeout bounds every registry call against the store.
const DefaultOpTimeout = 2 * time.Second

// KV is the narrow slice of Redis commands the registry uses. *redis.Client
// satisfies it; tests substitute a fake.
type KV interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Registry stores one active session entry per (user, token type) in Redis.
// Recording a new token unconditionally overwrites the previous entry, which
// is what revokes the prior session: its token no longer matches the stored
// hash. Entries expire with the token, so the registry never outlives it.
type Registry struct {
	kv        KV
	opTimeout time.Duration
}

// NewRegistry creates a session registry. A non-positive opTimeout falls back
// to DefaultOpTimeout.
func NewRegistry(kv KV, opTimeout time.Duration) *Registry {
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}
	return &Registry{kv: kv, opTimeout: opTimeout}
}

// Record stores the sha256 hash of the token under the (user, type) key with
// the given TTL, overwriting any previous entry. Store failures surface as
// StoreUnavailable: when session limiting is on, sign-in must not succeed
// without a registry entry.
func (r *Registry) Record(ctx context.Context, userID int64, typ token.Type, tokenString string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	if err := r.kv.Set(ctx, sessionKey(userID, typ), hashToken(tokenString), ttl).Err(); err != nil {
		return apperrors.StoreUnavailable(fmt.Errorf("record session: %w", err))
	}
	return nil
}

// Check verifies that the token is the registered one for (user, type).
// A missing entry or a hash mismatch returns the generic Unauthorized, the
// same error a wrong password produces. Store failures surface as
// StoreUnavailable; the caller never falls back to signature-only checks.
func (r *Registry) Check(ctx context.Context, userID int64, typ token.Type, tokenString string) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	stored, err := r.kv.Get(ctx, sessionKey(userID, typ)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return apperrors.Unauthorized()
		}
		return apperrors.StoreUnavailable(fmt.Errorf("check session: %w", err))
	}

	if stored != hashToken(tokenString) {
		return apperrors.Unauthorized()
	}
	return nil
}

// Clear removes both session entries for the user. Used when an account is
// deactivated.
func (r *Registry) Clear(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	err := r.kv.Del(ctx, sessionKey(userID, token.TypeAccess), sessionKey(userID, token.TypeRefresh)).Err()
	if err != nil {
		return apperrors.StoreUnavailable(fmt.Errorf("clear sessions: %w", err))
	}
	return nil
}

// sessionKey builds the Redis key for a (user, token type) pair.
func sessionKey(userID int64, typ token.Type) string {
	if typ == token.TypeRefresh {
		return fmt.Sprintf("user:%d:hashedRefreshToken", userID)
	}
	return fmt.Sprintf("user:%d:hashedAccessToken", userID)
}

// hashToken returns the SHA256 hex digest of the given token string. JWTs
// exceed bcrypt's input limit, and the registry needs deterministic hashes
// for equality checks anyway.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
