package revocation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lgcovizzi/authcore/internal"
	"github.com/lgcovizzi/authcore/token"
)

var (
	ErrUnavailable  = errors.New("revocation store unavailable")
	ErrUnverifiable = errors.New("token cannot be verified for revocation")
)

const (
	tokenKeyPrefix     = "revoked:token"
	principalKeyPrefix = "revoked:principal"
)

// Config tunes registry lifetimes.
type Config struct {
	// PrincipalCutoffTTL bounds how long a global cutoff is remembered.
	// Must cover the longest credential lifetime still in flight.
	PrincipalCutoffTTL time.Duration

	// Now is the clock. Nil uses time.Now.
	Now func() time.Time
}

// DefaultConfig keeps principal cutoffs for thirty days.
func DefaultConfig() Config {
	return Config{PrincipalCutoffTTL: 30 * 24 * time.Hour}
}

// Registry records revoked tokens and per-principal cutoffs in Redis.
type Registry struct {
	redis  redis.UniversalClient
	tokens *token.Manager
	config Config
	now    func() time.Time
}

// NewRegistry binds the registry to a Redis client and the token manager
// used to read expiry and jti claims out of revoked tokens.
func NewRegistry(client redis.UniversalClient, tokens *token.Manager, cfg Config) (*Registry, error) {
	if client == nil {
		return nil, errors.New("revocation: redis client is required")
	}
	if tokens == nil {
		return nil, errors.New("revocation: token manager is required")
	}
	if cfg.PrincipalCutoffTTL <= 0 {
		return nil, errors.New("revocation: principal cutoff ttl must be positive")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{redis: client, tokens: tokens, config: cfg, now: now}, nil
}

// Revoke blacklists a single token for the remainder of its lifetime.
// Returns false without error when the token has already expired, since an
// expired token needs no blacklist entry. The signature must verify; a
// token this service never signed cannot be revoked here.
func (r *Registry) Revoke(ctx context.Context, tokenStr string) (bool, error) {
	claims, err := r.tokens.ParseExpired(tokenStr)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnverifiable, err)
	}
	if claims.ExpiresAt == nil {
		return false, fmt.Errorf("%w: missing expiry", ErrUnverifiable)
	}

	remaining := claims.ExpiresAt.Time.Sub(r.now())
	if remaining <= 0 {
		return false, nil
	}

	key := r.entryKey(claims.ID, tokenStr)
	if err := r.redis.Set(ctx, key, "1", remaining).Err(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return true, nil
}

// IsRevoked reports whether the token sits on the blacklist. Store errors
// report false alongside the wrapped error; the caller logs and the
// remaining validation layers decide.
func (r *Registry) IsRevoked(ctx context.Context, tokenStr string) (bool, error) {
	claims, err := r.tokens.ParseExpired(tokenStr)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnverifiable, err)
	}

	n, err := r.redis.Exists(ctx, r.entryKey(claims.ID, tokenStr)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// Remove lifts a blacklist entry before its natural expiry.
func (r *Registry) Remove(ctx context.Context, tokenStr string) error {
	claims, err := r.tokens.ParseExpired(tokenStr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnverifiable, err)
	}
	if err := r.redis.Del(ctx, r.entryKey(claims.ID, tokenStr)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// RevokeAllForPrincipal stamps a cutoff for the principal. Every token
// issued at or before this instant is dead regardless of its own expiry.
func (r *Registry) RevokeAllForPrincipal(ctx context.Context, principalID uint64) error {
	cutoff := strconv.FormatInt(r.now().UnixMilli(), 10)
	key := principalKey(principalID)
	if err := r.redis.Set(ctx, key, cutoff, r.config.PrincipalCutoffTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsGloballyRevoked reports whether a token issued at issuedAt for the
// principal falls under an active cutoff. Fails open on store errors.
func (r *Registry) IsGloballyRevoked(ctx context.Context, principalID uint64, issuedAt time.Time) (bool, error) {
	raw, err := r.redis.Get(ctx, principalKey(principalID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	cutoffMillis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("%w: corrupt cutoff %q", ErrUnavailable, raw)
	}

	// Inclusive on the boundary: a token minted in the same millisecond as
	// the cutoff is treated as revoked.
	return issuedAt.UnixMilli() <= cutoffMillis, nil
}

// ClearPrincipalCutoff lifts an active cutoff, for administrative undo.
func (r *Registry) ClearPrincipalCutoff(ctx context.Context, principalID uint64) error {
	if err := r.redis.Del(ctx, principalKey(principalID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// entryKey prefers the embedded jti. Tokens without one fall back to a
// digest of the full compact form, which pins the entry to that exact
// serialization rather than the logical token.
func (r *Registry) entryKey(jti, tokenStr string) string {
	if jti != "" {
		return tokenKeyPrefix + ":" + jti
	}
	return tokenKeyPrefix + ":sha256:" + internal.HashSHA256Hex(tokenStr)
}

func principalKey(id uint64) string {
	return principalKeyPrefix + ":" + strconv.FormatUint(id, 10)
}
