package authcore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lgcovizzi/authcore/internal"
)

const (
	resetKeyPrefix  = "pwreset"
	verifyKeyPrefix = "verify"
)

// opaqueTokenStore maps the digest of a single-use opaque token to a
// principal ID with a TTL. The raw token travels only in the outbound
// mail; Redis sees its SHA-256.
type opaqueTokenStore struct {
	redis  redis.UniversalClient
	prefix string
}

func newOpaqueTokenStore(client redis.UniversalClient, prefix string) *opaqueTokenStore {
	return &opaqueTokenStore{redis: client, prefix: prefix}
}

func (s *opaqueTokenStore) key(rawToken string) string {
	return s.prefix + ":" + internal.HashSHA256Hex(rawToken)
}

// Issue mints an opaque token for the principal and stores its digest.
func (s *opaqueTokenStore) Issue(ctx context.Context, principalID uint64, ttl time.Duration) (string, error) {
	raw, err := internal.NewOpaqueToken(internal.ChallengeIDBytes)
	if err != nil {
		return "", fmt.Errorf("issue opaque token: %w", err)
	}

	value := strconv.FormatUint(principalID, 10)
	if err := s.redis.Set(ctx, s.key(raw), value, ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return raw, nil
}

// Consume resolves and deletes the token in one step. GETDEL makes the
// single-use guarantee atomic; two concurrent confirmations cannot both
// succeed.
func (s *opaqueTokenStore) Consume(ctx context.Context, rawToken string) (uint64, error) {
	if rawToken == "" {
		return 0, redis.Nil
	}

	value, err := s.redis.GetDel(ctx, s.key(rawToken)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: corrupt principal id %q", ErrStoreUnavailable, value)
	}
	return id, nil
}
