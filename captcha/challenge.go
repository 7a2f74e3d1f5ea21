package captcha

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lgcovizzi/authcore/internal"
)

var ErrUnavailable = errors.New("captcha store unavailable")

// DefaultAlphabet omits visually ambiguous characters (0/O, 1/I/L).
const DefaultAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const captchaKeyPrefix = "captcha"

// Challenge is a freshly generated captcha. Text is handed to the caller
// exactly once, for rendering; it is never stored in clear.
type Challenge struct {
	ID   string
	Text string
}

// Renderer turns challenge text into a user-facing artifact such as a PNG.
// Implementations live with the presentation layer.
type Renderer interface {
	Render(text string) (data []byte, contentType string, err error)
}

// Config controls challenge shape and lifetime.
type Config struct {
	// TTL bounds how long an unanswered challenge stays valid.
	TTL time.Duration

	// Length is the number of characters in the challenge text.
	Length int

	// Alphabet is the character set challenges are drawn from. Empty uses
	// DefaultAlphabet.
	Alphabet string
}

// DefaultConfig matches production: five characters, ten minute lifetime.
func DefaultConfig() Config {
	return Config{
		TTL:      10 * time.Minute,
		Length:   5,
		Alphabet: DefaultAlphabet,
	}
}

// Service generates and validates challenges against Redis.
type Service struct {
	redis  redis.UniversalClient
	config Config
}

// NewService validates cfg and binds the service to a Redis client.
func NewService(client redis.UniversalClient, cfg Config) (*Service, error) {
	if client == nil {
		return nil, errors.New("captcha: redis client is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("captcha: ttl must be positive")
	}
	if cfg.Length <= 0 {
		return nil, errors.New("captcha: length must be positive")
	}
	if cfg.Alphabet == "" {
		cfg.Alphabet = DefaultAlphabet
	}
	if len(cfg.Alphabet) < 2 {
		return nil, errors.New("captcha: alphabet too small")
	}
	return &Service{redis: client, config: cfg}, nil
}

// Generate creates a new challenge and stores its answer digest.
func (s *Service) Generate(ctx context.Context) (Challenge, error) {
	id, err := internal.NewOpaqueToken(internal.ChallengeIDBytes)
	if err != nil {
		return Challenge{}, fmt.Errorf("captcha: generate id: %w", err)
	}

	text, err := internal.NewChallengeText(s.config.Alphabet, s.config.Length)
	if err != nil {
		return Challenge{}, fmt.Errorf("captcha: generate text: %w", err)
	}

	if err := s.redis.Set(ctx, s.key(id), answerDigest(text), s.config.TTL).Err(); err != nil {
		return Challenge{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return Challenge{ID: id, Text: text}, nil
}

// Validate checks answer against the stored digest. A correct answer
// consumes the challenge; a wrong one leaves it untouched. Unknown or
// expired IDs report false without error.
func (s *Service) Validate(ctx context.Context, id, answer string) (bool, error) {
	if id == "" || answer == "" {
		return false, nil
	}

	stored, err := s.redis.Get(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	provided := answerDigest(answer)
	if subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) != 1 {
		return false, nil
	}

	// Single use. The delete races with a concurrent identical answer, but
	// both saw a valid challenge before expiry, so accepting either is fine.
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return true, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return true, nil
}

// Exists reports whether the challenge is still pending.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	n, err := s.redis.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// Invalidate discards a pending challenge regardless of its answer.
func (s *Service) Invalidate(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *Service) key(id string) string {
	return captchaKeyPrefix + ":" + id
}

func answerDigest(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
