package attempt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrUnavailable    = errors.New("attempt store unavailable")
	ErrUnknownPurpose = errors.New("unknown attempt purpose")
)

const (
	attemptKeyPrefix = "attempts"
	captchaFlagKey   = "captcha_required"
	resetRateKey     = "reset_rate"
)

// Config controls threshold and window behavior for a Tracker.
type Config struct {
	// Threshold is the failure count at which captcha becomes required.
	Threshold int64

	// Window is the sliding expiry applied to the counter on every failure.
	Window time.Duration

	// CaptchaFlagTTL bounds how long the captcha requirement outlives the
	// failure that raised it. Zero falls back to Window.
	CaptchaFlagTTL time.Duration

	// ResetRequestInterval is the minimum gap between password reset
	// requests for one identifier.
	ResetRequestInterval time.Duration
}

// DefaultConfig mirrors the production thresholds: five failures inside a
// thirty minute window, one reset request per minute.
func DefaultConfig() Config {
	return Config{
		Threshold:            5,
		Window:               30 * time.Minute,
		CaptchaFlagTTL:       30 * time.Minute,
		ResetRequestInterval: time.Minute,
	}
}

func (c Config) validate() error {
	if c.Threshold <= 0 {
		return errors.New("attempt: threshold must be positive")
	}
	if c.Window <= 0 {
		return errors.New("attempt: window must be positive")
	}
	if c.ResetRequestInterval <= 0 {
		return errors.New("attempt: reset request interval must be positive")
	}
	return nil
}

// Tracker counts failed attempts per (purpose, identifier) pair and exposes
// the captcha gate derived from those counts. All methods are safe for
// concurrent use.
type Tracker struct {
	redis  redis.UniversalClient
	config Config
}

// NewTracker validates cfg and binds the tracker to a Redis client.
func NewTracker(client redis.UniversalClient, cfg Config) (*Tracker, error) {
	if client == nil {
		return nil, errors.New("attempt: redis client is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.CaptchaFlagTTL <= 0 {
		cfg.CaptchaFlagTTL = cfg.Window
	}
	return &Tracker{redis: client, config: cfg}, nil
}

// RecordFailure increments the failure counter and refreshes the full
// window expiry. Returns the running count and whether captcha is now
// required. Crossing the threshold also raises the captcha flag so the
// requirement survives counter expiry races.
func (t *Tracker) RecordFailure(ctx context.Context, purpose Purpose, identifier string) (int64, bool, error) {
	key, err := t.counterKey(purpose, identifier)
	if err != nil {
		return 0, false, err
	}

	count, err := t.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Refresh on every failure, not only the first. The window slides with
	// activity so a sustained trickle of failures never escapes it.
	if err := t.redis.Expire(ctx, key, t.config.Window).Err(); err != nil {
		return count, count >= t.config.Threshold, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	required := count >= t.config.Threshold
	if required {
		flag, kerr := t.flagKey(purpose, identifier)
		if kerr != nil {
			return count, required, kerr
		}
		if err := t.redis.Set(ctx, flag, "1", t.config.CaptchaFlagTTL).Err(); err != nil {
			return count, required, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return count, required, nil
}

// RecordSuccess clears the counter and the captcha flag for the identifier.
func (t *Tracker) RecordSuccess(ctx context.Context, purpose Purpose, identifier string) error {
	counter, err := t.counterKey(purpose, identifier)
	if err != nil {
		return err
	}
	flag, err := t.flagKey(purpose, identifier)
	if err != nil {
		return err
	}

	if err := t.redis.Del(ctx, counter, flag).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsCaptchaRequired reports whether the identifier must solve a captcha
// before the next attempt. A Redis failure reports false alongside the
// wrapped error; callers log and continue.
func (t *Tracker) IsCaptchaRequired(ctx context.Context, purpose Purpose, identifier string) (bool, error) {
	flag, err := t.flagKey(purpose, identifier)
	if err != nil {
		return false, err
	}

	exists, err := t.redis.Exists(ctx, flag).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if exists > 0 {
		return true, nil
	}

	count, err := t.Count(ctx, purpose, identifier)
	if err != nil {
		return false, err
	}
	return count >= t.config.Threshold, nil
}

// Count returns the current failure count, zero when no counter exists.
func (t *Tracker) Count(ctx context.Context, purpose Purpose, identifier string) (int64, error) {
	key, err := t.counterKey(purpose, identifier)
	if err != nil {
		return 0, err
	}

	count, err := t.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, nil
}

// Remaining reports how many failures are left before captcha triggers.
func (t *Tracker) Remaining(ctx context.Context, purpose Purpose, identifier string) (int64, error) {
	count, err := t.Count(ctx, purpose, identifier)
	if err != nil {
		return 0, err
	}
	remaining := t.config.Threshold - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// MarkResetRequested records that a password reset was just requested for
// the identifier, starting the cooldown interval.
func (t *Tracker) MarkResetRequested(ctx context.Context, identifier string) error {
	if identifier == "" {
		return errors.New("attempt: identifier is required")
	}
	key := resetRateKey + ":" + identifier
	if err := t.redis.Set(ctx, key, "1", t.config.ResetRequestInterval).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsResetRateLimited reports whether a reset request for the identifier is
// still inside the cooldown. Fails open on store errors.
func (t *Tracker) IsResetRateLimited(ctx context.Context, identifier string) (bool, error) {
	if identifier == "" {
		return false, errors.New("attempt: identifier is required")
	}
	exists, err := t.redis.Exists(ctx, resetRateKey+":"+identifier).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return exists > 0, nil
}

// ResetRetryAfter returns how long until the identifier may request another
// reset, zero when no cooldown is active.
func (t *Tracker) ResetRetryAfter(ctx context.Context, identifier string) (time.Duration, error) {
	if identifier == "" {
		return 0, errors.New("attempt: identifier is required")
	}
	ttl, err := t.redis.TTL(ctx, resetRateKey+":"+identifier).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (t *Tracker) counterKey(purpose Purpose, identifier string) (string, error) {
	if !purpose.valid() {
		return "", fmt.Errorf("%w: %d", ErrUnknownPurpose, purpose)
	}
	if identifier == "" {
		return "", errors.New("attempt: identifier is required")
	}
	return attemptKeyPrefix + ":" + purpose.String() + ":" + identifier, nil
}

func (t *Tracker) flagKey(purpose Purpose, identifier string) (string, error) {
	if !purpose.valid() {
		return "", fmt.Errorf("%w: %d", ErrUnknownPurpose, purpose)
	}
	if identifier == "" {
		return "", errors.New("attempt: identifier is required")
	}
	return captchaFlagKey + ":" + purpose.String() + ":" + identifier, nil
}
