package attempt

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestTracker(t *testing.T, cfg Config) (*miniredis.Miniredis, *Tracker) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tr, err := NewTracker(client, cfg)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}
	return mr, tr
}

func TestThresholdCrossingRequiresCaptcha(t *testing.T) {
	_, tr := newTestTracker(t, DefaultConfig())
	ctx := context.Background()
	const id = "10.0.0.1"

	for i := int64(1); i < 5; i++ {
		count, required, err := tr.RecordFailure(ctx, PurposeLogin, id)
		if err != nil {
			t.Fatalf("RecordFailure %d: %v", i, err)
		}
		if count != i {
			t.Fatalf("count = %d, want %d", count, i)
		}
		if required {
			t.Fatalf("captcha required after %d failures", i)
		}
	}

	count, required, err := tr.RecordFailure(ctx, PurposeLogin, id)
	if err != nil {
		t.Fatalf("RecordFailure 5: %v", err)
	}
	if count != 5 || !required {
		t.Fatalf("count=%d required=%v, want 5 true", count, required)
	}

	got, err := tr.IsCaptchaRequired(ctx, PurposeLogin, id)
	if err != nil {
		t.Fatalf("IsCaptchaRequired: %v", err)
	}
	if !got {
		t.Fatal("captcha should be required after threshold")
	}
}

func TestSuccessClearsCounterAndFlag(t *testing.T) {
	_, tr := newTestTracker(t, DefaultConfig())
	ctx := context.Background()
	const id = "user@example.com"

	for i := 0; i < 6; i++ {
		if _, _, err := tr.RecordFailure(ctx, PurposeLogin, id); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}

	if err := tr.RecordSuccess(ctx, PurposeLogin, id); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}

	count, err := tr.Count(ctx, PurposeLogin, id)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("count after success = %d, want 0", count)
	}

	required, err := tr.IsCaptchaRequired(ctx, PurposeLogin, id)
	if err != nil {
		t.Fatalf("IsCaptchaRequired: %v", err)
	}
	if required {
		t.Fatal("captcha flag should be cleared by success")
	}
}

func TestWindowSlidesWithEveryFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Window = 10 * time.Minute
	mr, tr := newTestTracker(t, cfg)
	ctx := context.Background()
	const id = "192.0.2.11"

	if _, _, err := tr.RecordFailure(ctx, PurposeLogin, id); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}

	// Halfway through the window another failure must push expiry back to
	// the full window, not leave the original deadline in place.
	mr.FastForward(5 * time.Minute)
	if _, _, err := tr.RecordFailure(ctx, PurposeLogin, id); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}

	mr.FastForward(6 * time.Minute)
	count, err := tr.Count(ctx, PurposeLogin, id)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Fatalf("counter expired inside refreshed window, count = %d", count)
	}

	mr.FastForward(5 * time.Minute)
	count, err = tr.Count(ctx, PurposeLogin, id)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("counter should expire after window, count = %d", count)
	}
}

func TestPurposesAreIsolated(t *testing.T) {
	_, tr := newTestTracker(t, DefaultConfig())
	ctx := context.Background()
	const id = "10.0.0.2"

	for i := 0; i < 5; i++ {
		if _, _, err := tr.RecordFailure(ctx, PurposeLogin, id); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}

	required, err := tr.IsCaptchaRequired(ctx, PurposePasswordReset, id)
	if err != nil {
		t.Fatalf("IsCaptchaRequired: %v", err)
	}
	if required {
		t.Fatal("login failures must not gate password reset")
	}
}

func TestRemaining(t *testing.T) {
	_, tr := newTestTracker(t, DefaultConfig())
	ctx := context.Background()
	const id = "10.0.0.3"

	remaining, err := tr.Remaining(ctx, PurposeLogin, id)
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if remaining != 5 {
		t.Fatalf("remaining = %d, want 5", remaining)
	}

	for i := 0; i < 7; i++ {
		if _, _, err := tr.RecordFailure(ctx, PurposeLogin, id); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}

	remaining, err = tr.Remaining(ctx, PurposeLogin, id)
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("remaining past threshold = %d, want 0", remaining)
	}
}

func TestResetRequestCooldown(t *testing.T) {
	cfg := DefaultConfig()
	mr, tr := newTestTracker(t, cfg)
	ctx := context.Background()
	const id = "reset@example.com"

	limited, err := tr.IsResetRateLimited(ctx, id)
	if err != nil {
		t.Fatalf("IsResetRateLimited: %v", err)
	}
	if limited {
		t.Fatal("fresh identifier should not be rate limited")
	}

	if err := tr.MarkResetRequested(ctx, id); err != nil {
		t.Fatalf("MarkResetRequested: %v", err)
	}

	limited, err = tr.IsResetRateLimited(ctx, id)
	if err != nil {
		t.Fatalf("IsResetRateLimited: %v", err)
	}
	if !limited {
		t.Fatal("identifier should be limited inside the cooldown")
	}

	after, err := tr.ResetRetryAfter(ctx, id)
	if err != nil {
		t.Fatalf("ResetRetryAfter: %v", err)
	}
	if after <= 0 || after > time.Minute {
		t.Fatalf("retry after = %v, want within (0, 1m]", after)
	}

	mr.FastForward(61 * time.Second)
	limited, err = tr.IsResetRateLimited(ctx, id)
	if err != nil {
		t.Fatalf("IsResetRateLimited: %v", err)
	}
	if limited {
		t.Fatal("cooldown should expire after the interval")
	}
}

func TestUnknownPurposeRejected(t *testing.T) {
	_, tr := newTestTracker(t, DefaultConfig())
	ctx := context.Background()

	if _, _, err := tr.RecordFailure(ctx, PurposeUnspecified, "x"); err == nil {
		t.Fatal("expected error for unspecified purpose")
	}
	if _, _, err := tr.RecordFailure(ctx, Purpose(99), "x"); err == nil {
		t.Fatal("expected error for out of range purpose")
	}
}
