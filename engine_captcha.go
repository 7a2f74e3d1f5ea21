package authcore

import (
	"context"

	"github.com/lgcovizzi/authcore/captcha"
)

// NewCaptcha issues a fresh challenge. The caller renders Text to the
// user and echoes ID back with the answer.
func (e *Engine) NewCaptcha(ctx context.Context) (captcha.Challenge, error) {
	if e == nil {
		return captcha.Challenge{}, ErrEngineNotReady
	}

	ch, err := e.challenges.Generate(ctx)
	if err != nil {
		e.noteStoreDegraded(ctx, "captcha", err)
		return captcha.Challenge{}, ErrStoreUnavailable
	}

	e.emit(ctx, AuditEvent{
		EventType: AuditCaptchaIssued,
		Success:   true,
	})
	return ch, nil
}

// SolveCaptcha validates an answer outside the login flow, for callers
// that gate other surfaces on a challenge.
func (e *Engine) SolveCaptcha(ctx context.Context, id, answer string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}

	solved, err := e.challenges.Validate(ctx, id, answer)
	if err != nil {
		e.noteStoreDegraded(ctx, "captcha", err)
		return false, ErrStoreUnavailable
	}
	if solved {
		e.metricInc(MetricCaptchaSolved)
	} else {
		e.metricInc(MetricCaptchaFailed)
	}
	return solved, nil
}
