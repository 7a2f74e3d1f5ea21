package authcore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RequestEmailVerification mints a verification token for the principal
// and hands it to the notifier.
func (e *Engine) RequestEmailVerification(ctx context.Context, principalID uint64) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if !e.config.EmailVerification.Enabled {
		return ErrVerificationInvalid
	}

	principal, err := e.directory.LookupByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return ErrPrincipalNotFound
		}
		e.noteStoreDegraded(ctx, "directory", err)
		return ErrStoreUnavailable
	}

	raw, err := e.verifyStore.Issue(ctx, principal.ID, e.config.EmailVerification.TokenTTL)
	if err != nil {
		e.noteStoreDegraded(ctx, "verify", err)
		return ErrStoreUnavailable
	}

	if e.notifier != nil {
		if err := e.notifier.SendVerification(ctx, principal.Email, raw); err != nil {
			e.emit(ctx, AuditEvent{
				EventType:   AuditNotifierFailure,
				PrincipalID: principal.ID,
				Email:       principal.Email,
				Error:       err.Error(),
			})
		}
	}

	e.metricInc(MetricEmailVerificationRequest)
	e.emit(ctx, AuditEvent{
		EventType:   AuditVerifyRequested,
		PrincipalID: principal.ID,
		Email:       principal.Email,
		Success:     true,
	})
	return nil
}

// ConfirmEmailVerification consumes a verification token and returns the
// id of the principal it belongs to. The caller marks the address
// verified in its own store; the directory is never written here.
func (e *Engine) ConfirmEmailVerification(ctx context.Context, verifyToken string) (uint64, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if !e.config.EmailVerification.Enabled {
		return 0, ErrVerificationInvalid
	}

	principalID, err := e.verifyStore.Consume(ctx, verifyToken)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrVerificationInvalid
		}
		e.noteStoreDegraded(ctx, "verify", err)
		return 0, ErrStoreUnavailable
	}

	e.metricInc(MetricEmailVerificationConfirm)
	e.emit(ctx, AuditEvent{
		EventType:   AuditVerifyConfirmed,
		PrincipalID: principalID,
		Success:     true,
	})
	return principalID, nil
}
