package authcore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RequestPasswordReset begins the forgot-password flow. The response is
// identical for known and unknown addresses; only the audit trail records
// the difference. Requests inside the cooldown interval return
// [ErrRateLimited] regardless of whether the address exists.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if !e.config.PasswordReset.Enabled {
		return ErrResetInvalid
	}
	if email == "" {
		return ErrResetInvalid
	}

	limited, err := e.tracker.IsResetRateLimited(ctx, email)
	if err != nil {
		e.noteStoreDegraded(ctx, "attempt", err)
	}
	if limited {
		return ErrRateLimited
	}
	if err := e.tracker.MarkResetRequested(ctx, email); err != nil {
		e.noteStoreDegraded(ctx, "attempt", err)
	}

	e.metricInc(MetricPasswordResetRequest)

	principal, err := e.directory.LookupByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			e.emit(ctx, AuditEvent{
				EventType: AuditResetRequested,
				Email:     email,
				Error:     "unknown principal",
			})
			return nil
		}
		e.noteStoreDegraded(ctx, "directory", err)
		return ErrStoreUnavailable
	}

	raw, err := e.resetStore.Issue(ctx, principal.ID, e.config.PasswordReset.TokenTTL)
	if err != nil {
		e.noteStoreDegraded(ctx, "reset", err)
		return ErrStoreUnavailable
	}

	if e.notifier != nil {
		if err := e.notifier.SendPasswordReset(ctx, principal.Email, raw); err != nil {
			// Mail failures are audited, not surfaced: failing here would
			// reveal the address exists.
			e.emit(ctx, AuditEvent{
				EventType:   AuditNotifierFailure,
				PrincipalID: principal.ID,
				Email:       principal.Email,
				Error:       err.Error(),
			})
		}
	}

	e.emit(ctx, AuditEvent{
		EventType:   AuditResetRequested,
		PrincipalID: principal.ID,
		Email:       principal.Email,
		Success:     true,
	})
	return nil
}

// ConfirmPasswordReset consumes a reset token, hashes the new password,
// and retires every outstanding session of the principal. It returns the
// principal id and the new hash; persisting the hash is the caller's job,
// the directory is never written here.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) (uint64, string, error) {
	if e == nil {
		return 0, "", ErrEngineNotReady
	}
	if !e.config.PasswordReset.Enabled {
		return 0, "", ErrResetInvalid
	}

	principalID, err := e.resetStore.Consume(ctx, resetToken)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, "", ErrResetInvalid
		}
		e.noteStoreDegraded(ctx, "reset", err)
		return 0, "", ErrStoreUnavailable
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return 0, "", err
	}

	// A reset is a strong compromise signal: whoever held the old password
	// loses every session.
	if err := e.LogoutAll(ctx, principalID); err != nil {
		e.noteStoreDegraded(ctx, "revocation", err)
	}

	e.metricInc(MetricPasswordResetConfirm)
	e.emit(ctx, AuditEvent{
		EventType:   AuditResetConfirmed,
		PrincipalID: principalID,
		Success:     true,
	})
	return principalID, hash, nil
}
