package authcore

import (
	"context"
	"errors"
	"strconv"

	"github.com/lgcovizzi/authcore/refresh"
	"github.com/lgcovizzi/authcore/revocation"
)

// Refresh exchanges a refresh credential for a new access token. The
// credential rotates: the presented one is revoked and the result carries
// its replacement, so a stolen credential stops working the moment the
// legitimate client refreshes.
func (e *Engine) Refresh(ctx context.Context, refreshToken string, device DeviceContext) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	credential, err := e.credentials.FindValid(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, refresh.ErrNotFound) {
			e.metricInc(MetricRefreshFailure)
			e.emit(ctx, AuditEvent{
				EventType: AuditRefresh,
				IP:        device.IP,
				Error:     "unknown or dead credential",
			})
			return nil, ErrRefreshInvalid
		}
		e.noteStoreDegraded(ctx, "refresh", err)
		return nil, ErrStoreUnavailable
	}

	principal, err := e.directory.LookupByID(ctx, credential.PrincipalID)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			// The account vanished under the credential; retire it.
			_ = e.credentials.Revoke(ctx, refreshToken)
			e.metricInc(MetricRefreshFailure)
			return nil, ErrRefreshInvalid
		}
		e.noteStoreDegraded(ctx, "directory", err)
		return nil, ErrStoreUnavailable
	}
	if !principal.Enabled {
		_ = e.credentials.Revoke(ctx, refreshToken)
		e.metricInc(MetricRefreshFailure)
		return nil, ErrPrincipalDisabled
	}

	result, err := e.issueSession(ctx, principal, device)
	if err != nil {
		return nil, err
	}

	// Rotate only after the replacement exists. A crash between the two
	// writes leaves the old credential live, never the user locked out.
	if err := e.credentials.Revoke(ctx, refreshToken); err != nil {
		e.noteStoreDegraded(ctx, "refresh", err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emit(ctx, AuditEvent{
		EventType:   AuditRefresh,
		PrincipalID: principal.ID,
		Email:       principal.Email,
		IP:          device.IP,
		Success:     true,
	})
	return result, nil
}

// Logout retires one session: blacklists the access token for its
// remaining lifetime and revokes the refresh credential. Either argument
// may be empty. An access token that does not verify against this
// service's key yields [ErrTokenInvalid]; the refresh credential is
// still revoked first.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	var firstErr error
	var unverifiable bool

	if accessToken != "" {
		if _, err := e.revocations.Revoke(ctx, accessToken); err != nil {
			if errors.Is(err, revocation.ErrUnverifiable) {
				// A token this service never signed has nothing to
				// blacklist. Not a store failure.
				unverifiable = true
			} else {
				firstErr = err
			}
		} else {
			e.metricInc(MetricTokenRevoked)
		}
	}

	if refreshToken != "" {
		if err := e.credentials.Revoke(ctx, refreshToken); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	e.metricInc(MetricLogout)
	event := AuditEvent{
		EventType: AuditLogout,
		Success:   firstErr == nil && !unverifiable,
	}
	if unverifiable {
		event.Error = "unverifiable access token"
	}
	e.emit(ctx, event)
	if firstErr != nil {
		e.noteStoreDegraded(ctx, "logout", firstErr)
		return ErrStoreUnavailable
	}
	if unverifiable {
		return ErrTokenInvalid
	}
	return nil
}

// LogoutAll retires every session of the principal: a global cutoff kills
// all outstanding access tokens and every refresh credential is revoked.
func (e *Engine) LogoutAll(ctx context.Context, principalID uint64) error {
	if e == nil {
		return ErrEngineNotReady
	}

	if err := e.revocations.RevokeAllForPrincipal(ctx, principalID); err != nil {
		e.noteStoreDegraded(ctx, "revocation", err)
		return ErrStoreUnavailable
	}

	revoked, err := e.credentials.RevokeAll(ctx, principalID)
	if err != nil {
		e.noteStoreDegraded(ctx, "refresh", err)
		return ErrStoreUnavailable
	}

	e.metricInc(MetricLogoutAll)
	e.emit(ctx, AuditEvent{
		EventType:   AuditLogoutAll,
		PrincipalID: principalID,
		Success:     true,
		Metadata:    map[string]string{"credentials_revoked": strconv.FormatInt(revoked, 10)},
	})
	return nil
}

// Sessions lists the principal's live refresh credentials, newest first.
// current marks the entry matching the presented credential, when given.
func (e *Engine) Sessions(ctx context.Context, principalID uint64, current string) ([]SessionInfo, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	records, err := e.credentials.ListValid(ctx, principalID)
	if err != nil {
		e.noteStoreDegraded(ctx, "refresh", err)
		return nil, ErrStoreUnavailable
	}

	sessions := make([]SessionInfo, 0, len(records))
	for _, r := range records {
		sessions = append(sessions, SessionInfo{
			DeviceInfo: r.DeviceInfo,
			IPAddress:  r.IPAddress,
			UserAgent:  r.UserAgent,
			CreatedAt:  r.CreatedAt,
			LastUsedAt: r.LastUsedAt,
			ExpiresAt:  r.ExpiresAt,
			Current:    current != "" && r.Token == current,
		})
	}
	return sessions, nil
}

// RevokeOtherSessions keeps the presented refresh credential and revokes
// the principal's others.
func (e *Engine) RevokeOtherSessions(ctx context.Context, principalID uint64, keep string) (int64, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.credentials.RevokeAllExcept(ctx, principalID, keep)
	if err != nil {
		e.noteStoreDegraded(ctx, "refresh", err)
		return 0, ErrStoreUnavailable
	}
	return n, nil
}
