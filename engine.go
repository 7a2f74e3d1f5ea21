package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/lgcovizzi/authcore/attempt"
	"github.com/lgcovizzi/authcore/captcha"
	"github.com/lgcovizzi/authcore/password"
	"github.com/lgcovizzi/authcore/refresh"
	"github.com/lgcovizzi/authcore/revocation"
	"github.com/lgcovizzi/authcore/token"
)

// Engine is the session security core. Construct it with [New]; the zero
// value is not usable. All methods are safe for concurrent use.
type Engine struct {
	config      Config
	tokens      *token.Manager
	tracker     *attempt.Tracker
	challenges  *captcha.Service
	revocations *revocation.Registry
	credentials *refresh.Store
	resetStore  *opaqueTokenStore
	verifyStore *opaqueTokenStore
	hasher      password.Hasher
	directory   UserDirectory
	notifier    Notifier
	audit       *auditDispatcher
	metrics     *Metrics
}

// Close flushes the audit pipeline and stops background work.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.credentials.StopSweeper()
	if e.audit != nil {
		e.audit.Close()
	}
}

// StartSweeper begins periodic cleanup of dead refresh credentials.
func (e *Engine) StartSweeper(interval time.Duration) error {
	return e.credentials.StartSweeper(interval)
}

// AuditDropped reports how many audit events were shed under pressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// PublicKeyPEM exposes the verification key for external validators.
func (e *Engine) PublicKeyPEM() ([]byte, error) {
	return e.tokens.PublicKeyPEM()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login authenticates a principal by email and password, enforcing the
// captcha gate when the identifier has accumulated too many failures.
// Success returns a signed access token plus a durable refresh credential
// bound to the request device.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if req.Email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	identifier := e.attemptIdentifier(req)

	if err := e.enforceCaptchaGate(ctx, identifier, req); err != nil {
		return nil, err
	}

	principal, err := e.directory.LookupByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			// Unknown accounts burn an attempt like wrong passwords do, so
			// responses cannot be used to enumerate addresses.
			e.noteLoginFailure(ctx, identifier, req, "unknown principal")
			return nil, ErrInvalidCredentials
		}
		e.noteStoreDegraded(ctx, "directory", err)
		return nil, ErrStoreUnavailable
	}

	ok, err := e.hasher.Verify(req.Password, principal.PasswordHash)
	if err != nil {
		e.noteStoreDegraded(ctx, "hasher", err)
		return nil, ErrStoreUnavailable
	}
	if !ok {
		e.noteLoginFailure(ctx, identifier, req, "wrong password")
		return nil, ErrInvalidCredentials
	}

	if !principal.Enabled {
		e.emit(ctx, AuditEvent{
			EventType:   AuditLogin,
			PrincipalID: principal.ID,
			Email:       principal.Email,
			IP:          req.Device.IP,
			Error:       ErrPrincipalDisabled.Error(),
		})
		return nil, ErrPrincipalDisabled
	}
	if !principal.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	if err := e.tracker.RecordSuccess(ctx, attempt.PurposeLogin, identifier); err != nil {
		// Wipe failure counters best-effort; a stale counter only means one
		// extra captcha.
		e.noteStoreDegraded(ctx, "attempt", err)
	}

	result, err := e.issueSession(ctx, principal, req.Device)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emit(ctx, AuditEvent{
		EventType:   AuditLogin,
		PrincipalID: principal.ID,
		Email:       principal.Email,
		IP:          req.Device.IP,
		Success:     true,
	})
	return result, nil
}

// CaptchaRequired reports whether the next login attempt from the
// identifier must carry a solved captcha.
func (e *Engine) CaptchaRequired(ctx context.Context, identifier string) bool {
	required, err := e.tracker.IsCaptchaRequired(ctx, attempt.PurposeLogin, identifier)
	if err != nil {
		e.noteStoreDegraded(ctx, "attempt", err)
		return false
	}
	return required
}

// issueSession mints the access token and refresh credential pair.
func (e *Engine) issueSession(ctx context.Context, principal *Principal, device DeviceContext) (*LoginResult, error) {
	access, err := e.tokens.IssueAccess(token.Subject{
		Email:  principal.Email,
		UserID: principal.ID,
		Roles:  principal.Roles,
	})
	if err != nil {
		return nil, err
	}

	credential, err := e.credentials.Create(ctx, principal.ID, device)
	if err != nil {
		e.noteStoreDegraded(ctx, "refresh", err)
		return nil, ErrStoreUnavailable
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: credential.Token,
		ExpiresIn:    e.config.Token.AccessTTL,
		Principal:    principal,
	}, nil
}

// enforceCaptchaGate rejects the attempt when a captcha is owed and the
// supplied answer is absent or wrong.
func (e *Engine) enforceCaptchaGate(ctx context.Context, identifier string, req LoginRequest) error {
	required, err := e.tracker.IsCaptchaRequired(ctx, attempt.PurposeLogin, identifier)
	if err != nil {
		// Counter store down: let the attempt through on credentials alone.
		e.noteStoreDegraded(ctx, "attempt", err)
		return nil
	}
	if !required {
		return nil
	}

	e.metricInc(MetricCaptchaRequired)
	if req.CaptchaID == "" || req.CaptchaAnswer == "" {
		return ErrCaptchaRequired
	}

	solved, err := e.challenges.Validate(ctx, req.CaptchaID, req.CaptchaAnswer)
	if err != nil {
		e.noteStoreDegraded(ctx, "captcha", err)
	}
	if !solved {
		e.metricInc(MetricCaptchaFailed)
		e.emit(ctx, AuditEvent{
			EventType: AuditCaptchaFailed,
			Email:     req.Email,
			IP:        req.Device.IP,
		})
		return ErrCaptchaInvalid
	}

	e.metricInc(MetricCaptchaSolved)
	e.emit(ctx, AuditEvent{
		EventType: AuditCaptchaSolved,
		Email:     req.Email,
		IP:        req.Device.IP,
		Success:   true,
	})
	return nil
}

// attemptIdentifier keys failure counters by client IP when known, falling
// back to the claimed email for proxy-less callers.
func (e *Engine) attemptIdentifier(req LoginRequest) string {
	if req.Device.IP != "" && req.Device.IP != "Unknown" {
		return req.Device.IP
	}
	return req.Email
}

func (e *Engine) noteLoginFailure(ctx context.Context, identifier string, req LoginRequest, reason string) {
	if _, _, err := e.tracker.RecordFailure(ctx, attempt.PurposeLogin, identifier); err != nil {
		e.noteStoreDegraded(ctx, "attempt", err)
	}
	e.metricInc(MetricLoginFailure)
	e.emit(ctx, AuditEvent{
		EventType: AuditLogin,
		Email:     req.Email,
		IP:        req.Device.IP,
		Error:     reason,
	})
}

func (e *Engine) noteStoreDegraded(ctx context.Context, component string, err error) {
	e.metricInc(MetricStoreDegraded)
	e.emit(ctx, AuditEvent{
		EventType: AuditStoreDegraded,
		Error:     err.Error(),
		Metadata:  map[string]string{"component": component},
	})
}

func (e *Engine) emit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	e.audit.Emit(ctx, event)
}
