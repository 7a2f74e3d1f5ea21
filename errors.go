package authcore

import "errors"

var (
	// ErrEngineNotReady is an exported constant or variable used by the session security engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrInvalidCredentials is an exported constant or variable used by the session security engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPrincipalNotFound is an exported constant or variable used by the session security engine.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrPrincipalDisabled is an exported constant or variable used by the session security engine.
	ErrPrincipalDisabled = errors.New("principal disabled")
	// ErrEmailNotVerified is an exported constant or variable used by the session security engine.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrCaptchaRequired is an exported constant or variable used by the session security engine.
	ErrCaptchaRequired = errors.New("captcha required")
	// ErrCaptchaInvalid is an exported constant or variable used by the session security engine.
	ErrCaptchaInvalid = errors.New("captcha answer invalid or challenge expired")
	// ErrRateLimited is an exported constant or variable used by the session security engine.
	ErrRateLimited = errors.New("rate limited")
	// ErrRefreshInvalid is an exported constant or variable used by the session security engine.
	ErrRefreshInvalid = errors.New("refresh credential invalid")
	// ErrTokenInvalid is an exported constant or variable used by the session security engine.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenRevoked is an exported constant or variable used by the session security engine.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrResetInvalid is an exported constant or variable used by the session security engine.
	ErrResetInvalid = errors.New("password reset token invalid or expired")
	// ErrVerificationInvalid is an exported constant or variable used by the session security engine.
	ErrVerificationInvalid = errors.New("email verification token invalid or expired")
	// ErrStoreUnavailable is an exported constant or variable used by the session security engine.
	ErrStoreUnavailable = errors.New("backing store unavailable")
)
