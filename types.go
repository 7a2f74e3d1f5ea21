package authcore

import (
	"context"
	"time"

	"github.com/lgcovizzi/authcore/internal"
	"github.com/lgcovizzi/authcore/token"
)

// Principal is the account record the Engine authenticates. Callers own
// the storage; the Engine only reads it through [UserDirectory].
type Principal struct {
	ID            uint64
	Email         string
	PasswordHash  string
	Roles         []string
	Enabled       bool
	EmailVerified bool
}

// DeviceContext is the best-effort client fingerprint recorded alongside
// sessions. See [DeviceFromRequest].
type DeviceContext = internal.Device

// UserDirectory is the interface callers implement to integrate authcore
// with their user database. Lookup misses must return
// [ErrPrincipalNotFound] (possibly wrapped). The Engine never writes
// through this interface: flows that end in a principal change, such as
// [Engine.ConfirmPasswordReset], hand the result back to the caller to
// persist.
type UserDirectory interface {
	LookupByEmail(ctx context.Context, email string) (*Principal, error)
	LookupByID(ctx context.Context, id uint64) (*Principal, error)
}

// Notifier delivers outbound account mail. Implementations must not block
// indefinitely; delivery failures are audited but never fail the flow that
// triggered them, to avoid leaking account existence through timing.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, resetToken string) error
	SendVerification(ctx context.Context, email, verifyToken string) error
}

// LoginRequest carries one authentication attempt.
type LoginRequest struct {
	Email         string
	Password      string
	CaptchaID     string
	CaptchaAnswer string
	Device        DeviceContext
}

// LoginResult is returned by [Engine.Login] and [Engine.Refresh].
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	Principal    *Principal
}

// Introspection is returned by [Engine.Validate] for a live access token.
type Introspection struct {
	PrincipalID uint64
	Email       string
	Roles       []string
	Kind        token.Kind
	JTI         string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// SessionInfo describes one live refresh credential, for device listings.
// The opaque credential itself is never exposed here.
type SessionInfo struct {
	DeviceInfo string
	IPAddress  string
	UserAgent  string
	CreatedAt  time.Time
	LastUsedAt *time.Time
	ExpiresAt  time.Time
	Current    bool
}
