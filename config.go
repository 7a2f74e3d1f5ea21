package authcore

import (
	"errors"
	"time"

	"github.com/lgcovizzi/authcore/attempt"
	"github.com/lgcovizzi/authcore/captcha"
	"github.com/lgcovizzi/authcore/refresh"
	"github.com/lgcovizzi/authcore/revocation"
	"github.com/lgcovizzi/authcore/token"
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Token             TokenConfig
	Attempt           attempt.Config
	Captcha           captcha.Config
	Refresh           refresh.Config
	Revocation        RevocationConfig
	PasswordReset     PasswordResetConfig
	EmailVerification EmailVerificationConfig
	Password          PasswordConfig
	Audit             AuditConfig
	Metrics           MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig carries JWT issuance settings and RSA key material. Key
// fields follow [token.KeyConfig]: inline PEM wins over paths, and
// GenerateIfMissing creates a keypair on first start.
type TokenConfig struct {
	Issuer            string
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	Leeway            time.Duration
	PrivateKeyPEM     []byte
	PublicKeyPEM      []byte
	PrivateKeyPath    string
	PublicKeyPath     string
	GenerateIfMissing bool
	KeySize           int
}

/*
====================================
REVOCATION CONFIG
====================================
*/

// RevocationConfig tunes the revocation registry.
type RevocationConfig struct {
	// PrincipalCutoffTTL bounds how long a logout-all cutoff is kept. Must
	// cover the refresh credential lifetime.
	PrincipalCutoffTTL time.Duration
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

// PasswordResetConfig tunes the forgot-password flow.
type PasswordResetConfig struct {
	Enabled  bool
	TokenTTL time.Duration
}

// EmailVerificationConfig tunes the verify-your-address flow.
type EmailVerificationConfig struct {
	Enabled  bool
	TokenTTL time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the hashing algorithm. BcryptCost zero means
// bcrypt.DefaultCost.
type PasswordConfig struct {
	BcryptCost int
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit pipeline.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events instead of blocking when the buffer fills.
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production baseline. Callers adjust fields
// and pass the result to [Builder.WithConfig].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Issuer:            "authcore",
			AccessTTL:         time.Hour,
			RefreshTTL:        180 * 24 * time.Hour,
			Leeway:            30 * time.Second,
			GenerateIfMissing: false,
		},
		Attempt: attempt.DefaultConfig(),
		Captcha: captcha.DefaultConfig(),
		Refresh: refresh.DefaultConfig(),
		Revocation: RevocationConfig{
			// Must outlive the longest refresh credential, or a revoked
			// principal could resurface once the cutoff expired.
			PrincipalCutoffTTL: 180 * 24 * time.Hour,
		},
		PasswordReset: PasswordResetConfig{
			Enabled:  true,
			TokenTTL: 2 * time.Hour,
		},
		EmailVerification: EmailVerificationConfig{
			Enabled:  true,
			TokenTTL: 24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks cross-field consistency not covered by the subpackage
// constructors.
func (c Config) Validate() error {
	if c.Token.AccessTTL <= 0 {
		return errors.New("config: token access ttl must be positive")
	}
	if c.Token.RefreshTTL <= 0 {
		return errors.New("config: token refresh ttl must be positive")
	}
	if c.Token.Issuer == "" {
		return errors.New("config: token issuer required")
	}
	if c.Revocation.PrincipalCutoffTTL <= 0 {
		return errors.New("config: principal cutoff ttl must be positive")
	}
	if c.Revocation.PrincipalCutoffTTL < c.Refresh.TTL {
		return errors.New("config: principal cutoff ttl must cover refresh credential lifetime")
	}
	if c.PasswordReset.Enabled && c.PasswordReset.TokenTTL <= 0 {
		return errors.New("config: password reset token ttl must be positive")
	}
	if c.EmailVerification.Enabled && c.EmailVerification.TokenTTL <= 0 {
		return errors.New("config: email verification token ttl must be positive")
	}
	return nil
}

func (c Config) newTokenManager(keys *token.KeyManager) (*token.Manager, error) {
	return token.NewManager(keys, token.Config{
		Issuer:     c.Token.Issuer,
		AccessTTL:  c.Token.AccessTTL,
		RefreshTTL: c.Token.RefreshTTL,
		Leeway:     c.Token.Leeway,
	})
}

func (c Config) newRevocationConfig() revocation.Config {
	return revocation.Config{PrincipalCutoffTTL: c.Revocation.PrincipalCutoffTTL}
}
