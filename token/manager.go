package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Config defines issuance and validation parameters for a [Manager].
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration

	// Now overrides the clock. Nil means time.Now. Injected rather than
	// ambient so expiry behavior is testable without sleeping.
	Now func() time.Time
}

// Subject carries the principal fields embedded into issued claims.
type Subject struct {
	Email  string
	UserID uint64
	Roles  []string
}

// Claims is the typed claim set carried by every issued token. Roles keep
// their issuance order. ID (jti) is always populated so revocation never has
// to fall back to hashing the raw token.
type Claims struct {
	UserID uint64   `json:"uid,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	Kind   Kind     `json:"typ"`
	jwt.RegisteredClaims
}

// Manager issues and verifies signed tokens. It holds no mutable state beyond
// the immutable keypair and is safe for concurrent use.
type Manager struct {
	config Config
	keys   *KeyManager
	now    func() time.Time
}

// NewManager validates the configuration and binds it to key material.
func NewManager(keys *KeyManager, cfg Config) (*Manager, error) {
	if keys == nil {
		return nil, errors.New("key manager required")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid access TTL configuration")
	}
	if cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid refresh TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Manager{config: cfg, keys: keys, now: now}, nil
}

// Issue signs a token of the given kind with an explicit TTL.
func (m *Manager) Issue(sub Subject, kind Kind, ttl time.Duration) (string, error) {
	if !m.keys.CanSign() {
		return "", ErrSigningKeyMissing
	}
	if kind != KindAccess && kind != KindRefresh {
		return "", fmt.Errorf("%w: %d", ErrUnsupportedKind, kind)
	}
	if ttl <= 0 {
		return "", errors.New("invalid token ttl")
	}

	now := m.now()
	claims := Claims{
		UserID: sub.UserID,
		Roles:  sub.Roles,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.Email,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(m.keys.private)
}

// IssueAccess signs an access token with the configured access TTL.
func (m *Manager) IssueAccess(sub Subject) (string, error) {
	return m.Issue(sub, KindAccess, m.config.AccessTTL)
}

// IssueRefresh signs a refresh-kind token with the configured refresh TTL.
// The engine's durable refresh credentials are opaque and live in the
// relational store; this exists for deployments that want stateless refresh.
func (m *Manager) IssueRefresh(sub Subject) (string, error) {
	return m.Issue(sub, KindRefresh, m.config.RefreshTTL)
}

// PublicKeyPEM exposes the verification key for distribution to external
// validators.
func (m *Manager) PublicKeyPEM() ([]byte, error) {
	return m.keys.PublicKeyPEM()
}

// Parse verifies signature and registered claims and returns the typed claim
// set. Failures map onto the package sentinels: [ErrMalformed],
// [ErrSignatureInvalid], [ErrExpired], [ErrUnsupportedKind].
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, true)
}

// ParseExpired verifies the signature but skips claim validation, so expired
// tokens still yield their claim set. Used for expiry inspection and for
// computing revocation TTLs; never for granting access.
func (m *Manager) ParseExpired(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, false)
}

func (m *Manager) parse(tokenStr string, validateClaims bool) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if validateClaims {
		if m.config.Leeway > 0 {
			options = append(options, jwt.WithLeeway(m.config.Leeway))
		}
		if m.config.Issuer != "" {
			options = append(options, jwt.WithIssuer(m.config.Issuer))
		}
	} else {
		options = append(options, jwt.WithoutClaimsValidation())
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return m.keys.public, nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if claims.Kind != KindAccess && claims.Kind != KindRefresh {
		return nil, fmt.Errorf("%w: missing typ claim", ErrUnsupportedKind)
	}

	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, ErrUnsupportedKind):
		return err
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

// ExtractSubject returns the subject (principal email) of a valid token.
func (m *Manager) ExtractSubject(tokenStr string) (string, error) {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExtractExpiration returns the expiry instant of a valid token.
func (m *Manager) ExtractExpiration(tokenStr string) (time.Time, error) {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: missing exp claim", ErrMalformed)
	}
	return claims.ExpiresAt.Time, nil
}

// ExtractIssuedAt returns the issuance instant of a valid token.
func (m *Manager) ExtractIssuedAt(tokenStr string) (time.Time, error) {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return time.Time{}, err
	}
	if claims.IssuedAt == nil {
		return time.Time{}, fmt.Errorf("%w: missing iat claim", ErrMalformed)
	}
	return claims.IssuedAt.Time, nil
}

// ExtractJTI returns the token's unique identifier.
func (m *Manager) ExtractJTI(tokenStr string) (string, error) {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.ID, nil
}

// ExtractKind returns the token's kind.
func (m *Manager) ExtractKind(tokenStr string) (Kind, error) {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return KindUnspecified, err
	}
	return claims.Kind, nil
}

// ExtractRoles returns the role list in issuance order.
func (m *Manager) ExtractRoles(tokenStr string) ([]string, error) {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return nil, err
	}
	return claims.Roles, nil
}

// ExtractClaim is the generic accessor over the raw claim map. The signature
// is verified; claim validation is skipped so it also serves introspection of
// expired tokens. Absent claims return nil without error.
func (m *Manager) ExtractClaim(tokenStr, name string) (interface{}, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithoutClaimsValidation(),
	)

	claims := jwt.MapClaims{}
	if _, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return m.keys.public, nil
	}); err != nil {
		return nil, mapParseError(err)
	}

	return claims[name], nil
}

// IsExpired compares the token's expiry to the manager clock. The signature
// is still verified; unreadable tokens count as expired.
func (m *Manager) IsExpired(tokenStr string) bool {
	claims, err := m.ParseExpired(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return !claims.ExpiresAt.Time.After(m.now())
}

// TimeToExpiration returns the remaining validity, zero when expired or
// unreadable.
func (m *Manager) TimeToExpiration(tokenStr string) time.Duration {
	claims, err := m.ParseExpired(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		return 0
	}
	remaining := claims.ExpiresAt.Time.Sub(m.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsValidForPrincipal reports whether the token verifies, is unexpired, and
// was issued for the given subject. Safe boundary: never propagates parse
// failures.
func (m *Manager) IsValidForPrincipal(tokenStr, email string) bool {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return false
	}
	return claims.Subject == email
}

// IsValidAccessToken reports whether the token is a verifiable, unexpired
// access token. Safe boundary: all failures collapse to false.
func (m *Manager) IsValidAccessToken(tokenStr string) bool {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return false
	}
	return claims.Kind == KindAccess
}

// IsValidRefreshToken reports whether the token is a verifiable, unexpired
// refresh-kind token. Safe boundary: all failures collapse to false.
func (m *Manager) IsValidRefreshToken(tokenStr string) bool {
	claims, err := m.Parse(tokenStr)
	if err != nil {
		return false
	}
	return claims.Kind == KindRefresh
}
