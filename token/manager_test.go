package token

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

var (
	testKeysOnce sync.Once
	testKeys     *KeyManager
	testKeysErr  error
)

func sharedTestKeys(t *testing.T) *KeyManager {
	t.Helper()

	testKeysOnce.Do(func() {
		testKeys, testKeysErr = NewGeneratedKeyManager(2048)
	})
	if testKeysErr != nil {
		t.Fatalf("NewGeneratedKeyManager failed: %v", testKeysErr)
	}
	return testKeys
}

func newTestManager(t *testing.T, now func() time.Time) *Manager {
	t.Helper()

	m, err := NewManager(sharedTestKeys(t), Config{
		Issuer:     "authcore-test",
		AccessTTL:  time.Hour,
		RefreshTTL: 180 * 24 * time.Hour,
		Now:        now,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func testSubject() Subject {
	return Subject{
		Email:  "a@b.com",
		UserID: 42,
		Roles:  []string{"ROLE_ADMIN", "ROLE_USER"},
	}
}

func TestIssueParseRoundTrip(t *testing.T) {
	m := newTestManager(t, nil)

	tokenStr, err := m.IssueAccess(testSubject())
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}
	if len(strings.Split(tokenStr, ".")) != 3 {
		t.Fatalf("expected three token segments, got %q", tokenStr)
	}

	claims, err := m.Parse(tokenStr)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.Subject != "a@b.com" {
		t.Fatalf("subject = %q, want a@b.com", claims.Subject)
	}
	if claims.UserID != 42 {
		t.Fatalf("uid = %d, want 42", claims.UserID)
	}
	if claims.Kind != KindAccess {
		t.Fatalf("kind = %v, want access", claims.Kind)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be embedded at issuance")
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "ROLE_ADMIN" || claims.Roles[1] != "ROLE_USER" {
		t.Fatalf("roles order not preserved: %v", claims.Roles)
	}
}

func TestExpiryWithSimulatedClock(t *testing.T) {
	current := time.Now()
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}

	m := newTestManager(t, now)

	tokenStr, err := m.IssueAccess(testSubject())
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	if got, err := m.ExtractSubject(tokenStr); err != nil || got != "a@b.com" {
		t.Fatalf("ExtractSubject = %q, %v", got, err)
	}
	if m.IsExpired(tokenStr) {
		t.Fatal("token expired before TTL elapsed")
	}
	if ttl := m.TimeToExpiration(tokenStr); ttl <= 59*time.Minute {
		t.Fatalf("TimeToExpiration = %v, want about 1h", ttl)
	}

	mu.Lock()
	current = current.Add(time.Hour + time.Second)
	mu.Unlock()

	if !m.IsExpired(tokenStr) {
		t.Fatal("token still valid after TTL elapsed")
	}
	if ttl := m.TimeToExpiration(tokenStr); ttl != 0 {
		t.Fatalf("TimeToExpiration after expiry = %v, want 0", ttl)
	}
	if _, err := m.Parse(tokenStr); !errors.Is(err, ErrExpired) {
		t.Fatalf("Parse after expiry = %v, want ErrExpired", err)
	}
	if m.IsValidAccessToken(tokenStr) {
		t.Fatal("expired token passed safe validity check")
	}

	// The claim set is still reachable for revocation bookkeeping.
	claims, err := m.ParseExpired(tokenStr)
	if err != nil {
		t.Fatalf("ParseExpired failed: %v", err)
	}
	if claims.Subject != "a@b.com" {
		t.Fatalf("ParseExpired subject = %q", claims.Subject)
	}
}

func TestSignatureFlipYieldsSignatureInvalid(t *testing.T) {
	m := newTestManager(t, nil)

	tokenStr, err := m.IssueAccess(testSubject())
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	parts := strings.Split(tokenStr, ".")
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		t.Fatalf("decode signature segment failed: %v", err)
	}

	for i := range sig {
		mutated := make([]byte, len(sig))
		copy(mutated, sig)
		mutated[i] ^= 0x01

		forged := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(mutated)
		if _, err := m.Parse(forged); !errors.Is(err, ErrSignatureInvalid) {
			t.Fatalf("byte %d: Parse = %v, want ErrSignatureInvalid", i, err)
		}
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	m := newTestManager(t, nil)

	for _, input := range []string{"", "garbage", "a.b", "a.b.c.d", "!!.!!.!!"} {
		if _, err := m.Parse(input); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Parse(%q) = %v, want ErrMalformed", input, err)
		}
		if m.IsValidAccessToken(input) {
			t.Fatalf("IsValidAccessToken(%q) = true", input)
		}
	}
}

func TestKindEnforcement(t *testing.T) {
	m := newTestManager(t, nil)

	refreshStr, err := m.IssueRefresh(testSubject())
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}

	if m.IsValidAccessToken(refreshStr) {
		t.Fatal("refresh-kind token accepted as access token")
	}
	if !m.IsValidRefreshToken(refreshStr) {
		t.Fatal("refresh-kind token rejected by refresh check")
	}
	kind, err := m.ExtractKind(refreshStr)
	if err != nil || kind != KindRefresh {
		t.Fatalf("ExtractKind = %v, %v", kind, err)
	}

	if _, err := m.Issue(testSubject(), KindUnspecified, time.Hour); !errors.Is(err, ErrUnsupportedKind) {
		t.Fatalf("Issue with unspecified kind = %v, want ErrUnsupportedKind", err)
	}
}

func TestIsValidForPrincipal(t *testing.T) {
	m := newTestManager(t, nil)

	tokenStr, err := m.IssueAccess(testSubject())
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	if !m.IsValidForPrincipal(tokenStr, "a@b.com") {
		t.Fatal("token rejected for its own subject")
	}
	if m.IsValidForPrincipal(tokenStr, "other@b.com") {
		t.Fatal("token accepted for a different subject")
	}
}

func TestExtractClaim(t *testing.T) {
	m := newTestManager(t, nil)

	tokenStr, err := m.IssueAccess(testSubject())
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}

	sub, err := m.ExtractClaim(tokenStr, "sub")
	if err != nil {
		t.Fatalf("ExtractClaim sub failed: %v", err)
	}
	if sub != "a@b.com" {
		t.Fatalf("sub claim = %v", sub)
	}

	typ, err := m.ExtractClaim(tokenStr, "typ")
	if err != nil || typ != "access" {
		t.Fatalf("typ claim = %v, %v", typ, err)
	}

	missing, err := m.ExtractClaim(tokenStr, "nope")
	if err != nil || missing != nil {
		t.Fatalf("absent claim = %v, %v, want nil, nil", missing, err)
	}
}

func TestVerifyOnlyManagerCannotSign(t *testing.T) {
	signing := sharedTestKeys(t)
	pubPEM, err := signing.PublicKeyPEM()
	if err != nil {
		t.Fatalf("PublicKeyPEM failed: %v", err)
	}

	verifyKeys, err := NewKeyManager(KeyConfig{PublicKeyPEM: pubPEM})
	if err != nil {
		t.Fatalf("NewKeyManager verify-only failed: %v", err)
	}
	if verifyKeys.CanSign() {
		t.Fatal("verify-only key manager claims signing capability")
	}

	issuer := newTestManager(t, nil)
	verifier, err := NewManager(verifyKeys, Config{
		Issuer:     "authcore-test",
		AccessTTL:  time.Hour,
		RefreshTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewManager verify-only failed: %v", err)
	}

	tokenStr, err := issuer.IssueAccess(testSubject())
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}
	if _, err := verifier.Parse(tokenStr); err != nil {
		t.Fatalf("verify-only Parse failed: %v", err)
	}
	if _, err := verifier.IssueAccess(testSubject()); !errors.Is(err, ErrSigningKeyMissing) {
		t.Fatalf("verify-only Issue = %v, want ErrSigningKeyMissing", err)
	}
}

func TestKeyManagerGeneratesAndReloads(t *testing.T) {
	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	km, err := NewKeyManager(KeyConfig{
		PrivateKeyPath:    privPath,
		PublicKeyPath:     pubPath,
		GenerateIfMissing: true,
	})
	if err != nil {
		t.Fatalf("NewKeyManager generate failed: %v", err)
	}
	if !km.CanSign() {
		t.Fatal("generated key manager cannot sign")
	}

	info, err := os.Stat(privPath)
	if err != nil {
		t.Fatalf("private key not persisted: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("private key mode = %v, want 0600", info.Mode().Perm())
	}

	reloaded, err := NewKeyManager(KeyConfig{
		PrivateKeyPath: privPath,
		PublicKeyPath:  pubPath,
	})
	if err != nil {
		t.Fatalf("NewKeyManager reload failed: %v", err)
	}
	if !reloaded.CanSign() {
		t.Fatal("reloaded key manager cannot sign")
	}
}

func TestNewKeyManagerRequiresMaterial(t *testing.T) {
	if _, err := NewKeyManager(KeyConfig{}); err == nil {
		t.Fatal("expected error when no key material is configured")
	}
}
