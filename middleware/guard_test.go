package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lgcovizzi/authcore"
	"github.com/lgcovizzi/authcore/password"
)

type staticDirectory struct {
	principal authcore.Principal
}

func (d *staticDirectory) LookupByEmail(_ context.Context, email string) (*authcore.Principal, error) {
	if email != d.principal.Email {
		return nil, authcore.ErrPrincipalNotFound
	}
	cp := d.principal
	return &cp, nil
}

func (d *staticDirectory) LookupByID(_ context.Context, id uint64) (*authcore.Principal, error) {
	if id != d.principal.ID {
		return nil, authcore.ErrPrincipalNotFound
	}
	cp := d.principal
	return &cp, nil
}

func newGuardedEngine(t *testing.T, roles []string) (*authcore.Engine, string) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("sqlite open failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}

	hasher, err := password.NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt init failed: %v", err)
	}
	hash, err := hasher.Hash("guard-password-1")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	cfg := authcore.DefaultConfig()
	cfg.Token.PrivateKeyPEM = pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	cfg.Audit.Enabled = false

	engine, err := authcore.New().
		WithConfig(cfg).
		WithRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()})).
		WithDB(db).
		WithUserDirectory(&staticDirectory{principal: authcore.Principal{
			ID:            1,
			Email:         "guard@example.com",
			PasswordHash:  hash,
			Roles:         roles,
			Enabled:       true,
			EmailVerified: true,
		}}).
		WithHasher(hasher).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	result, err := engine.Login(context.Background(), authcore.LoginRequest{
		Email:    "guard@example.com",
		Password: "guard-password-1",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	return engine, result.AccessToken
}

func TestGuardAcceptsValidBearer(t *testing.T) {
	engine, access := newGuardedEngine(t, []string{"user"})

	var seen *authcore.Introspection
	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IntrospectionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if seen == nil || seen.PrincipalID != 1 || seen.Email != "guard@example.com" {
		t.Fatalf("introspection = %+v", seen)
	}
}

func TestGuardRejectsMissingAndMalformed(t *testing.T) {
	engine, _ := newGuardedEngine(t, []string{"user"})

	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, auth := range []string{"", "Bearer ", "Basic abc", "Bearer not-a-token"} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("auth %q status = %d, want 401", auth, rec.Code)
		}
	}
}

func TestGuardRejectsLoggedOutToken(t *testing.T) {
	engine, access := newGuardedEngine(t, []string{"user"})

	if err := engine.Logout(context.Background(), access, ""); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	engine, access := newGuardedEngine(t, []string{"user", "admin"})

	admin := RequireRole(engine, "admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	auditor := RequireRole(engine, "auditor")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without the role")
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+access)

	rec := httptest.NewRecorder()
	admin.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	auditor.ServeHTTP(rec, req.Clone(req.Context()))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("auditor status = %d, want 403", rec.Code)
	}
}
