//go:build integration
// +build integration

package test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	authcore "github.com/lgcovizzi/authcore"
	"github.com/lgcovizzi/authcore/password"
)

var (
	integrationKeyOnce sync.Once
	integrationKeyPEM  []byte
)

func integrationPrivateKeyPEM(t *testing.T) []byte {
	t.Helper()
	integrationKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		integrationKeyPEM = pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(key),
		})
	})
	return integrationKeyPEM
}

type fixedDirectory struct {
	mu   sync.Mutex
	byID map[uint64]authcore.Principal
}

func (d *fixedDirectory) LookupByEmail(_ context.Context, email string) (*authcore.Principal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.byID {
		if p.Email == email {
			cp := p
			return &cp, nil
		}
	}
	return nil, authcore.ErrPrincipalNotFound
}

func (d *fixedDirectory) LookupByID(_ context.Context, id uint64) (*authcore.Principal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.byID[id]
	if !ok {
		return nil, authcore.ErrPrincipalNotFound
	}
	cp := p
	return &cp, nil
}

func newIntegrationEngine(t *testing.T) (*authcore.Engine, *fixedDirectory) {
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

	hasher, err := password.NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt init failed: %v", err)
	}
	hash, err := hasher.Hash("integration-pass-1")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	directory := &fixedDirectory{
		byID: map[uint64]authcore.Principal{
			1: {
				ID:            1,
				Email:         "it@example.com",
				PasswordHash:  hash,
				Roles:         []string{"user"},
				Enabled:       true,
				EmailVerified: true,
			},
		},
	}

	cfg := authcore.DefaultConfig()
	cfg.Token.PrivateKeyPEM = integrationPrivateKeyPEM(t)
	cfg.Audit.Enabled = false

	engine, err := authcore.New().
		WithConfig(cfg).
		WithRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()})).
		WithDB(db).
		WithUserDirectory(directory).
		WithHasher(hasher).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, directory
}
