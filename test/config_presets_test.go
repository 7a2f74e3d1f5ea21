package test

import (
	"testing"
	"time"

	authcore "github.com/lgcovizzi/authcore"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := authcore.DefaultConfig()

	if cfg.Token.AccessTTL != time.Hour {
		t.Fatalf("access ttl = %v", cfg.Token.AccessTTL)
	}
	if cfg.Attempt.Threshold != 5 {
		t.Fatalf("attempt threshold = %d", cfg.Attempt.Threshold)
	}
	if cfg.Captcha.Length != 5 {
		t.Fatalf("captcha length = %d", cfg.Captcha.Length)
	}
	if cfg.Refresh.TTL != 180*24*time.Hour {
		t.Fatalf("refresh ttl = %v", cfg.Refresh.TTL)
	}
	if cfg.Revocation.PrincipalCutoffTTL < cfg.Refresh.TTL {
		t.Fatal("principal cutoff must outlive refresh credentials")
	}
	if !cfg.PasswordReset.Enabled || !cfg.EmailVerification.Enabled {
		t.Fatal("reset and verification flows should default on")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestConfigValidateRejectsInvalid(t *testing.T) {
	cfg := authcore.DefaultConfig()
	cfg.Token.AccessTTL = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero access ttl should not validate")
	}

	cfg = authcore.DefaultConfig()
	cfg.Revocation.PrincipalCutoffTTL = time.Hour
	if err := cfg.Validate(); err == nil {
		t.Fatal("cutoff shorter than refresh ttl should not validate")
	}
}
