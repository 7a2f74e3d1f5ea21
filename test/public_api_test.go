package test

import (
	"context"
	"net/http"
	"testing"
	"time"

	authcore "github.com/lgcovizzi/authcore"
	"github.com/lgcovizzi/authcore/middleware"
)

// This test intentionally guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = authcore.New

	var _ *authcore.Engine
	var _ authcore.Config
	var _ authcore.LoginRequest
	var _ *authcore.LoginResult
	var _ *authcore.Introspection
	var _ authcore.SessionInfo
	var _ authcore.UserDirectory
	var _ authcore.Notifier
	var _ authcore.AuditSink
	var _ authcore.DeviceContext

	var _ error = authcore.ErrInvalidCredentials
	var _ error = authcore.ErrCaptchaRequired
	var _ error = authcore.ErrCaptchaInvalid
	var _ error = authcore.ErrRateLimited
	var _ error = authcore.ErrRefreshInvalid
	var _ error = authcore.ErrTokenInvalid
	var _ error = authcore.ErrTokenRevoked
	var _ error = authcore.ErrStoreUnavailable

	var _ func(*authcore.Engine) func(http.Handler) http.Handler = middleware.Guard
	var _ func(*authcore.Engine, string) func(http.Handler) http.Handler = middleware.RequireRole

	var _ func(*authcore.Engine, context.Context, authcore.LoginRequest) (*authcore.LoginResult, error) = (*authcore.Engine).Login
	var _ func(*authcore.Engine, context.Context, string, authcore.DeviceContext) (*authcore.LoginResult, error) = (*authcore.Engine).Refresh
	var _ func(*authcore.Engine, context.Context, string) (*authcore.Introspection, error) = (*authcore.Engine).Validate
	var _ func(*authcore.Engine, context.Context, string, string) error = (*authcore.Engine).Logout
	var _ func(*authcore.Engine, context.Context, uint64) error = (*authcore.Engine).LogoutAll
	var _ func(*authcore.Engine, time.Duration) error = (*authcore.Engine).StartSweeper
	var _ func(*authcore.Engine, context.Context, string, string) (uint64, string, error) = (*authcore.Engine).ConfirmPasswordReset
	var _ func(*authcore.Engine, context.Context, string) (uint64, error) = (*authcore.Engine).ConfirmEmailVerification
}
