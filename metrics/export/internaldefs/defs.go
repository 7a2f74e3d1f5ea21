package internaldefs

import (
	authcore "github.com/lgcovizzi/authcore"
)

// CounterDef binds one engine counter to a stable exported metric name.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef binds one engine histogram to a stable exported metric name.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in emission order.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful login attempts."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed login attempts."},
	{ID: authcore.MetricCaptchaRequired, Name: "authcore_captcha_required_total", Help: "Login attempts gated on a captcha."},
	{ID: authcore.MetricCaptchaSolved, Name: "authcore_captcha_solved_total", Help: "Solved captcha challenges."},
	{ID: authcore.MetricCaptchaFailed, Name: "authcore_captcha_failed_total", Help: "Failed captcha answers."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: authcore.MetricValidateSuccess, Name: "authcore_validate_success_total", Help: "Successful access token validations."},
	{ID: authcore.MetricValidateFailure, Name: "authcore_validate_failure_total", Help: "Failed access token validations."},
	{ID: authcore.MetricTokenRevoked, Name: "authcore_token_revoked_total", Help: "Access tokens placed on the revocation registry."},
	{ID: authcore.MetricLogout, Name: "authcore_logout_total", Help: "Single-session logout operations."},
	{ID: authcore.MetricLogoutAll, Name: "authcore_logout_all_total", Help: "Logout-all operations."},
	{ID: authcore.MetricPasswordResetRequest, Name: "authcore_password_reset_request_total", Help: "Password reset requests."},
	{ID: authcore.MetricPasswordResetConfirm, Name: "authcore_password_reset_confirm_total", Help: "Confirmed password resets."},
	{ID: authcore.MetricEmailVerificationRequest, Name: "authcore_email_verification_request_total", Help: "Email verification requests."},
	{ID: authcore.MetricEmailVerificationConfirm, Name: "authcore_email_verification_confirm_total", Help: "Confirmed email verifications."},
	{ID: authcore.MetricStoreDegraded, Name: "authcore_store_degraded_total", Help: "Backing store failures absorbed by the engine."},
}

// HistogramDefs lists every exported histogram in emission order.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricValidateLatency, Name: "authcore_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds, matching the
// engine's fixed latency buckets.
var HistogramBounds = []string{
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.0025",
	"0.005",
	"0.01",
	"+Inf",
}

// HistogramBoundSuffix carries the same bounds as instrument-name-safe
// suffixes for backends without label support.
var HistogramBoundSuffix = []string{
	"0_0001",
	"0_00025",
	"0_0005",
	"0_001",
	"0_0025",
	"0_005",
	"0_01",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed
// bucket count so exporters never index out of range.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form
// Prometheus and OTel histogram conventions expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
