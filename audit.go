package authcore

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// AuditEvent is one security-relevant occurrence emitted by the Engine.
type AuditEvent struct {
	Timestamp   time.Time         `json:"timestamp"`
	EventType   string            `json:"event_type"`
	PrincipalID uint64            `json:"principal_id,omitempty"`
	Email       string            `json:"email,omitempty"`
	IP          string            `json:"ip,omitempty"`
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Audit event types emitted by the Engine.
const (
	AuditLogin             = "login"
	AuditRefresh           = "refresh"
	AuditLogout            = "logout"
	AuditLogoutAll         = "logout_all"
	AuditValidate          = "validate"
	AuditCaptchaIssued     = "captcha_issued"
	AuditCaptchaSolved     = "captcha_solved"
	AuditCaptchaFailed     = "captcha_failed"
	AuditResetRequested    = "password_reset_requested"
	AuditResetConfirmed    = "password_reset_confirmed"
	AuditVerifyRequested   = "email_verification_requested"
	AuditVerifyConfirmed   = "email_verification_confirmed"
	AuditNotifierFailure   = "notifier_failure"
	AuditStoreDegraded     = "store_degraded"
	AuditPrincipalRevoked  = "principal_revoked"
	AuditCredentialEvicted = "credential_evicted"
)

// AuditSink receives events from the dispatcher goroutine. Emit must be
// safe for concurrent use and should return promptly.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink forwards events to a buffered channel for consumption by
// caller-owned pipelines.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON line per event, suitable for piping into
// log shippers.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
