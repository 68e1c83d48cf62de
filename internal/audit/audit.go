package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Kind labels one credential-lifecycle event. The set is closed: flows emit
// these constants, sinks and dashboards key on them.
type Kind string

const (
	KindRegisterSuccess       Kind = "register_success"
	KindRegisterFailure       Kind = "register_failure"
	KindRegisterDuplicate     Kind = "register_duplicate"
	KindLoginSuccess          Kind = "login_success"
	KindLoginFailure          Kind = "login_failure"
	KindAccountLocked         Kind = "account_locked"
	KindMFARequired           Kind = "mfa_required"
	KindMFASuccess            Kind = "mfa_success"
	KindMFAFailure            Kind = "mfa_failure"
	KindVerificationIssued    Kind = "verification_issued"
	KindVerificationConfirm   Kind = "verification_confirm"
	KindVerificationFailure   Kind = "verification_failure"
	KindPasswordResetRequest  Kind = "password_reset_request"
	KindPasswordResetConfirm  Kind = "password_reset_confirm"
	KindPasswordResetFailure  Kind = "password_reset_failure"
	KindPasswordChangeSuccess Kind = "password_change_success"
	KindPasswordChangeFailure Kind = "password_change_failure"
	KindLogout                Kind = "logout"
	KindAuthenticateRejected  Kind = "authenticate_rejected"
	KindProfileUpsert         Kind = "profile_upsert"
	KindDispatchFailure       Kind = "dispatch_failure"
)

// Event is one audit record. Timestamp is stamped by the [Dispatcher] when
// the emitter leaves it zero.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Kind      Kind              `json:"kind"`
	UserID    string            `json:"user_id,omitempty"`
	TokenID   string            `json:"token_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives dispatched audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops every event.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink hands events to a consumer over a buffered channel. Emit never
// blocks; events beyond the buffer are dropped.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(_ context.Context, event Event) {
	select {
	case s.events <- event:
	default:
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{
		enc: json.NewEncoder(w),
	}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.enc == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.enc.Encode(event)
}
