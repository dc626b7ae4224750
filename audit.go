package goLedger

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/MrEthical07/goLedger/internal/audit"
	"github.com/rs/zerolog"
)

// AuditEvent is the record delivered to audit sinks.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine and the ledger.
type AuditSink = audit.Sink

// Audit event types.
const (
	AuditTokenIssued         = audit.EventTokenIssued
	AuditTokenExchangeFailed = audit.EventTokenExchangeFailed
	AuditSignup              = audit.EventSignup
	AuditUserDeleted         = audit.EventUserDeleted
	AuditAccountCreated      = audit.EventAccountCreated
	AuditAccountUpdated      = audit.EventAccountUpdated
	AuditDeposit             = audit.EventDeposit
	AuditWithdrawal          = audit.EventWithdrawal
	AuditAccountDeleted      = audit.EventAccountDeleted
)

type (
	// NoOpSink discards events.
	NoOpSink = audit.NoOpSink
	// ChannelSink forwards events to a buffered channel.
	ChannelSink = audit.ChannelSink
	// JSONWriterSink writes one JSON line per event.
	JSONWriterSink = audit.JSONWriterSink
	// FanoutSink delivers each event to every member.
	FanoutSink = audit.FanoutSink
	// ZerologSink writes events as structured log lines.
	ZerologSink = audit.ZerologSink
	// KafkaSink publishes events as JSON messages.
	KafkaSink = audit.KafkaSink
)

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

// NewJSONWriterSink returns a sink writing newline-delimited JSON to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

// NewZerologSink returns a sink writing to log.
func NewZerologSink(log zerolog.Logger) *ZerologSink { return audit.NewZerologSink(log) }

// NewKafkaSink publishes to topic on brokers. Close the sink after the
// engine is closed.
func NewKafkaSink(brokers []string, topic string, log zerolog.Logger) *KafkaSink {
	return audit.NewKafkaSink(audit.NewKafkaWriter(brokers, topic), log)
}

// AuditSink returns the engine's asynchronous dispatcher so other components
// share its ordering and drop accounting. It is never nil.
func (e *Engine) AuditSink() AuditSink {
	if e == nil || e.audit == nil {
		return audit.NoOpSink{}
	}
	return e.audit
}

// AuditDropped returns how many events were dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) emitAudit(ctx context.Context, eventType, subject string, success bool, err error, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}
	ev := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Subject:   subject,
		RequestID: RequestIDFromContext(ctx),
		IP:        ClientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		ev.Error = auditErrorCode(err)
	}
	e.audit.Emit(ctx, ev)
}

func auditErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrAuthenticationFailed):
		return "bad_credentials"
	case errors.Is(err, ErrExchangeRateLimited), errors.Is(err, ErrSignUpRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUserAlreadyExists):
		return "duplicate"
	case errors.Is(err, ErrArgumentValidation):
		return "invalid_input"
	case errors.Is(err, ErrUserNotFound):
		return "not_found"
	case errors.Is(err, ErrBackendUnavailable):
		return "backend_unavailable"
	default:
		return "internal"
	}
}
