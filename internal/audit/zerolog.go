package audit

import (
	"context"

	"github.com/rs/zerolog"
)

// ZerologSink writes audit events as structured log lines.
type ZerologSink struct {
	log zerolog.Logger
}

func NewZerologSink(log zerolog.Logger) *ZerologSink {
	return &ZerologSink{log: log.With().Str("component", "audit").Logger()}
}

func (s *ZerologSink) Emit(_ context.Context, event Event) {
	if s == nil {
		return
	}
	level := zerolog.InfoLevel
	if !event.Success {
		level = zerolog.WarnLevel
	}
	e := s.log.WithLevel(level).
		Time("ts", event.Timestamp).
		Str("event_type", event.EventType).
		Bool("success", event.Success)
	if event.Subject != "" {
		e = e.Str("subject", event.Subject)
	}
	if event.AccountNumber != 0 {
		e = e.Int64("account_number", event.AccountNumber)
	}
	if event.RequestID != "" {
		e = e.Str("request_id", event.RequestID)
	}
	if event.IP != "" {
		e = e.Str("ip", event.IP)
	}
	if event.Error != "" {
		e = e.Str("error", event.Error)
	}
	if len(event.Metadata) > 0 {
		e = e.Interface("metadata", event.Metadata)
	}
	e.Msg("audit")
}
