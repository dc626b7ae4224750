package audit

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer used by KafkaSink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter builds a writer that hashes message keys across partitions.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// KafkaSink publishes each event as a JSON message. Messages for the same
// account (or, without one, the same subject) share a key so they stay ordered
// within a partition.
type KafkaSink struct {
	writer  MessageWriter
	log     zerolog.Logger
	timeout time.Duration
}

func NewKafkaSink(w MessageWriter, log zerolog.Logger) *KafkaSink {
	return &KafkaSink{
		writer:  w,
		log:     log.With().Str("component", "audit.kafka").Logger(),
		timeout: 5 * time.Second,
	}
}

func (s *KafkaSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	value, err := json.Marshal(event)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", event.EventType).Msg("marshal audit event")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   messageKey(event),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("event_type", event.EventType).Msg("publish audit event")
	}
}

// Close flushes and closes the underlying writer.
func (s *KafkaSink) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}

func messageKey(event Event) []byte {
	if event.AccountNumber != 0 {
		return []byte(strconv.FormatInt(event.AccountNumber, 10))
	}
	return []byte(event.Subject)
}
