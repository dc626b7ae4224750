package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

func TestDispatcherDisabledReturnsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: EventDeposit})
	d.Close()
	if d.Dropped() != 0 || d.Delivered() != 0 {
		t.Fatal("nil dispatcher must report zero counters")
	}
}

func TestDispatcherPreservesOrderAndDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	types := []string{EventAccountCreated, EventDeposit, EventWithdrawal, EventAccountDeleted}
	for _, typ := range types {
		d.Emit(context.Background(), Event{EventType: typ, AccountNumber: 12345})
	}
	d.Close()

	for i, want := range types {
		select {
		case got := <-sink.Events():
			if got.EventType != want {
				t.Fatalf("event %d: expected %s, got %s", i, want, got.EventType)
			}
		default:
			t.Fatalf("event %d missing after close", i)
		}
	}
	if d.Delivered() != uint64(len(types)) {
		t.Fatalf("expected %d delivered, got %d", len(types), d.Delivered())
	}

	d.Emit(context.Background(), Event{EventType: EventDeposit})
	if d.Delivered() != uint64(len(types)) {
		t.Fatal("emit after close must be ignored")
	}
}

func TestDispatcherDropIfFull(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// The first event is taken by the worker and blocks in the sink; the
	// second fills the buffer; the rest are dropped.
	d.Emit(context.Background(), Event{EventType: EventDeposit})
	time.Sleep(20 * time.Millisecond)
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: EventDeposit})
	}

	if got := d.Dropped(); got != 4 {
		t.Fatalf("expected 4 dropped events, got %d", got)
	}
	close(sink.gate)
	d.Close()
}

func TestJSONWriterSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{EventType: EventSignup, Subject: "alice", Success: true})
	sink.Emit(context.Background(), Event{EventType: EventDeposit, AccountNumber: 10001, Success: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	var decoded Event
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if decoded.AccountNumber != 10001 || decoded.EventType != EventDeposit {
		t.Fatalf("unexpected decoded event %+v", decoded)
	}
}

func TestZerologSinkWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	sink := NewZerologSink(zerolog.New(&buf))

	sink.Emit(context.Background(), Event{
		Timestamp: time.Now(),
		EventType: EventTokenExchangeFailed,
		Subject:   "mallory",
		Error:     "authentication failed",
	})

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	if line["level"] != "warn" || line["event_type"] != EventTokenExchangeFailed || line["subject"] != "mallory" {
		t.Fatalf("unexpected log line %v", line)
	}
	if line["component"] != "audit" {
		t.Fatalf("expected component field, got %v", line["component"])
	}
}

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSinkKeysByAccountThenSubject(t *testing.T) {
	w := &fakeWriter{}
	sink := NewKafkaSink(w, zerolog.Nop())

	sink.Emit(context.Background(), Event{EventType: EventDeposit, AccountNumber: 54321, Subject: "alice"})
	sink.Emit(context.Background(), Event{EventType: EventTokenIssued, Subject: "alice"})

	if len(w.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "54321" {
		t.Fatalf("expected account key, got %q", w.msgs[0].Key)
	}
	if string(w.msgs[1].Key) != "alice" {
		t.Fatalf("expected subject key, got %q", w.msgs[1].Key)
	}
	if len(w.msgs[0].Headers) != 1 || string(w.msgs[0].Headers[0].Value) != EventDeposit {
		t.Fatalf("unexpected headers %+v", w.msgs[0].Headers)
	}

	var decoded Event
	if err := json.Unmarshal(w.msgs[0].Value, &decoded); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if decoded.EventType != EventDeposit {
		t.Fatalf("unexpected payload %+v", decoded)
	}

	if err := sink.Close(); err != nil || !w.closed {
		t.Fatalf("expected writer closed, err=%v", err)
	}
}

func TestKafkaSinkLogsWriteFailure(t *testing.T) {
	var buf bytes.Buffer
	w := &fakeWriter{err: errors.New("broker down")}
	sink := NewKafkaSink(w, zerolog.New(&buf))

	sink.Emit(context.Background(), Event{EventType: EventWithdrawal, AccountNumber: 1})

	if !strings.Contains(buf.String(), "broker down") {
		t.Fatalf("expected write failure to be logged, got %q", buf.String())
	}
}

func TestFanoutSinkForwardsToAll(t *testing.T) {
	a := NewChannelSink(1)
	b := NewChannelSink(1)
	FanoutSink{a, nil, b}.Emit(context.Background(), Event{EventType: EventUserDeleted})

	if (<-a.Events()).EventType != EventUserDeleted || (<-b.Events()).EventType != EventUserDeleted {
		t.Fatal("expected both sinks to receive the event")
	}
}
