package goLedger

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goLedger/credential"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

type countingCredentials struct {
	*credential.MemoryStore
	lookups atomic.Int64
	updates atomic.Int64
}

func (s *countingCredentials) Lookup(ctx context.Context, username string) (credential.Record, error) {
	s.lookups.Add(1)
	return s.MemoryStore.Lookup(ctx, username)
}

func (s *countingCredentials) UpdatePasswordHash(ctx context.Context, username, hash string) error {
	s.updates.Add(1)
	return s.MemoryStore.UpdatePasswordHash(ctx, username, hash)
}

type fakeClock struct{ now atomic.Int64 }

func newFakeClock(t time.Time) *fakeClock {
	c := &fakeClock{}
	c.now.Store(t.UnixNano())
	return c
}

func (c *fakeClock) Now() time.Time          { return time.Unix(0, c.now.Load()).UTC() }
func (c *fakeClock) Advance(d time.Duration) { c.now.Add(int64(d)) }

type testHarness struct {
	engine *Engine
	store  *countingCredentials
	clock  *fakeClock
	events *ChannelSink
	redis  *miniredis.Miniredis
}

type harnessOption func(*Config, *Builder, *testHarness)

func withRedisThrottle(t testing.TB) harnessOption {
	return func(_ *Config, b *Builder, h *testHarness) {
		mr, err := miniredis.Run()
		if err != nil {
			t.Fatalf("miniredis: %v", err)
		}
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() {
			_ = rdb.Close()
			mr.Close()
		})
		b.WithRedis(rdb)
		h.redis = mr
	}
}

func withConfig(fn func(*Config)) harnessOption {
	return func(cfg *Config, _ *Builder, _ *testHarness) { fn(cfg) }
}

func testConfig(tb testing.TB) Config {
	tb.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		tb.Fatalf("generate key: %v", err)
	}
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newTestEngine(tb testing.TB, opts ...harnessOption) *testHarness {
	tb.Helper()
	h := &testHarness{
		store:  &countingCredentials{MemoryStore: credential.NewMemoryStore()},
		clock:  newFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)),
		events: NewChannelSink(256),
	}
	cfg := testConfig(tb)
	b := New()
	for _, opt := range opts {
		opt(&cfg, b, h)
	}

	engine, err := b.WithConfig(cfg).
		WithCredentialStore(h.store).
		WithAuditSink(h.events).
		WithTimeFunc(h.clock.Now).
		Build()
	if err != nil {
		tb.Fatalf("build engine: %v", err)
	}
	tb.Cleanup(engine.Close)
	h.engine = engine

	if _, err := engine.EnsureSeedUsers(context.Background(), DefaultSeedUsers()); err != nil {
		tb.Fatalf("seed users: %v", err)
	}
	return h
}

func (h *testHarness) mustIssue(tb testing.TB, username, pass string) string {
	tb.Helper()
	res, err := h.engine.IssueToken(context.Background(), username, pass)
	if err != nil {
		tb.Fatalf("issue token for %s: %v", username, err)
	}
	return res.Token
}

func (h *testHarness) nextEvent(t *testing.T) AuditEvent {
	t.Helper()
	select {
	case ev := <-h.events.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
	}
	return AuditEvent{}
}

func TestIssueTokenAndValidate(t *testing.T) {
	h := newTestEngine(t)
	ctx := context.Background()

	res, err := h.engine.IssueToken(ctx, "User1@Example.com", "user1password")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if res.Subject != "user1@example.com" {
		t.Fatalf("expected stored username as subject, got %q", res.Subject)
	}
	if want := h.clock.Now().Add(36000 * time.Second); !res.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, res.ExpiresAt)
	}

	auth, err := h.engine.Validate(ctx, res.Token, "USER")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if auth.Subject != "user1@example.com" || !auth.HasScope("USER") || auth.TokenID == "" {
		t.Fatalf("unexpected auth result %+v", auth)
	}
}

func TestIssueTokenFailuresAreIndistinguishable(t *testing.T) {
	h := newTestEngine(t)
	ctx := context.Background()

	_, errUnknown := h.engine.IssueToken(ctx, "ghost@example.com", "whatever1")
	_, errWrong := h.engine.IssueToken(ctx, "user1@example.com", "wrong-password")
	_, errBlank := h.engine.IssueToken(ctx, "", "")

	for name, err := range map[string]error{"unknown": errUnknown, "wrong": errWrong, "blank": errBlank} {
		if !errors.Is(err, ErrAuthenticationFailed) {
			t.Fatalf("%s: expected ErrAuthenticationFailed, got %v", name, err)
		}
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Fatalf("failure messages differ: %q vs %q", errUnknown, errWrong)
	}
	if got := h.engine.MetricsSnapshot().Counters[MetricExchangeFailure]; got != 3 {
		t.Fatalf("expected 3 exchange failures, got %d", got)
	}
}

func TestValidateExpiryBoundary(t *testing.T) {
	h := newTestEngine(t)
	ctx := context.Background()
	token := h.mustIssue(t, "user2@example.com", "user2password")

	h.clock.Advance(36000*time.Second - time.Second)
	if _, err := h.engine.Validate(ctx, token, ""); err != nil {
		t.Fatalf("expected token valid one second before expiry: %v", err)
	}

	h.clock.Advance(time.Second)
	if _, err := h.engine.Validate(ctx, token, ""); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at exp, got %v", err)
	}
}

func TestValidateRejectsTamperedAndForeignTokens(t *testing.T) {
	h := newTestEngine(t)
	other := newTestEngine(t)
	ctx := context.Background()

	token := h.mustIssue(t, "user1@example.com", "user1password")
	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	cases := map[string]string{
		"tampered": tampered,
		"foreign":  other.mustIssue(t, "user1@example.com", "user1password"),
		"garbage":  "not-a-token",
		"empty":    "",
	}
	for name, tok := range cases {
		if _, err := h.engine.Validate(ctx, tok, ""); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("%s: expected ErrTokenInvalid, got %v", name, err)
		}
	}
}

func TestValidateInsufficientScope(t *testing.T) {
	h := newTestEngine(t)
	token := h.mustIssue(t, "user1@example.com", "user1password")

	if _, err := h.engine.Validate(context.Background(), token, "ADMIN"); !errors.Is(err, ErrInsufficientScope) {
		t.Fatalf("expected ErrInsufficientScope, got %v", err)
	}
	if got := h.engine.MetricsSnapshot().Counters[MetricValidateScopeDenied]; got != 1 {
		t.Fatalf("expected scope denial metric, got %d", got)
	}
}

func TestExchangeThrottle(t *testing.T) {
	h := newTestEngine(t, withRedisThrottle(t), withConfig(func(c *Config) {
		c.Exchange.MaxFailures = 2
		c.Exchange.FailureWindow = time.Minute
	}))
	ctx := WithClientIP(context.Background(), "198.51.100.7")

	for i := 0; i < 2; i++ {
		if _, err := h.engine.IssueToken(ctx, "user1@example.com", "bad-password"); !errors.Is(err, ErrAuthenticationFailed) {
			t.Fatalf("attempt %d: expected auth failure, got %v", i, err)
		}
	}
	if _, err := h.engine.IssueToken(ctx, "user1@example.com", "user1password"); !errors.Is(err, ErrExchangeRateLimited) {
		t.Fatalf("expected ErrExchangeRateLimited even with the right password, got %v", err)
	}

	h.redis.FastForward(time.Minute + time.Second)
	if _, err := h.engine.IssueToken(ctx, "user1@example.com", "user1password"); err != nil {
		t.Fatalf("expected exchange after window: %v", err)
	}
}

func TestExchangeUpgradesLegacyHash(t *testing.T) {
	h := newTestEngine(t)
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("legacy-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if err := h.store.Create(ctx, credential.Record{Username: "legacy", PasswordHash: string(legacy), Authorities: []string{"USER"}}); err != nil {
		t.Fatalf("create legacy user: %v", err)
	}

	if _, err := h.engine.IssueToken(ctx, "legacy", "legacy-secret"); err != nil {
		t.Fatalf("issue with bcrypt hash: %v", err)
	}
	rec, _ := h.store.Lookup(ctx, "legacy")
	if !strings.HasPrefix(rec.PasswordHash, "$argon2id$") {
		t.Fatalf("expected hash upgraded to argon2id, got %q", rec.PasswordHash)
	}
	if _, err := h.engine.IssueToken(ctx, "legacy", "legacy-secret"); err != nil {
		t.Fatalf("issue after upgrade: %v", err)
	}
	if got := h.store.updates.Load(); got != 1 {
		t.Fatalf("expected exactly one hash rewrite, got %d", got)
	}
}

func TestIssueTokenEmitsAudit(t *testing.T) {
	h := newTestEngine(t)
	ctx := WithRequestID(WithClientIP(context.Background(), "203.0.113.4"), "req-1")

	h.mustIssue(t, "user1@example.com", "user1password")
	ev := h.nextEvent(t)
	if ev.EventType != AuditTokenIssued || !ev.Success || ev.Metadata["jti"] == "" {
		t.Fatalf("unexpected event %+v", ev)
	}

	_, _ = h.engine.IssueToken(ctx, "user1@example.com", "nope-nope")
	ev = h.nextEvent(t)
	if ev.EventType != AuditTokenExchangeFailed || ev.Success || ev.Error != "bad_credentials" {
		t.Fatalf("unexpected failure event %+v", ev)
	}
	if ev.IP != "203.0.113.4" || ev.RequestID != "req-1" {
		t.Fatalf("expected request context in event, got %+v", ev)
	}
}

func TestBuildRequiresKeysAndStore(t *testing.T) {
	cfg := DefaultConfig()
	if _, err := New().WithConfig(cfg).WithCredentialStore(credential.NewMemoryStore()).Build(); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid without keys, got %v", err)
	}

	cfg = testConfig(t)
	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected error without credential store")
	}

	b := New().WithConfig(cfg).WithCredentialStore(credential.NewMemoryStore())
	e, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer e.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected builder reuse to fail")
	}
}

func TestNilEngine(t *testing.T) {
	var e *Engine
	if _, err := e.IssueToken(context.Background(), "a", "b"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.Validate(context.Background(), "t", ""); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	e.Close()
	if e.AuditDropped() != 0 {
		t.Fatal("expected zero drops on nil engine")
	}
}
