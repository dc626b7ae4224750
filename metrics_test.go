package goLedger

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricExchangeSuccess)

	if got := m.Value(MetricExchangeSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricExchangeSuccess)
	m.Inc(MetricExchangeSuccess)
	m.Inc(MetricExchangeSuccess)

	if got := m.Value(MetricExchangeSuccess); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricValidateSuccess)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricValidateSuccess); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}

	for _, d := range observations {
		m.Observe(MetricValidateLatency, d)
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricValidateLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}

	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Inc(MetricExchangeSuccess)
	m.Inc(MetricExchangeFailure)
	m.Inc(MetricExchangeFailure)
	m.Observe(MetricValidateLatency, 2*time.Millisecond)

	snap := m.Snapshot()

	if snap.Counters[MetricExchangeSuccess] != 1 {
		t.Fatalf("expected MetricExchangeSuccess=1 got %d", snap.Counters[MetricExchangeSuccess])
	}
	if snap.Counters[MetricExchangeFailure] != 2 {
		t.Fatalf("expected MetricExchangeFailure=2 got %d", snap.Counters[MetricExchangeFailure])
	}
	if len(snap.Histograms[MetricValidateLatency]) != 8 {
		t.Fatalf("expected histogram length 8")
	}
	if snap.Histograms[MetricValidateLatency][0] != 1 {
		t.Fatalf("expected first histogram bucket=1 got %d", snap.Histograms[MetricValidateLatency][0])
	}
}

func TestValidateRecordsLatencyWithoutStoreCalls(t *testing.T) {
	h := newTestEngine(t)
	token := h.mustIssue(t, "user1@example.com", "user1password")

	lookups := h.store.lookups.Load()
	if _, err := h.engine.Validate(context.Background(), token, "USER"); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got := h.store.lookups.Load(); got != lookups {
		t.Fatalf("validate must not touch the credential store, lookups %d -> %d", lookups, got)
	}

	snap := h.engine.MetricsSnapshot()
	if snap.Counters[MetricValidateSuccess] != 1 {
		t.Fatalf("expected one validate success, got %d", snap.Counters[MetricValidateSuccess])
	}
	var total uint64
	for _, b := range snap.Histograms[MetricValidateLatency] {
		total += b
	}
	if total != 1 {
		t.Fatalf("expected one latency observation, got %d", total)
	}
}
