// Command ledger-loadtest drives the engine and ledger service in process
// against memory backends and reports per-phase latency percentiles.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"flag"
	"fmt"
	mrand "math/rand"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	goLedger "github.com/MrEthical07/goLedger"
	"github.com/MrEthical07/goLedger/credential"
	"github.com/MrEthical07/goLedger/internal/stores"
	"github.com/MrEthical07/goLedger/ledger"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	var (
		users       = flag.Int("users", 8, "seeded users")
		accounts    = flag.Int("accounts", 1000, "accounts opened before the ledger phases")
		concurrency = flag.Int("concurrency", 64, "concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per validate/deposit/withdraw phase")
		exchanges   = flag.Int("exchanges", 200, "credential exchanges (argon2 bound)")
		throttle    = flag.Bool("throttle", false, "enable the redis exchange throttle on miniredis")
	)
	flag.Parse()

	if *users <= 0 || *accounts <= 0 || *concurrency <= 0 || *ops <= 0 || *exchanges <= 0 {
		fmt.Fprintln(os.Stderr, "users, accounts, concurrency, ops and exchanges must be > 0")
		os.Exit(2)
	}
	if *accounts > 50000 {
		fmt.Fprintln(os.Stderr, "accounts must fit the 5-digit number space")
		os.Exit(2)
	}

	ctx := context.Background()
	engine, cleanup, err := newEngine(*throttle)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	seeds := make([]goLedger.SeedUser, *users)
	for i := range seeds {
		seeds[i] = goLedger.SeedUser{Username: fmt.Sprintf("load%d@example.com", i), Password: "loadpassword"}
	}
	if _, err := engine.EnsureSeedUsers(ctx, seeds); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}

	svc, err := ledger.NewService(stores.NewMemoryAccounts(), ledger.WithAuditSink(engine.AuditSink()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledger: %v\n", err)
		os.Exit(1)
	}

	tokens := make([]string, 0, *exchanges)
	var tokMu sync.Mutex
	exchangeStats := runPhase(*exchanges, *concurrency, func(_ *mrand.Rand, i int) error {
		u := seeds[i%len(seeds)]
		res, err := engine.IssueToken(ctx, u.Username, u.Password)
		if err != nil {
			return err
		}
		tokMu.Lock()
		tokens = append(tokens, res.Token)
		tokMu.Unlock()
		return nil
	})
	if len(tokens) == 0 {
		fmt.Fprintln(os.Stderr, "no tokens issued")
		os.Exit(1)
	}

	validateStats := runPhase(*ops, *concurrency, func(r *mrand.Rand, _ int) error {
		_, err := engine.Validate(ctx, tokens[r.Intn(len(tokens))], "USER")
		return err
	})

	fmt.Printf("opening %d accounts...\n", *accounts)
	numbers := make([]string, *accounts)
	for i := range numbers {
		acct, err := svc.CreateAccount(ctx, fmt.Sprintf("holder-%d", i), "LOAD")
		if err != nil {
			fmt.Fprintf(os.Stderr, "create account: %v\n", err)
			os.Exit(1)
		}
		numbers[i] = strconv.FormatInt(acct.Number, 10)
	}

	depositStats := runPhase(*ops, *concurrency, func(r *mrand.Rand, _ int) error {
		_, err := svc.Deposit(withActor(ctx, r), numbers[r.Intn(len(numbers))], "10")
		return err
	})
	// Withdrawals can legitimately hit ErrInsufficientBalance; those count
	// as failures in the report.
	withdrawStats := runPhase(*ops, *concurrency, func(r *mrand.Rand, _ int) error {
		_, err := svc.Withdraw(withActor(ctx, r), numbers[r.Intn(len(numbers))], "5")
		return err
	})

	fmt.Println("---- results ----")
	printStats("exchange", exchangeStats)
	printStats("validate", validateStats)
	printStats("deposit", depositStats)
	printStats("withdraw", withdrawStats)
	fmt.Printf("audit dropped=%d\n", engine.AuditDropped())
}

func newEngine(throttle bool) (*goLedger.Engine, func(), error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	cfg := goLedger.DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.Audit.DropIfFull = true

	b := goLedger.New().
		WithConfig(cfg).
		WithCredentialStore(credential.NewMemoryStore()).
		WithAuditSink(goLedger.NoOpSink{}).
		WithLogger(zerolog.Nop())

	cleanup := func() {}
	if throttle {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, err
		}
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		b.WithRedis(rdb)
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("exchange throttle on miniredis at %s\n", mr.Addr())
	}

	engine, err := b.Build()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return engine, func() {
		engine.Close()
		cleanup()
	}, nil
}

func withActor(ctx context.Context, r *mrand.Rand) context.Context {
	return ledger.WithActor(ctx, fmt.Sprintf("load%d@example.com", r.Intn(8)))
}

// runPhase spreads ops calls of fn over concurrency workers.
func runPhase(ops, concurrency int, fn func(r *mrand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			local := make([]time.Duration, 0, ops/concurrency+1)
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					break
				}
				t0 := time.Now()
				if err := fn(r, i); err != nil {
					atomic.AddInt64(&failures, 1)
				}
				local = append(local, time.Since(t0))
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	switch {
	case len(samples) == 0:
		return 0
	case p <= 0:
		return samples[0]
	case p >= 100:
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name, s.ops, s.failures,
		s.total.Round(time.Millisecond), s.opsPerS,
		s.p50.Round(time.Microsecond), s.p95.Round(time.Microsecond), s.p99.Round(time.Microsecond),
	)
}
