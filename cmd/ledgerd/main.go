// Command ledgerd serves the account ledger HTTP API.
//
// Configuration comes from LEDGER_* environment variables, optionally
// preloaded from a dotenv file (-env). Without LEDGER_DATABASE_URL accounts
// live in memory; without LEDGER_REDIS_ADDR credentials do too and the
// exchange throttle is off.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goLedger "github.com/MrEthical07/goLedger"
	"github.com/MrEthical07/goLedger/credential"
	"github.com/MrEthical07/goLedger/httpapi"
	"github.com/MrEthical07/goLedger/internal/stores"
	"github.com/MrEthical07/goLedger/ledger"
	promexport "github.com/MrEthical07/goLedger/metrics/export/prometheus"
	"github.com/MrEthical07/goLedger/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const credentialPrefix = "gl"

func main() {
	envFile := flag.String("env", ".env", "dotenv file loaded before reading the environment")
	flag.Parse()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "ledgerd").Logger()

	s, err := loadSettings(*envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log = log.Level(s.logLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, s, log); err != nil {
		log.Fatal().Err(err).Msg("ledgerd stopped")
	}
}

func run(ctx context.Context, s settings, log zerolog.Logger) error {
	cfg := goLedger.DefaultConfig()
	cfg.JWT.SigningMethod = s.JWTMethod
	priv, pub, err := loadSigningKeys(s, log)
	if err != nil {
		return err
	}
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub

	var db *sqlx.DB
	if s.DatabaseURL != "" {
		db, err = stores.OpenPostgres(ctx, s.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if s.Migrate {
			if err := stores.Migrate(db.DB); err != nil {
				return err
			}
			log.Info().Msg("database migrations applied")
		}
	}

	builder := goLedger.New().WithConfig(cfg).WithLogger(log)

	var creds goLedger.CredentialStore
	switch {
	case s.RedisAddr != "":
		rdb := redis.NewClient(&redis.Options{Addr: s.RedisAddr, Password: s.RedisPassword, DB: s.RedisDB})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		creds = credential.NewRedisStore(rdb, credentialPrefix)
		builder.WithRedis(rdb)
		log.Info().Str("addr", s.RedisAddr).Msg("credentials in redis")
	case db != nil:
		creds = credential.NewPostgresStore(db)
		log.Info().Msg("credentials in postgres")
	default:
		creds = credential.NewMemoryStore()
		log.Warn().Msg("credentials in memory; users are lost on restart")
	}
	builder.WithCredentialStore(creds)

	if brokers := s.kafkaBrokers(); len(brokers) > 0 {
		sink := goLedger.NewKafkaSink(brokers, s.KafkaTopic, log)
		defer sink.Close()
		builder.WithAuditSink(sink)
	} else {
		builder.WithAuditSink(goLedger.NewZerologSink(log.With().Str("component", "audit").Logger()))
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	seeds, err := loadSeedUsers(s.SeedFile)
	if err != nil {
		return err
	}
	seeded, err := engine.EnsureSeedUsers(ctx, seeds)
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	if seeded > 0 {
		log.Info().Int("count", seeded).Msg("seed users created")
	}

	var accounts ledger.Store = stores.NewMemoryAccounts()
	if db != nil {
		accounts = stores.NewPostgresAccounts(db)
	}
	svc, err := ledger.NewService(accounts,
		ledger.WithAuditSink(engine.AuditSink()),
		ledger.WithLogger(log),
		ledger.WithServiceAccount(s.ServiceAccount),
	)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		promexport.NewExporter(engine),
	)

	policy := middleware.DefaultPolicy()
	policy.RequiredScope = s.RequiredScope
	api, err := httpapi.NewServer(httpapi.Config{
		Identity:    engine,
		Accounts:    svc,
		Logger:      log,
		Policy:      &policy,
		DocsEnabled: s.DocsEnabled,
		Registerer:  reg,

		TrustedProxies: s.trustedProxies(),
	})
	if err != nil {
		return err
	}

	servers := []*http.Server{
		{Addr: s.Addr, Handler: api.Handler(), ReadHeaderTimeout: 5 * time.Second},
	}
	if s.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		servers = append(servers, &http.Server{Addr: s.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second})
	}
	return serve(ctx, servers, s.ShutdownAfter, log)
}

// serve runs every server until ctx ends or one of them fails, then shuts
// all of them down within timeout.
func serve(ctx context.Context, servers []*http.Server, timeout time.Duration, log zerolog.Logger) error {
	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			log.Info().Str("addr", srv.Addr).Msg("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Str("addr", srv.Addr).Msg("shutdown")
		}
	}
	return runErr
}

// loadSigningKeys reads the configured PEM files or generates an ephemeral
// key pair. Tokens signed with an ephemeral key die with the process.
func loadSigningKeys(s settings, log zerolog.Logger) ([]byte, []byte, error) {
	if s.JWTPrivateKeyFile != "" {
		priv, err := os.ReadFile(s.JWTPrivateKeyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("read private key: %w", err)
		}
		var pub []byte
		if s.JWTPublicKeyFile != "" {
			if pub, err = os.ReadFile(s.JWTPublicKeyFile); err != nil {
				return nil, nil, fmt.Errorf("read public key: %w", err)
			}
		}
		return priv, pub, nil
	}

	log.Warn().Str("method", s.JWTMethod).Msg("no signing key configured; generating an ephemeral key")
	if s.JWTMethod == "rs256" {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, nil, err
		}
		return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}), nil, nil
	}
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return priv, nil, nil
}
