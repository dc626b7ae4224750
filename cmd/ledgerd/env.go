package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// settings is the process configuration read from LEDGER_* variables.
type settings struct {
	Addr           string        `env:"LEDGER_ADDR,default=:8080"`
	MetricsAddr    string        `env:"LEDGER_METRICS_ADDR,default=:9090"`
	ServiceAccount string        `env:"LEDGER_SERVICE_ACCOUNT,default=ledger-service"`
	DocsEnabled    bool          `env:"LEDGER_DOCS_ENABLED,default=true"`
	RequiredScope  string        `env:"LEDGER_REQUIRED_SCOPE,default=USER"`
	LogLevel       string        `env:"LEDGER_LOG_LEVEL,default=info"`
	ShutdownAfter  time.Duration `env:"LEDGER_SHUTDOWN_TIMEOUT,default=15s"`
	TrustedProxies string        `env:"LEDGER_TRUSTED_PROXIES"`

	JWTMethod         string `env:"LEDGER_JWT_METHOD,default=ed25519"`
	JWTPrivateKeyFile string `env:"LEDGER_JWT_PRIVATE_KEY_FILE"`
	JWTPublicKeyFile  string `env:"LEDGER_JWT_PUBLIC_KEY_FILE"`

	DatabaseURL string `env:"LEDGER_DATABASE_URL"`
	Migrate     bool   `env:"LEDGER_MIGRATE,default=true"`

	RedisAddr     string `env:"LEDGER_REDIS_ADDR"`
	RedisPassword string `env:"LEDGER_REDIS_PASSWORD"`
	RedisDB       int    `env:"LEDGER_REDIS_DB,default=0"`

	KafkaBrokers string `env:"LEDGER_KAFKA_BROKERS"`
	KafkaTopic   string `env:"LEDGER_KAFKA_TOPIC,default=goledger.audit"`

	SeedFile string `env:"LEDGER_SEED_FILE"`
}

// loadSettings reads an optional dotenv file, then decodes the environment.
// Variables already set in the environment win over the file.
func loadSettings(envFile string) (settings, error) {
	var s settings
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return s, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if err := envdecode.Decode(&s); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return s, fmt.Errorf("decode environment: %w", err)
	}
	if s.ShutdownAfter <= 0 {
		return s, errors.New("LEDGER_SHUTDOWN_TIMEOUT must be positive")
	}
	switch s.JWTMethod {
	case "ed25519", "rs256":
	default:
		return s, fmt.Errorf("LEDGER_JWT_METHOD %q is not supported", s.JWTMethod)
	}
	return s, nil
}

func (s settings) kafkaBrokers() []string {
	return splitList(s.KafkaBrokers)
}

func (s settings) trustedProxies() []string {
	return splitList(s.TrustedProxies)
}

func splitList(v string) []string {
	var out []string
	for _, b := range strings.Split(v, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func (s settings) logLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(s.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
