package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoadSettingsDefaults(t *testing.T) {
	s, err := loadSettings(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if s.Addr != ":8080" || s.RequiredScope != "USER" || s.ServiceAccount != "ledger-service" {
		t.Fatalf("unexpected defaults %+v", s)
	}
	if !s.DocsEnabled || !s.Migrate {
		t.Fatalf("expected docs and migrations enabled by default")
	}
	if s.ShutdownAfter != 15*time.Second {
		t.Fatalf("expected 15s shutdown timeout, got %s", s.ShutdownAfter)
	}
	if s.kafkaBrokers() != nil {
		t.Fatalf("expected no kafka brokers")
	}
	if s.trustedProxies() != nil {
		t.Fatalf("expected no trusted proxies by default")
	}
}

func TestTrustedProxiesList(t *testing.T) {
	t.Setenv("LEDGER_TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.7 ,")

	s, err := loadSettings("")
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	got := s.trustedProxies()
	if len(got) != 2 || got[0] != "10.0.0.0/8" || got[1] != "192.168.1.7" {
		t.Fatalf("unexpected trusted proxies %v", got)
	}
}

func TestLoadSettingsFromDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "LEDGER_ADDR=:9000\nLEDGER_KAFKA_BROKERS=k1:9092, k2:9092,\nLEDGER_DOCS_ENABLED=false\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() {
		for _, k := range []string{"LEDGER_ADDR", "LEDGER_KAFKA_BROKERS", "LEDGER_DOCS_ENABLED"} {
			_ = os.Unsetenv(k)
		}
	})
	t.Setenv("LEDGER_LOG_LEVEL", "DEBUG")

	s, err := loadSettings(path)
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if s.Addr != ":9000" || s.DocsEnabled {
		t.Fatalf("dotenv values not applied: %+v", s)
	}
	brokers := s.kafkaBrokers()
	if len(brokers) != 2 || brokers[0] != "k1:9092" || brokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", brokers)
	}
	if s.logLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", s.logLevel())
	}
}

func TestLoadSettingsRejectsUnknownMethod(t *testing.T) {
	t.Setenv("LEDGER_JWT_METHOD", "hs256")
	if _, err := loadSettings(""); err == nil {
		t.Fatal("expected unsupported signing method to fail")
	}
}

func TestLoadSeedUsers(t *testing.T) {
	users, err := loadSeedUsers("")
	if err != nil || len(users) != 2 {
		t.Fatalf("expected built-in users, got %v %v", users, err)
	}

	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := "users:\n  - username: ops@example.com\n    password: opspassword\n    authorities: [USER, ADMIN]\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	users, err = loadSeedUsers(path)
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	if len(users) != 1 || users[0].Username != "ops@example.com" || len(users[0].Authorities) != 2 {
		t.Fatalf("unexpected seed users %+v", users)
	}

	if err := os.WriteFile(path, []byte("users:\n  - username: nopass\n"), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if _, err := loadSeedUsers(path); err == nil {
		t.Fatal("expected missing password to fail")
	}
}

func TestEphemeralSigningKeys(t *testing.T) {
	for _, method := range []string{"ed25519", "rs256"} {
		priv, pub, err := loadSigningKeys(settings{JWTMethod: method}, zerolog.Nop())
		if err != nil {
			t.Fatalf("%s: %v", method, err)
		}
		if len(priv) == 0 || pub != nil {
			t.Fatalf("%s: expected a private key only", method)
		}
	}
}
