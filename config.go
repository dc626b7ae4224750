package goLedger

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goLedger/jwt"
	"github.com/MrEthical07/goLedger/password"
)

// Config is the full engine configuration. Build clones it, so later changes
// to the caller's copy have no effect on a running Engine.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	Exchange ExchangeConfig
	SignUp   SignUpConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token signing. PrivateKey is required for issuing;
// PublicKey is derived from it when empty.
type JWTConfig struct {
	TTL           time.Duration
	SigningMethod string // "ed25519" (default) or "rs256"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
	KeyID         string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id cost parameters and the signup length floor.
type PasswordConfig struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	UpgradeOnLogin bool
}

/*
====================================
EXCHANGE CONFIG
====================================
*/

// ExchangeConfig controls the credential exchange.
type ExchangeConfig struct {
	// DefaultAuthorities are granted to users created through SignUp.
	DefaultAuthorities []string
	// RateLimitEnabled needs a Redis client on the Builder.
	RateLimitEnabled bool
	EnableIPThrottle bool
	MaxFailures      int
	FailureWindow    time.Duration
	RedisPrefix      string
}

// SignUpConfig controls self-registration.
type SignUpConfig struct {
	Enabled         bool
	RateLimitIP     bool
	MaxPerIP        int
	RateLimitWindow time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process engine counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns a configuration with every section populated.
// Keys are left empty and must be supplied before Build.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			TTL:           jwt.DefaultTTL,
			SigningMethod: string(jwt.MethodEd25519),
			Issuer:        "self",
		},
		Password: PasswordConfig{
			Memory:         pw.Memory,
			Time:           pw.Time,
			Parallelism:    pw.Parallelism,
			SaltLength:     pw.SaltLength,
			KeyLength:      pw.KeyLength,
			MinLength:      password.MinPasswordBytes,
			UpgradeOnLogin: true,
		},
		Exchange: ExchangeConfig{
			DefaultAuthorities: []string{"USER"},
			RateLimitEnabled:   true,
			EnableIPThrottle:   true,
			MaxFailures:        5,
			FailureWindow:      15 * time.Minute,
			RedisPrefix:        "gl",
		},
		SignUp: SignUpConfig{
			Enabled:         true,
			RateLimitIP:     true,
			MaxPerIP:        20,
			RateLimitWindow: time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.Exchange.DefaultAuthorities = append([]string(nil), cfg.Exchange.DefaultAuthorities...)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfigInvalid, fmt.Sprintf(format, args...))
}

// Validate reports the first invalid setting, wrapped in ErrConfigInvalid.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.TTL <= 0 {
		return configErr("JWT TTL must be > 0")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return configErr("JWT Leeway must be between 0 and 2m")
	}
	switch jwt.SigningMethod(c.JWT.SigningMethod) {
	case jwt.MethodEd25519, jwt.MethodRS256:
	default:
		return configErr("unsupported JWT signing method %q", c.JWT.SigningMethod)
	}
	if len(c.JWT.PrivateKey) == 0 {
		return configErr("JWT PrivateKey is required to issue tokens")
	}
	if strings.TrimSpace(c.JWT.Issuer) == "" {
		return configErr("JWT Issuer must not be empty")
	}

	// Password
	if c.Password.MinLength < password.MinPasswordBytes {
		return configErr("Password MinLength must be >= %d", password.MinPasswordBytes)
	}
	if c.Password.MinLength > password.MaxPasswordBytes {
		return configErr("Password MinLength must be <= %d", password.MaxPasswordBytes)
	}

	// Exchange
	if len(c.Exchange.DefaultAuthorities) == 0 {
		return configErr("Exchange DefaultAuthorities must not be empty")
	}
	for _, a := range c.Exchange.DefaultAuthorities {
		if a == "" || strings.ContainsAny(a, " \t\n") {
			return configErr("authority %q must be a single non-empty word", a)
		}
	}
	if c.Exchange.RateLimitEnabled {
		if c.Exchange.MaxFailures <= 0 {
			return configErr("Exchange MaxFailures must be > 0")
		}
		if c.Exchange.FailureWindow <= 0 {
			return configErr("Exchange FailureWindow must be > 0")
		}
	}
	if c.SignUp.RateLimitIP {
		if c.SignUp.MaxPerIP <= 0 {
			return configErr("SignUp MaxPerIP must be > 0")
		}
		if c.SignUp.RateLimitWindow <= 0 {
			return configErr("SignUp RateLimitWindow must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return configErr("Audit BufferSize must be > 0 when enabled")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return configErr("latency histograms require Metrics.Enabled")
	}

	return nil
}
