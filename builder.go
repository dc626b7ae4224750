package goLedger

import (
	"errors"
	"time"

	"github.com/MrEthical07/goLedger/credential"
	"github.com/MrEthical07/goLedger/internal/audit"
	"github.com/MrEthical07/goLedger/internal/rate"
	"github.com/MrEthical07/goLedger/jwt"
	"github.com/MrEthical07/goLedger/password"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles an Engine. A Builder can be used for one Build only.
type Builder struct {
	config      Config
	redis       redis.UniversalClient
	credentials credential.Store
	auditSink   AuditSink
	log         zerolog.Logger
	jwtOptions  []jwt.Option

	built bool
}

// New returns a Builder preloaded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		log:    zerolog.Nop(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithCredentialStore sets the user backend. Required.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.credentials = store
	return b
}

// WithRedis enables exchange and signup throttling.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the sink fed by the audit dispatcher.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger.
func (b *Builder) WithLogger(log zerolog.Logger) *Builder {
	b.log = log
	return b
}

// WithTimeFunc overrides the clock used for token issue and expiry.
func (b *Builder) WithTimeFunc(now func() time.Time) *Builder {
	b.jwtOptions = append(b.jwtOptions, jwt.WithTimeFunc(now))
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. Rate limiting
// stays off without a Redis client even when the config enables it.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.credentials == nil {
		return nil, errors.New("credential store required")
	}

	log := b.log.With().Str("component", "engine").Logger()

	engine := &Engine{
		config:      cfg,
		credentials: b.credentials,
		metrics:     NewMetrics(cfg.Metrics),
		log:         log,
	}

	// -------- THROTTLING --------
	if b.redis != nil {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:              cfg.Exchange.RedisPrefix,
			EnableIPThrottle:    cfg.Exchange.EnableIPThrottle,
			MaxExchangeFailures: cfg.Exchange.MaxFailures,
			ExchangeWindow:      cfg.Exchange.FailureWindow,
			EnableSignupLimit:   cfg.SignUp.RateLimitIP,
			MaxSignupsPerIP:     cfg.SignUp.MaxPerIP,
			SignupWindow:        cfg.SignUp.RateLimitWindow,
		})
	} else if cfg.Exchange.RateLimitEnabled {
		log.Warn().Msg("exchange rate limiting disabled: no redis client")
	}

	// -------- PASSWORD --------
	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, errors.Join(ErrConfigInvalid, err)
	}
	engine.passwordHash = ph

	dummy, err := ph.Hash(randomDummyPassword())
	if err != nil {
		return nil, err
	}
	engine.dummyHash = dummy

	// -------- JWT --------
	jm, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.JWT.TTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
	}, b.jwtOptions...)
	if err != nil {
		return nil, errors.Join(ErrConfigInvalid, err)
	}
	engine.jwtManager = jm

	// -------- AUDIT --------
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return engine, nil
}
