package goLedger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goLedger/credential"
	"github.com/MrEthical07/goLedger/internal/audit"
	"github.com/MrEthical07/goLedger/internal/rate"
	"github.com/MrEthical07/goLedger/jwt"
	"github.com/MrEthical07/goLedger/password"
	"github.com/rs/zerolog"
)

// Engine owns the credential exchange, token validation and user
// management. Build it with [Builder]; after Build it is safe for
// concurrent use and holds no per-request state.
type Engine struct {
	config       Config
	credentials  credential.Store
	rateLimiter  *rate.Limiter
	audit        *audit.Dispatcher
	metrics      *Metrics
	passwordHash *password.Argon2
	jwtManager   *jwt.Manager
	log          zerolog.Logger
	// dummyHash is verified when the user does not exist so both failure
	// paths cost one hash comparison.
	dummyHash string
}

// Close drains the audit dispatcher. Sinks owned by the caller (Kafka)
// must be closed afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// IssueToken exchanges a username and password for a signed token.
//
// Every credential failure returns ErrAuthenticationFailed, whether the user
// is unknown or the password is wrong. While the username or client IP is
// throttled the call returns ErrExchangeRateLimited without checking the
// password.
func (e *Engine) IssueToken(ctx context.Context, username, pass string) (*TokenResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	username = strings.TrimSpace(username)
	ip := ClientIPFromContext(ctx)

	limiter := e.exchangeLimiter()
	if limiter != nil && username != "" {
		if err := limiter.CheckExchange(ctx, username, ip); err != nil {
			return nil, e.exchangeLimitError(ctx, username, err)
		}
	}

	rec, err := e.verifyCredentials(ctx, username, pass)
	if err != nil {
		if errors.Is(err, ErrAuthenticationFailed) {
			e.metricInc(MetricExchangeFailure)
			e.emitAudit(ctx, AuditTokenExchangeFailed, username, false, err, nil)
			if limiter != nil && username != "" {
				if rlErr := limiter.RecordExchangeFailure(ctx, username, ip); rlErr != nil && !errors.Is(rlErr, rate.ErrRateLimited) {
					e.log.Warn().Err(rlErr).Msg("record exchange failure")
				}
			}
		}
		return nil, err
	}

	token, claims, err := e.jwtManager.Issue(rec.Username, rec.Authorities)
	if err != nil {
		e.metricInc(MetricBackendError)
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if limiter != nil {
		if err := limiter.ResetExchange(ctx, rec.Username); err != nil {
			e.log.Warn().Err(err).Msg("reset exchange counter")
		}
	}

	e.metricInc(MetricExchangeSuccess)
	e.emitAudit(ctx, AuditTokenIssued, rec.Username, true, nil, map[string]string{"jti": claims.ID})

	return &TokenResult{
		Token:     token,
		Subject:   rec.Username,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (e *Engine) exchangeLimiter() *rate.Limiter {
	if !e.config.Exchange.RateLimitEnabled {
		return nil
	}
	return e.rateLimiter
}

func (e *Engine) exchangeLimitError(ctx context.Context, username string, err error) error {
	if errors.Is(err, rate.ErrRateLimited) {
		e.metricInc(MetricExchangeRateLimited)
		e.emitAudit(ctx, AuditTokenExchangeFailed, username, false, ErrExchangeRateLimited, nil)
		return ErrExchangeRateLimited
	}
	e.metricInc(MetricBackendError)
	e.log.Error().Err(err).Msg("exchange throttle unavailable")
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}

func (e *Engine) verifyCredentials(ctx context.Context, username, pass string) (credential.Record, error) {
	if username == "" || pass == "" {
		_, _ = e.passwordHash.Verify("x", e.dummyHash)
		return credential.Record{}, ErrAuthenticationFailed
	}

	rec, err := e.credentials.Lookup(ctx, username)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			_, _ = e.passwordHash.Verify(pass, e.dummyHash)
			return credential.Record{}, ErrAuthenticationFailed
		}
		e.metricInc(MetricBackendError)
		e.log.Error().Err(err).Msg("credential lookup failed")
		return credential.Record{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	ok, err := e.passwordHash.Verify(pass, rec.PasswordHash)
	if err != nil || !ok {
		return credential.Record{}, ErrAuthenticationFailed
	}

	if e.config.Password.UpgradeOnLogin {
		e.upgradeHash(ctx, rec, pass)
	}
	return rec, nil
}

func (e *Engine) upgradeHash(ctx context.Context, rec credential.Record, pass string) {
	needs, err := e.passwordHash.NeedsUpgrade(rec.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := e.passwordHash.Hash(pass)
	if err != nil {
		return
	}
	if err := e.credentials.UpdatePasswordHash(ctx, rec.Username, hash); err != nil {
		e.log.Warn().Err(err).Msg("password hash upgrade failed")
		return
	}
	e.metricInc(MetricPasswordUpgraded)
}

// Validate verifies a bearer token and, when requiredScope is not empty,
// that the token carries that authority. It performs no I/O.
func (e *Engine) Validate(ctx context.Context, token, requiredScope string) (*AuthResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	claims, err := e.jwtManager.Verify(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			e.metricInc(MetricValidateExpired)
			return nil, ErrTokenExpired
		}
		e.metricInc(MetricValidateInvalid)
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if requiredScope != "" && !claims.HasAuthority(requiredScope) {
		e.metricInc(MetricValidateScopeDenied)
		return nil, ErrInsufficientScope
	}

	e.metricInc(MetricValidateSuccess)
	return &AuthResult{
		Subject:   claims.Subject,
		Scopes:    claims.Authorities(),
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func randomDummyPassword() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
