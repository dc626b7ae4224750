package goLedger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MrEthical07/goLedger/credential"
	"github.com/MrEthical07/goLedger/internal/rate"
	"github.com/MrEthical07/goLedger/password"
)

// SignUp registers a user with the configured default authorities.
//
// Field problems are reported together in a *SignUpValidationError. A
// password that differs from its confirmation fails with ErrPasswordMismatch
// before anything is hashed or stored. Both unwrap to ErrArgumentValidation.
func (e *Engine) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResult, error) {
	if e == nil || e.credentials == nil {
		return nil, ErrEngineNotReady
	}
	if !e.config.SignUp.Enabled {
		return nil, ErrSignUpDisabled
	}

	username := strings.TrimSpace(req.Username)
	if err := e.validateSignUp(username, req); err != nil {
		e.metricInc(MetricSignUpInvalid)
		e.emitAudit(ctx, AuditSignup, username, false, err, nil)
		return nil, err
	}

	if e.rateLimiter != nil && e.config.SignUp.RateLimitIP {
		if err := e.rateLimiter.CheckSignup(ctx, ClientIPFromContext(ctx)); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricSignUpRateLimited)
				e.emitAudit(ctx, AuditSignup, username, false, ErrSignUpRateLimited, nil)
				return nil, ErrSignUpRateLimited
			}
			e.metricInc(MetricBackendError)
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}

	_, err := e.credentials.Lookup(ctx, username)
	switch {
	case err == nil:
		e.metricInc(MetricSignUpDuplicate)
		e.emitAudit(ctx, AuditSignup, username, false, ErrUserAlreadyExists, nil)
		return nil, ErrUserAlreadyExists
	case !errors.Is(err, credential.ErrNotFound):
		e.metricInc(MetricBackendError)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if err := e.createUser(ctx, username, req.Password, e.config.Exchange.DefaultAuthorities); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			e.metricInc(MetricSignUpDuplicate)
		}
		e.emitAudit(ctx, AuditSignup, username, false, err, nil)
		return nil, err
	}

	e.metricInc(MetricSignUpSuccess)
	e.emitAudit(ctx, AuditSignup, username, true, nil, nil)
	e.log.Info().Str("username", username).Msg("user registered")

	return &SignUpResult{
		Success: true,
		Message: "User registered successfully: " + username,
	}, nil
}

func (e *Engine) validateSignUp(username string, req SignUpRequest) error {
	invalid := make(map[string]string)
	if username == "" {
		invalid["username"] = "username cannot be blank"
	}
	switch {
	case strings.TrimSpace(req.Password) == "":
		invalid["password"] = "password cannot be blank"
	case utf8.RuneCountInString(req.Password) < e.config.Password.MinLength:
		invalid["password"] = fmt.Sprintf("Minimum %d characters required", e.config.Password.MinLength)
	case len(req.Password) > password.MaxPasswordBytes:
		invalid["password"] = fmt.Sprintf("Maximum %d bytes allowed", password.MaxPasswordBytes)
	}
	if strings.TrimSpace(req.MatchingPassword) == "" {
		invalid["matchingPassword"] = "matchingPassword cannot be blank"
	}
	if len(invalid) > 0 {
		return &SignUpValidationError{Invalid: invalid}
	}
	if req.Password != req.MatchingPassword {
		return ErrPasswordMismatch
	}
	return nil
}

func (e *Engine) createUser(ctx context.Context, username, pass string, authorities []string) error {
	hash, err := e.passwordHash.Hash(pass)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = e.credentials.Create(ctx, credential.Record{
		Username:     username,
		PasswordHash: hash,
		Authorities:  append([]string(nil), authorities...),
		CreatedAt:    time.Now().UTC(),
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, credential.ErrAlreadyExists):
		return ErrUserAlreadyExists
	default:
		e.metricInc(MetricBackendError)
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
}

// ListUsers returns every registered user without password hashes.
func (e *Engine) ListUsers(ctx context.Context) ([]UserInfo, error) {
	if e == nil || e.credentials == nil {
		return nil, ErrEngineNotReady
	}
	recs, err := e.credentials.List(ctx)
	if err != nil {
		e.metricInc(MetricBackendError)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	out := make([]UserInfo, 0, len(recs))
	for _, rec := range recs {
		out = append(out, UserInfo{
			Username:    rec.Username,
			Authorities: rec.Authorities,
			CreatedAt:   rec.CreatedAt,
		})
	}
	return out, nil
}

// DeleteUser removes a user. Tokens already issued to that user stay valid
// until they expire.
func (e *Engine) DeleteUser(ctx context.Context, username string) error {
	if e == nil || e.credentials == nil {
		return ErrEngineNotReady
	}
	err := e.credentials.Delete(ctx, username)
	switch {
	case err == nil:
	case errors.Is(err, credential.ErrNotFound):
		e.emitAudit(ctx, AuditUserDeleted, username, false, ErrUserNotFound, nil)
		return ErrUserNotFound
	default:
		e.metricInc(MetricBackendError)
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metricInc(MetricUserDeleted)
	e.emitAudit(ctx, AuditUserDeleted, username, true, nil, nil)
	return nil
}

// EnsureSeedUsers creates users only when the credential store is empty and
// returns how many were created.
func (e *Engine) EnsureSeedUsers(ctx context.Context, users []SeedUser) (int, error) {
	if e == nil || e.credentials == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.credentials.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if n > 0 {
		return 0, nil
	}

	created := 0
	for _, u := range users {
		authorities := u.Authorities
		if len(authorities) == 0 {
			authorities = e.config.Exchange.DefaultAuthorities
		}
		err := e.createUser(ctx, strings.TrimSpace(u.Username), u.Password, authorities)
		if errors.Is(err, ErrUserAlreadyExists) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed user %q: %w", u.Username, err)
		}
		created++
	}
	if created > 0 {
		e.log.Info().Int("count", created).Msg("seeded credential store")
	}
	return created, nil
}
