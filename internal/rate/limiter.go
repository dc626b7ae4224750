package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	Prefix              string
	EnableIPThrottle    bool
	MaxExchangeFailures int
	ExchangeWindow      time.Duration
	EnableSignupLimit   bool
	MaxSignupsPerIP     int
	SignupWindow        time.Duration
}

// Limiter enforces per-username and per-IP budgets for the credential
// exchange and per-IP budgets for signup, using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *Limiter) exchangeUserKey(username string) string {
	return l.config.Prefix + ":lx:" + strings.ToLower(strings.TrimSpace(username))
}

func (l *Limiter) exchangeIPKey(ip string) string {
	return l.config.Prefix + ":lxi:" + ip
}

func (l *Limiter) signupKey(ip string) string {
	return l.config.Prefix + ":su:" + ip
}

// CheckExchange reports ErrRateLimited when the username or client IP has
// used up its failed-exchange budget for the current window.
func (l *Limiter) CheckExchange(ctx context.Context, username, ip string) error {
	if err := l.checkCounter(ctx, l.exchangeUserKey(username), l.config.MaxExchangeFailures); err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, l.exchangeIPKey(ip), l.config.MaxExchangeFailures); err != nil {
			return err
		}
	}

	return nil
}

// RecordExchangeFailure counts one failed exchange for the username+IP pair.
func (l *Limiter) RecordExchangeFailure(ctx context.Context, username, ip string) error {
	count, err := l.incrementWithTTL(ctx, l.exchangeUserKey(username), l.config.ExchangeWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxExchangeFailures) {
		return ErrRateLimited
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, l.exchangeIPKey(ip), l.config.ExchangeWindow)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxExchangeFailures) {
			return ErrRateLimited
		}
	}

	return nil
}

// ResetExchange clears the username counter after a successful exchange.
// The IP counter keeps running so one valid account cannot shield guessing
// against others from the same address.
func (l *Limiter) ResetExchange(ctx context.Context, username string) error {
	if err := l.redis.Del(ctx, l.exchangeUserKey(username)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// CheckSignup consumes one unit of the per-IP signup budget.
func (l *Limiter) CheckSignup(ctx context.Context, ip string) error {
	if !l.config.EnableSignupLimit || ip == "" {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, l.signupKey(ip), l.config.SignupWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxSignupsPerIP) {
		return ErrRateLimited
	}
	return nil
}

// ExchangeFailures returns the current failure counter for a username.
// Missing keys return zero and do not reveal account existence.
func (l *Limiter) ExchangeFailures(ctx context.Context, username string) (int, error) {
	count, err := l.redis.Get(ctx, l.exchangeUserKey(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(maxAttempts) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
