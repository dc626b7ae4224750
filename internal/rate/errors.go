package rate

import "errors"

var (
	// ErrRateLimited is returned once a budget is used up for the current window.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
