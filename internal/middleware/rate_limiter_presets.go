package middleware

import "todo_api/internal/config"

// DefaultRateLimiterConfig returns default rate limiter settings
// 10 requests per second with burst capacity of 20
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		Capacity:   20,
		RefillRate: 10.0,
	}
}

// StrictRateLimiter - For credential endpoints (login, refresh)
// Burst: 5 requests, Sustained: 1 request per 2 seconds
func StrictRateLimiter() *RateLimiterConfig {
	return &RateLimiterConfig{
		Capacity:   5,
		RefillRate: 0.5,
	}
}

// RateLimiterFromConfig builds the API limiter from application settings,
// falling back to the defaults for unset values.
func RateLimiterFromConfig(cfg config.RateLimitConfig) *RateLimiterConfig {
	out := DefaultRateLimiterConfig()
	if cfg.Capacity > 0 {
		out.Capacity = cfg.Capacity
	}
	if cfg.RefillRate > 0 {
		out.RefillRate = cfg.RefillRate
	}
	return out
}
