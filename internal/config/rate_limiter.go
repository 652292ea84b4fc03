package config

import (
	"fmt"
	"time"
)

// RateLimiterConfig configures one C8 Rate Limiter instance.
type RateLimiterConfig struct {
	// MaxRequests is the admitted request count per window.
	MaxRequests int `yaml:"max_requests"`

	// WindowMS is the window length in milliseconds.
	WindowMS int64 `yaml:"window_ms"`

	// Strategy is "sliding" or "fixed". Default: "sliding".
	Strategy string `yaml:"strategy"`

	// KeyPrefix namespaces all keys handled by this limiter.
	KeyPrefix string `yaml:"key_prefix"`

	// TTL bounds how long an idle key's state is retained before cleanup()
	// evicts it. Default: 10 * window.
	TTL time.Duration `yaml:"ttl"`
}

// DefaultRateLimiterConfig returns a permissive default Rate Limiter configuration.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		MaxRequests: 100,
		WindowMS:    60_000,
		Strategy:    "sliding",
		KeyPrefix:   "rl",
		TTL:         10 * time.Minute,
	}
}

// Validate checks the configuration per spec §4.8's constructor rules.
func (c RateLimiterConfig) Validate() error {
	if c.MaxRequests <= 0 {
		return fmt.Errorf("max_requests must be positive (got %d)", c.MaxRequests)
	}
	if c.WindowMS <= 0 {
		return fmt.Errorf("window_ms must be positive (got %d)", c.WindowMS)
	}
	if c.Strategy != "sliding" && c.Strategy != "fixed" {
		return fmt.Errorf("strategy must be 'sliding' or 'fixed' (got %q)", c.Strategy)
	}
	if c.TTL < 0 {
		return fmt.Errorf("ttl cannot be negative (got %s)", c.TTL)
	}
	return nil
}
