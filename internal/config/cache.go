package config

import (
	"fmt"
	"time"
)

// CacheConfig configures the C4 Multi-Level Cache.
type CacheConfig struct {
	// L1MaxEntries is the LRU capacity of the in-process L1 level.
	// Default: 10000.
	L1MaxEntries int `yaml:"l1_max_entries"`

	// DefaultTTL is applied to entries set without an explicit TTL.
	// Zero means entries never expire on their own.
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// PromotionTimeout bounds how long a single-flight promotion from
	// L2/L3 may take before it is treated as a miss.
	PromotionTimeout time.Duration `yaml:"promotion_timeout"`
}

// DefaultCacheConfig returns the default Multi-Level Cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		L1MaxEntries:     10000,
		DefaultTTL:       0,
		PromotionTimeout: 2 * time.Second,
	}
}

// Validate checks the configuration's values.
func (c CacheConfig) Validate() error {
	if c.L1MaxEntries <= 0 {
		return fmt.Errorf("l1_max_entries must be positive (got %d)", c.L1MaxEntries)
	}
	if c.DefaultTTL < 0 {
		return fmt.Errorf("default_ttl cannot be negative (got %s)", c.DefaultTTL)
	}
	if c.PromotionTimeout <= 0 {
		return fmt.Errorf("promotion_timeout must be positive (got %s)", c.PromotionTimeout)
	}
	return nil
}
