package config

import (
	"fmt"
	"time"
)

// SessionManagerConfig configures the C7 Session Manager.
type SessionManagerConfig struct {
	MaxActiveSessions int           `yaml:"max_active_sessions"`
	SessionTimeout    time.Duration `yaml:"session_timeout"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
}

// DefaultSessionManagerConfig returns the default Session Manager configuration.
func DefaultSessionManagerConfig() SessionManagerConfig {
	return SessionManagerConfig{
		MaxActiveSessions: 1000,
		SessionTimeout:    30 * time.Minute,
		CleanupInterval:   5 * time.Minute,
	}
}

// Validate checks the configuration's values.
func (c SessionManagerConfig) Validate() error {
	if c.MaxActiveSessions <= 0 {
		return fmt.Errorf("max_active_sessions must be positive (got %d)", c.MaxActiveSessions)
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("session_timeout must be positive (got %s)", c.SessionTimeout)
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup_interval must be positive (got %s)", c.CleanupInterval)
	}
	return nil
}
