package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config aggregates every component's configuration, loaded from one YAML
// file the way internal/health/config.go loads HealthConfig.
type Config struct {
	DBPath         string               `yaml:"db_path"`
	StateDir       string               `yaml:"state_dir"`
	StorageEngine  StorageEngineConfig  `yaml:"storage_engine"`
	VectorIndex    VectorIndexConfig    `yaml:"vector_index"`
	Cache          CacheConfig          `yaml:"cache"`
	ContextBuilder ContextBuilderConfig `yaml:"context_builder"`
	ResourceMonitor ResourceMonitorConfig `yaml:"resource_monitor"`
	SessionManager SessionManagerConfig `yaml:"session_manager"`
	RateLimiter    RateLimiterConfig    `yaml:"rate_limiter"`
}

// Default returns a fully-populated, valid default configuration.
func Default() Config {
	return Config{
		DBPath:          envOr("MEMORY_DB_PATH", "./data/memoryd.db"),
		StateDir:        "./data/state",
		StorageEngine:   DefaultStorageEngineConfig(),
		VectorIndex:     DefaultVectorIndexConfig(),
		Cache:           DefaultCacheConfig(),
		ContextBuilder:  DefaultContextBuilderConfig(),
		ResourceMonitor: DefaultResourceMonitorConfig(),
		SessionManager:  DefaultSessionManagerConfig(),
		RateLimiter:     DefaultRateLimiterConfig(),
	}
}

// Load reads a YAML configuration file, applying defaults for anything it
// doesn't specify and validating the result. A missing path returns
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing YAML: %w", err)
	}

	if dbPath := os.Getenv("MEMORY_DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	}

	return cfg, cfg.Validate()
}

// Validate validates every section.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path cannot be empty")
	}
	if err := c.StorageEngine.Validate(); err != nil {
		return fmt.Errorf("storage_engine: %w", err)
	}
	if err := c.VectorIndex.Validate(); err != nil {
		return fmt.Errorf("vector_index: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.ContextBuilder.Validate(); err != nil {
		return fmt.Errorf("context_builder: %w", err)
	}
	if err := c.ResourceMonitor.Validate(); err != nil {
		return fmt.Errorf("resource_monitor: %w", err)
	}
	if err := c.SessionManager.Validate(); err != nil {
		return fmt.Errorf("session_manager: %w", err)
	}
	if err := c.RateLimiter.Validate(); err != nil {
		return fmt.Errorf("rate_limiter: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
