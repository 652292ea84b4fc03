package config

import "fmt"

// ContextBuilderConfig configures the C5 Context Builder.
type ContextBuilderConfig struct {
	// Format is "markdown" or "plain". Default: "markdown".
	Format string `yaml:"format"`

	// MaxSizeBytes bounds the rendered artifact. Default: 8000.
	MaxSizeBytes int `yaml:"max_size_bytes"`

	IncludeMetadata bool `yaml:"include_metadata"`
	IncludeScore    bool `yaml:"include_score"`

	// DeduplicateThreshold in [0,1]; 1.0 disables dedup. Default: 0.92.
	DeduplicateThreshold float64 `yaml:"deduplicate_threshold"`
}

// DefaultContextBuilderConfig returns the default Context Builder configuration.
func DefaultContextBuilderConfig() ContextBuilderConfig {
	return ContextBuilderConfig{
		Format:               "markdown",
		MaxSizeBytes:         8000,
		IncludeMetadata:      true,
		IncludeScore:         false,
		DeduplicateThreshold: 0.92,
	}
}

// Validate checks the configuration's values.
func (c ContextBuilderConfig) Validate() error {
	if c.Format != "markdown" && c.Format != "plain" {
		return fmt.Errorf("format must be 'markdown' or 'plain' (got %q)", c.Format)
	}
	if c.MaxSizeBytes <= 0 {
		return fmt.Errorf("max_size_bytes must be positive (got %d)", c.MaxSizeBytes)
	}
	if c.DeduplicateThreshold < 0 || c.DeduplicateThreshold > 1 {
		return fmt.Errorf("deduplicate_threshold must be in [0,1] (got %f)", c.DeduplicateThreshold)
	}
	return nil
}
