package config

import "fmt"

// VectorIndexConfig configures the C3 Vector Index.
type VectorIndexConfig struct {
	// AllowPartialBatch, if true, makes add_batch commit valid entries and
	// report invalid ones in errors[] instead of failing the whole batch.
	AllowPartialBatch bool `yaml:"allow_partial_batch"`

	// PersistDir is the directory holding the binary index image and the
	// JSON metadata sidecar file. Default: "./data/vectors".
	PersistDir string `yaml:"persist_dir"`

	// SearchTimeoutMS is the soft budget for a single search call, per
	// spec §4.3's performance contract. Default: 200.
	SearchTimeoutMS int `yaml:"search_timeout_ms"`
}

// DefaultVectorIndexConfig returns the default Vector Index configuration.
func DefaultVectorIndexConfig() VectorIndexConfig {
	return VectorIndexConfig{
		AllowPartialBatch: false,
		PersistDir:        "./data/vectors",
		SearchTimeoutMS:   200,
	}
}

// Validate checks the configuration's values.
func (c VectorIndexConfig) Validate() error {
	if c.PersistDir == "" {
		return fmt.Errorf("persist_dir cannot be empty")
	}
	if c.SearchTimeoutMS <= 0 {
		return fmt.Errorf("search_timeout_ms must be positive (got %d)", c.SearchTimeoutMS)
	}
	return nil
}
