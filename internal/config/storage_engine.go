package config

import "fmt"

// StorageEngineConfig configures the C1 Storage Engine façade.
type StorageEngineConfig struct {
	// MaxMemorySize is the serialized-event size cap, e.g. "1 MB".
	// Default: "1 MB".
	MaxMemorySize string `yaml:"max_memory_size"`

	// BlobThresholdBytes is the content length above which capture spills
	// a copy into the blob store. Default: 10240 (10 KiB).
	BlobThresholdBytes int64 `yaml:"blob_threshold_bytes"`

	// EmbedRateLimitPerSec throttles the embedding callback during
	// capture. Default: 50. 0 disables throttling.
	EmbedRateLimitPerSec float64 `yaml:"embed_rate_limit_per_sec"`

	// EmbeddableContentMinLen is the minimum content length (exclusive)
	// for an embeddable event type to be embedded. Default: 50.
	EmbeddableContentMinLen int `yaml:"embeddable_content_min_len"`
}

// DefaultStorageEngineConfig returns the default Storage Engine configuration.
func DefaultStorageEngineConfig() StorageEngineConfig {
	return StorageEngineConfig{
		MaxMemorySize:           "1 MB",
		BlobThresholdBytes:      10 * 1024,
		EmbedRateLimitPerSec:    50,
		EmbeddableContentMinLen: 50,
	}
}

// Validate checks the configuration's values.
func (c StorageEngineConfig) Validate() error {
	if _, err := ParseSize(c.MaxMemorySize); err != nil {
		return fmt.Errorf("max_memory_size: %w", err)
	}
	if c.BlobThresholdBytes < 0 {
		return fmt.Errorf("blob_threshold_bytes cannot be negative (got %d)", c.BlobThresholdBytes)
	}
	if c.EmbedRateLimitPerSec < 0 {
		return fmt.Errorf("embed_rate_limit_per_sec cannot be negative (got %f)", c.EmbedRateLimitPerSec)
	}
	if c.EmbeddableContentMinLen < 0 {
		return fmt.Errorf("embeddable_content_min_len cannot be negative (got %d)", c.EmbeddableContentMinLen)
	}
	return nil
}

// MaxMemorySizeBytes parses MaxMemorySize. A value that does not parse
// (one that Validate would reject) yields 1 MiB (1<<20 bytes).
func (c StorageEngineConfig) MaxMemorySizeBytes() int64 {
	n, err := ParseSize(c.MaxMemorySize)
	if err != nil {
		return 1 << 20
	}
	return n
}
