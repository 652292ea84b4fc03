// Package contextbuilder implements the Context Builder (C5): it turns
// a sequence of retrieved memories into a single bounded text artifact
// ready to inject into a prompt.
package contextbuilder

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/memkit/memoryd/internal/config"
	"github.com/memkit/memoryd/internal/errs"
	"github.com/memkit/memoryd/internal/types"
)

const truncatedMarker = "... (truncated)"

type scored struct {
	entry     types.ContextEntry
	origIndex int
}

// Builder renders retrieved memories per spec.md §4.5's pipeline:
// validate, drop incomplete entries, dedupe, sort, render, size-bound.
type Builder struct {
	cfg config.ContextBuilderConfig

	mu        sync.Mutex
	custom    map[types.EventType]Renderer
	lastStats types.BuildStats
}

// New constructs a Builder.
func New(cfg config.ContextBuilderConfig) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errs.Wrap(errs.Validation, "contextbuilder.new", "invalid context builder configuration", err)
	}
	return &Builder{cfg: cfg, custom: make(map[types.EventType]Renderer)}, nil
}

// RegisterFormatter installs a custom renderer for eventType, taking
// first refusal over the built-in per-type renderer.
func (b *Builder) RegisterFormatter(eventType types.EventType, r Renderer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.custom[eventType] = r
}

// Build runs the full pipeline over entries and returns the rendered
// artifact, never exceeding max_size_bytes.
func (b *Builder) Build(entries []types.ContextEntry) (string, error) {
	start := time.Now()

	// (1) validate: entries must be a concrete sequence. (2) drop
	// entries missing id or content.
	kept := make([]scored, 0, len(entries))
	for i, e := range entries {
		if e.ID == "" || e.Content == "" {
			continue
		}
		kept = append(kept, scored{entry: e, origIndex: i})
	}

	// (3) dedupe.
	deduped, removed := dedupe(kept, b.cfg.DeduplicateThreshold)

	// (4) sort descending by score, ties by original input order.
	sort.SliceStable(deduped, func(i, j int) bool {
		if deduped[i].entry.Score != deduped[j].entry.Score {
			return deduped[i].entry.Score > deduped[j].entry.Score
		}
		return deduped[i].origIndex < deduped[j].origIndex
	})

	// (5) render each surviving entry, metadata redacted/cycle-safe first.
	b.mu.Lock()
	custom := b.custom
	b.mu.Unlock()

	separator := "\n\n"
	rendered := make([]string, 0, len(deduped))
	for _, s := range deduped {
		e := s.entry
		if b.cfg.IncludeMetadata {
			e.Metadata = sanitizeMetadata(e.Metadata)
		} else {
			e.Metadata = nil
		}
		rendered = append(rendered, renderEntry(e, b.cfg.IncludeScore, custom))
	}

	// (6) size-bound concatenation.
	artifact, truncated := assemble(rendered, separator, b.cfg.MaxSizeBytes)

	stats := types.BuildStats{
		InputMemories:     len(entries),
		OutputMemories:    len(deduped),
		DuplicatesRemoved: removed,
		TotalSize:         len(artifact),
		Truncated:         truncated,
		BuildTime:         time.Since(start),
	}
	b.mu.Lock()
	b.lastStats = stats
	b.mu.Unlock()

	return artifact, nil
}

// assemble concatenates pieces with sep, stopping and appending the
// truncation marker once the running size would exceed maxSize. The
// result never exceeds maxSize.
func assemble(pieces []string, sep string, maxSize int) (string, bool) {
	var b strings.Builder
	truncated := false
	for i, p := range pieces {
		addition := p
		if i > 0 {
			addition = sep + p
		}
		if b.Len()+len(addition) > maxSize {
			truncated = true
			break
		}
		b.WriteString(addition)
	}

	result := b.String()
	if truncated {
		if len(result)+len(truncatedMarker) > maxSize {
			cut := maxSize - len(truncatedMarker)
			if cut < 0 {
				cut = 0
			}
			result = result[:cut]
		}
		result += truncatedMarker
	}
	if len(result) > maxSize {
		result = result[:maxSize]
	}
	return result, truncated
}

// GetLastBuildStats returns a snapshot of the most recent Build call's
// statistics.
func (b *Builder) GetLastBuildStats() types.BuildStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastStats
}
