package contextbuilder

import (
	"strings"
	"testing"

	"github.com/memkit/memoryd/internal/config"
	"github.com/memkit/memoryd/internal/types"
)

func testConfig() config.ContextBuilderConfig {
	cfg := config.DefaultContextBuilderConfig()
	cfg.IncludeMetadata = true
	return cfg
}

func TestBuildDropsIncompleteEntries(t *testing.T) {
	b, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries := []types.ContextEntry{
		{ID: "", Content: "no id"},
		{ID: "a", Content: ""},
		{ID: "b", Content: "kept", EventType: types.EventComment},
	}
	artifact, err := b.Build(entries)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(artifact, "kept") {
		t.Errorf("artifact = %q, want it to contain the one valid entry", artifact)
	}
	stats := b.GetLastBuildStats()
	if stats.OutputMemories != 1 {
		t.Errorf("OutputMemories = %d, want 1", stats.OutputMemories)
	}
}

func TestBuildSortsByScoreDescending(t *testing.T) {
	b, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries := []types.ContextEntry{
		{ID: "low", Content: "low score content here", Score: 0.1, EventType: types.EventComment},
		{ID: "high", Content: "high score content there", Score: 0.9, EventType: types.EventComment},
	}
	artifact, err := b.Build(entries)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if strings.Index(artifact, "high score") > strings.Index(artifact, "low score") {
		t.Errorf("expected higher-scored entry to render first, got %q", artifact)
	}
}

func TestBuildDedupesSimilarContent(t *testing.T) {
	b, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries := []types.ContextEntry{
		{ID: "a", Content: "the quick brown fox jumps over lazy dog", Score: 0.5, EventType: types.EventComment},
		{ID: "b", Content: "the quick brown fox jumps over lazy dog", Score: 0.9, EventType: types.EventComment},
	}
	if _, err := b.Build(entries); err != nil {
		t.Fatalf("Build: %v", err)
	}
	stats := b.GetLastBuildStats()
	if stats.DuplicatesRemoved != 1 {
		t.Errorf("DuplicatesRemoved = %d, want 1", stats.DuplicatesRemoved)
	}
	if stats.OutputMemories != 1 {
		t.Errorf("OutputMemories = %d, want 1", stats.OutputMemories)
	}
}

func TestBuildDedupeDisabledAtThresholdOne(t *testing.T) {
	cfg := testConfig()
	cfg.DeduplicateThreshold = 1.0
	b, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries := []types.ContextEntry{
		{ID: "a", Content: "identical text here", Score: 0.5, EventType: types.EventComment},
		{ID: "b", Content: "identical text here", Score: 0.9, EventType: types.EventComment},
	}
	if _, err := b.Build(entries); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if b.GetLastBuildStats().OutputMemories != 2 {
		t.Errorf("OutputMemories = %d, want 2 with dedup disabled", b.GetLastBuildStats().OutputMemories)
	}
}

func TestBuildTruncatesAtMaxSize(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSizeBytes = 50
	b, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries := []types.ContextEntry{
		{ID: "a", Content: strings.Repeat("x", 100), EventType: types.EventComment},
	}
	artifact, err := b.Build(entries)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(artifact) > 50 {
		t.Errorf("len(artifact) = %d, want <= 50", len(artifact))
	}
	if !b.GetLastBuildStats().Truncated {
		t.Error("expected Truncated to be true")
	}
}

func TestBuildRedactsSensitiveMetadataKeys(t *testing.T) {
	b, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries := []types.ContextEntry{
		{
			ID: "a", Content: "some generic content", EventType: types.EventComment,
			Metadata: map[string]interface{}{"api_key": "sk-secret", "note": "fine"},
		},
	}
	artifact, err := b.Build(entries)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if strings.Contains(artifact, "sk-secret") {
		t.Errorf("artifact leaked a sensitive value: %q", artifact)
	}
	if !strings.Contains(artifact, "[REDACTED]") {
		t.Errorf("expected redaction marker in artifact, got %q", artifact)
	}
}

func TestBuildOmitsMetadataWhenDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.IncludeMetadata = false
	b, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries := []types.ContextEntry{
		{ID: "a", Content: "generic content", EventType: types.EventComment, Metadata: map[string]interface{}{"note": "visible-if-enabled"}},
	}
	artifact, err := b.Build(entries)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if strings.Contains(artifact, "visible-if-enabled") {
		t.Error("expected metadata to be omitted when IncludeMetadata is false")
	}
}

func TestBuildIncludesScoreWhenEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.IncludeScore = true
	b, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries := []types.ContextEntry{
		{ID: "a", Content: "generic content", Score: 0.75, EventType: types.EventComment},
	}
	artifact, err := b.Build(entries)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(artifact, "0.750") {
		t.Errorf("expected score in artifact, got %q", artifact)
	}
}

func TestRegisterFormatterTakesPrecedence(t *testing.T) {
	b, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b.RegisterFormatter(types.EventComment, func(entry types.ContextEntry, includeScore bool) string {
		return "CUSTOM:" + entry.Content
	})
	entries := []types.ContextEntry{
		{ID: "a", Content: "hello", EventType: types.EventComment},
	}
	artifact, err := b.Build(entries)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(artifact, "CUSTOM:hello") {
		t.Errorf("expected custom renderer output, got %q", artifact)
	}
}

func TestCodeWriteRendererIncludesFileAndLanguage(t *testing.T) {
	b, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries := []types.ContextEntry{
		{
			ID: "a", Content: "func main() {}", EventType: types.EventCodeWrite,
			Metadata: map[string]interface{}{"file": "main.go", "language": "go"},
		},
	}
	artifact, err := b.Build(entries)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(artifact, "main.go") || !strings.Contains(artifact, "language: go") {
		t.Errorf("artifact = %q, want file and language rendered", artifact)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Format = "xml"
	if _, err := New(cfg); err == nil {
		t.Error("expected New to reject an invalid format")
	}
}
