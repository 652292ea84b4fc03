package storageengine

import (
	"context"
	"testing"
	"time"

	"github.com/memkit/memoryd/internal/blobstore"
	"github.com/memkit/memoryd/internal/config"
	"github.com/memkit/memoryd/internal/embedder"
	"github.com/memkit/memoryd/internal/storage/sqlite"
	"github.com/memkit/memoryd/internal/types"
	"github.com/memkit/memoryd/internal/vectorindex"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(":memory:", sqlite.Options{})
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestEngine(t *testing.T, vectors *vectorindex.Index, blobs *blobstore.Store, embed embedder.Func) *Engine {
	t.Helper()
	cfg := config.DefaultStorageEngineConfig()
	cfg.EmbeddableContentMinLen = 5
	cfg.BlobThresholdBytes = 16
	e, err := New(cfg, newTestStore(t), vectors, blobs, embed, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func sampleEvent(eventType types.EventType, content string) types.Event {
	return types.Event{
		EventType: eventType,
		Content:   content,
		SessionID: "session-1",
		Timestamp: time.Now(),
	}
}

func TestCaptureAssignsIDAndPersists(t *testing.T) {
	e := newTestEngine(t, nil, nil, nil)
	ctx := context.Background()

	got, err := e.Capture(ctx, sampleEvent(types.EventUserPrompt, "hello there"))
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if got.ID == "" {
		t.Error("expected Capture to assign an id")
	}

	fetched, err := e.Query(ctx, Filters{SessionID: "session-1"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(fetched) != 1 || fetched[0].ID != got.ID {
		t.Fatalf("Query() = %+v, want the captured event", fetched)
	}
}

func TestCaptureRejectsInvalidEvent(t *testing.T) {
	e := newTestEngine(t, nil, nil, nil)
	_, err := e.Capture(context.Background(), types.Event{})
	if err == nil {
		t.Error("expected Capture to reject an event with no content or session id")
	}
}

func TestCaptureRejectsOversizedEvent(t *testing.T) {
	cfg := config.DefaultStorageEngineConfig()
	cfg.MaxMemorySize = "100"
	e, err := New(cfg, newTestStore(t), nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	big := make([]byte, 1000)
	for i := range big {
		big[i] = 'x'
	}
	_, err = e.Capture(context.Background(), sampleEvent(types.EventUserPrompt, string(big)))
	if err == nil {
		t.Error("expected Capture to reject an event above max_memory_size")
	}
}

func TestCaptureSideWritesEmbeddingForEligibleContent(t *testing.T) {
	vectors := vectorindex.New(vectorindex.Config{})
	embed := embedder.Deterministic(8)
	e := newTestEngine(t, vectors, nil, embed)

	event := sampleEvent(types.EventCodeWrite, "func main() { fmt.Println(\"hello world\") }")
	got, err := e.Capture(context.Background(), event)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	if vectors.Len() != 1 {
		t.Fatalf("vectors.Len() = %d, want 1", vectors.Len())
	}
	stats := e.Stats()
	if stats.SideWriteFailures != 0 {
		t.Errorf("SideWriteFailures = %d, want 0", stats.SideWriteFailures)
	}
	_ = got
}

func TestCaptureSkipsEmbeddingForIneligibleType(t *testing.T) {
	vectors := vectorindex.New(vectorindex.Config{})
	embed := embedder.Deterministic(8)
	e := newTestEngine(t, vectors, nil, embed)

	// EventUserPrompt is not in the embeddable type set.
	_, err := e.Capture(context.Background(), sampleEvent(types.EventUserPrompt, "a fairly long user prompt here"))
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if vectors.Len() != 0 {
		t.Errorf("vectors.Len() = %d, want 0 for an ineligible event type", vectors.Len())
	}
}

func TestCaptureSideWritesBlobAboveThreshold(t *testing.T) {
	dir := t.TempDir()
	blobs, err := blobstore.New(dir)
	if err != nil {
		t.Fatalf("blobstore.New: %v", err)
	}
	e := newTestEngine(t, nil, blobs, nil)

	long := "this content is definitely longer than sixteen bytes"
	got, err := e.Capture(context.Background(), sampleEvent(types.EventComment, long))
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	data, err := blobs.Get(got.ID)
	if err != nil {
		t.Fatalf("blobs.Get: %v", err)
	}
	if string(data) != long {
		t.Errorf("blob content = %q, want %q", data, long)
	}
}

func TestQueryStructuredFiltersByWorkspace(t *testing.T) {
	e := newTestEngine(t, nil, nil, nil)
	ctx := context.Background()

	ev1 := sampleEvent(types.EventUserPrompt, "in ws1")
	ev1.WorkspaceID = "ws1"
	ev2 := sampleEvent(types.EventUserPrompt, "in ws2")
	ev2.WorkspaceID = "ws2"

	if _, err := e.Capture(ctx, ev1); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if _, err := e.Capture(ctx, ev2); err != nil {
		t.Fatalf("Capture: %v", err)
	}

	got, err := e.Query(ctx, Filters{WorkspaceID: "ws1"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].WorkspaceID != "ws1" {
		t.Fatalf("Query() = %+v, want one event scoped to ws1", got)
	}
}

func TestQuerySemanticFallsBackToStructuredOnFailure(t *testing.T) {
	vectors := vectorindex.New(vectorindex.Config{})
	failingEmbed := func(ctx context.Context, model, text string) ([]float32, error) {
		return nil, context.Canceled
	}
	e := newTestEngine(t, vectors, nil, failingEmbed)
	ctx := context.Background()

	if _, err := e.Capture(ctx, sampleEvent(types.EventUserPrompt, "some prompt text")); err != nil {
		t.Fatalf("Capture: %v", err)
	}

	got, err := e.Query(ctx, Filters{SessionID: "session-1", SemanticQuery: "prompt"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected structured fallback to still return the captured event, got %+v", got)
	}
}

func TestQuerySemanticSearchResolvesToEvent(t *testing.T) {
	vectors := vectorindex.New(vectorindex.Config{})
	embed := embedder.Deterministic(8)
	e := newTestEngine(t, vectors, nil, embed)
	ctx := context.Background()

	got, err := e.Capture(ctx, sampleEvent(types.EventCodeWrite, "package main\n\nfunc helper() {}"))
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	results, err := e.Query(ctx, Filters{SessionID: "session-1", SemanticQuery: "helper function", Limit: 5})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 || results[0].ID != got.ID {
		t.Fatalf("Query() = %+v, want the captured event via semantic search", results)
	}
}

func TestStatisticsReflectsCaptures(t *testing.T) {
	e := newTestEngine(t, nil, nil, nil)
	ctx := context.Background()
	if _, err := e.Capture(ctx, sampleEvent(types.EventUserPrompt, "one")); err != nil {
		t.Fatalf("Capture: %v", err)
	}

	stats, err := e.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.TotalMemories != 1 {
		t.Errorf("TotalMemories = %d, want 1", stats.TotalMemories)
	}
}

func TestEngineStatsCountsCapturesAndQueries(t *testing.T) {
	e := newTestEngine(t, nil, nil, nil)
	ctx := context.Background()
	_, _ = e.Capture(ctx, sampleEvent(types.EventUserPrompt, "one"))
	_, _ = e.Query(ctx, Filters{SessionID: "session-1"})

	stats := e.Stats()
	if stats.Captures != 1 {
		t.Errorf("Captures = %d, want 1", stats.Captures)
	}
	if stats.Queries != 1 {
		t.Errorf("Queries = %d, want 1", stats.Queries)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	e := newTestEngine(t, vectorindex.New(vectorindex.Config{}), nil, nil)
	if err := e.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
