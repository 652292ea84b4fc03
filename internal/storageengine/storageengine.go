// Package storageengine implements the Storage Engine (C1): the single
// façade over the Relational Index, Vector Index, and blob store, giving
// callers one capture/query surface instead of three.
package storageengine

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/memkit/memoryd/internal/blobstore"
	"github.com/memkit/memoryd/internal/config"
	"github.com/memkit/memoryd/internal/embedder"
	"github.com/memkit/memoryd/internal/errs"
	"github.com/memkit/memoryd/internal/idgen"
	"github.com/memkit/memoryd/internal/storage/sqlite"
	"github.com/memkit/memoryd/internal/types"
	"github.com/memkit/memoryd/internal/vectorindex"
)

// EmbedModel names the embedding model passed to the embedding callback
// and recorded on the vector mapping row.
const EmbedModel = "memoryd-default"

// Stats is a snapshot of the engine's internal counters, exposed by
// Stats() for the CLI's health/status rendering.
type Stats struct {
	Captures           int64
	Queries            int64
	SideWriteFailures  int64
	CaptureLatencyNS   int64
	QueryLatencyNS     int64
}

// Filters narrows a query call. SemanticQuery, when non-empty, routes
// through the vector-search path if C3 and the embedder are available.
type Filters struct {
	WorkspaceID    string
	SessionID      string
	EventType      *types.EventType
	GitBranch      string
	StartTime      *time.Time
	EndTime        *time.Time
	Limit          int
	OrderBy        string
	OrderDirection string
	SemanticQuery  string
}

// Engine is the Storage Engine façade.
type Engine struct {
	cfg     config.StorageEngineConfig
	store   *sqlite.Store
	vectors *vectorindex.Index
	blobs   *blobstore.Store
	embed   embedder.Func
	logger  *config.Logger

	closeOnce sync.Once
	stats     Stats
}

// New constructs an Engine. vectors, blobs, and embed are all optional:
// a nil vectors or embed disables the semantic query path and the
// embedding side write; a nil blobs disables blob spill.
func New(cfg config.StorageEngineConfig, store *sqlite.Store, vectors *vectorindex.Index, blobs *blobstore.Store, embed embedder.Func, logger *config.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errs.Wrap(errs.Validation, "storageengine.new", "invalid storage engine configuration", err)
	}
	if store == nil {
		return nil, errs.New(errs.NotInitialized, "storageengine.new", "a relational store is required")
	}
	if embed != nil && cfg.EmbedRateLimitPerSec > 0 {
		embed = embedder.Throttled(embed, embedder.NewLimiter(cfg.EmbedRateLimitPerSec, int(cfg.EmbedRateLimitPerSec)+1))
	}
	return &Engine{cfg: cfg, store: store, vectors: vectors, blobs: blobs, embed: embed, logger: logger}, nil
}

// Capture validates and durably inserts event, then performs best-effort
// embedding and blob side writes. The returned Event carries an
// assigned id and is considered captured regardless of side-write
// outcome.
func (e *Engine) Capture(ctx context.Context, event types.Event) (*types.Event, error) {
	start := time.Now()
	defer func() { atomic.AddInt64(&e.stats.CaptureLatencyNS, time.Since(start).Nanoseconds()) }()

	event.ID = idgen.NewEventID()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := event.Validate(); err != nil {
		return nil, errs.Wrap(errs.Validation, "storageengine.capture", "invalid event", err)
	}

	if size, err := json.Marshal(event); err == nil && int64(len(size)) > e.cfg.MaxMemorySizeBytes() {
		return nil, errs.New(errs.SizeLimit, "storageengine.capture", "event exceeds max_memory_size")
	}

	if err := e.store.InsertMemory(ctx, &event); err != nil {
		return nil, errs.Wrap(errs.StoreUnavailable, "storageengine.capture", "failed to write authoritative row", err)
	}
	atomic.AddInt64(&e.stats.Captures, 1)

	e.sideWriteEmbedding(ctx, event)
	e.sideWriteBlob(ctx, event)

	return &event, nil
}

func (e *Engine) sideWriteEmbedding(ctx context.Context, event types.Event) {
	if e.vectors == nil || e.embed == nil {
		return
	}
	if !event.EmbeddingEligible(e.cfg.EmbeddableContentMinLen) {
		return
	}

	vec, err := e.embed(ctx, EmbedModel, event.Content)
	if err != nil {
		e.logSideWriteFailure("embedding callback failed", err)
		return
	}

	contentPrefix := event.Content
	if len(contentPrefix) > 200 {
		contentPrefix = contentPrefix[:200]
	}
	meta := map[string]interface{}{
		"id":             event.ID,
		"event_type":     string(event.EventType),
		"session_id":     event.SessionID,
		"content_prefix": contentPrefix,
	}
	if event.WorkspaceID != "" {
		meta["workspace_id"] = event.WorkspaceID
	}
	if event.GitBranch != "" {
		meta["git_branch"] = event.GitBranch
	}

	if err := e.vectors.Add(types.VectorDocument{ID: event.ID, Vector: vec, Metadata: meta}); err != nil {
		e.logSideWriteFailure("vector index add failed", err)
		return
	}
	if err := e.store.PutVectorMapping(ctx, event.ID, event.ID, EmbedModel); err != nil {
		e.logSideWriteFailure("vector mapping write failed", err)
	}
}

func (e *Engine) sideWriteBlob(ctx context.Context, event types.Event) {
	if e.blobs == nil {
		return
	}
	if int64(len(event.Content)) <= e.cfg.BlobThresholdBytes {
		return
	}
	if err := e.blobs.Put(event.ID, []byte(event.Content)); err != nil {
		e.logSideWriteFailure("blob store write failed", err)
	}
}

func (e *Engine) logSideWriteFailure(msg string, err error) {
	atomic.AddInt64(&e.stats.SideWriteFailures, 1)
	if e.logger != nil {
		e.logger.Warn("storageengine: %s: %v", msg, err)
	}
}

// Query returns events matching filters. A non-empty SemanticQuery tries
// the vector-search path first when both the vector index and embedder
// are available; any failure there, or its absence, falls back to a
// structured C2 query.
func (e *Engine) Query(ctx context.Context, f Filters) ([]*types.Event, error) {
	start := time.Now()
	defer func() { atomic.AddInt64(&e.stats.QueryLatencyNS, time.Since(start).Nanoseconds()) }()
	atomic.AddInt64(&e.stats.Queries, 1)

	if f.SemanticQuery != "" && e.vectors != nil && e.embed != nil {
		events, err := e.queryBySemanticSearch(ctx, f)
		if err == nil {
			return events, nil
		}
		if e.logger != nil {
			e.logger.Warn("storageengine: semantic query failed, falling back to structured: %v", err)
		}
	}

	return e.queryStructured(ctx, f)
}

func (e *Engine) queryBySemanticSearch(ctx context.Context, f Filters) ([]*types.Event, error) {
	vec, err := e.embed(ctx, EmbedModel, f.SemanticQuery)
	if err != nil {
		return nil, err
	}

	k := f.Limit
	if k <= 0 {
		k = 10
	}
	filter := &types.VectorFilter{WorkspaceID: f.WorkspaceID, SessionID: f.SessionID}
	results, err := e.vectors.Search(vec, vectorindex.SearchOptions{K: k, Filter: filter})
	if err != nil {
		return nil, err
	}

	events := make([]*types.Event, 0, len(results))
	for _, r := range results {
		id := e.resolveMemoryID(r.Document)
		if id == "" {
			continue
		}
		event, err := e.store.GetByID(ctx, id)
		if err != nil || event == nil {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// resolveMemoryID returns the owning memory id for a search hit: the
// document's own id (Capture sets it to the event id), or, when that is
// empty, metadata.id / metadata.memory_id. The vector_mappings table is
// not consulted.
func (e *Engine) resolveMemoryID(doc types.VectorDocument) string {
	if doc.ID != "" {
		return doc.ID
	}
	if v, ok := doc.Metadata["id"].(string); ok && v != "" {
		return v
	}
	if v, ok := doc.Metadata["memory_id"].(string); ok && v != "" {
		return v
	}
	return ""
}

func (e *Engine) queryStructured(ctx context.Context, f Filters) ([]*types.Event, error) {
	orderBy := f.OrderBy
	if orderBy == "" {
		orderBy = "timestamp"
	}
	orderDir := f.OrderDirection
	if orderDir == "" {
		orderDir = "ASC"
	}

	events, err := e.store.Filter(ctx, types.EventFilter{
		SessionID:   f.SessionID,
		WorkspaceID: f.WorkspaceID,
		EventType:   f.EventType,
		GitBranch:   f.GitBranch,
		Since:       f.StartTime,
		Until:       f.EndTime,
		Limit:       f.Limit,
	})
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("storageengine: structured query failed: %v", err)
		}
		return nil, nil
	}

	if orderBy == "timestamp" && orderDir == "ASC" {
		reverse(events)
	}
	return events, nil
}

func reverse(events []*types.Event) {
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
}

// Vectors exposes the underlying vector index so callers can persist or
// inspect it directly (the CLI's shutdown path persists it here).
func (e *Engine) Vectors() *vectorindex.Index {
	return e.vectors
}

// Statistics reports aggregate counts over the authoritative store.
func (e *Engine) Statistics(ctx context.Context) (sqlite.Statistics, error) {
	return e.store.Statistics(ctx)
}

// Stats returns a snapshot of the engine's own performance counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Captures:          atomic.LoadInt64(&e.stats.Captures),
		Queries:           atomic.LoadInt64(&e.stats.Queries),
		SideWriteFailures: atomic.LoadInt64(&e.stats.SideWriteFailures),
		CaptureLatencyNS:  atomic.LoadInt64(&e.stats.CaptureLatencyNS),
		QueryLatencyNS:    atomic.LoadInt64(&e.stats.QueryLatencyNS),
	}
}

// Close closes C2 then C3, in that order; idempotent. The blob store
// holds no open handle of its own, so there is nothing to close there.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		if closeErr := e.store.Close(); closeErr != nil {
			err = closeErr
		}
		if e.vectors != nil {
			if closeErr := e.vectors.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}
	})
	return err
}
