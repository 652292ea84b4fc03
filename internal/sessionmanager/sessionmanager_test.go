package sessionmanager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/memkit/memoryd/internal/config"
	"github.com/memkit/memoryd/internal/types"
)

type memPersister struct {
	mu       sync.Mutex
	sessions map[string]*types.Session
}

func newMemPersister() *memPersister {
	return &memPersister{sessions: make(map[string]*types.Session)}
}

func (p *memPersister) PutSession(ctx context.Context, s *types.Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := *s
	p.sessions[s.ID] = &cp
	return nil
}

func (p *memPersister) GetSession(ctx context.Context, id string) (*types.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[id], nil
}

func (p *memPersister) FindActiveByWorkspace(ctx context.Context, workspaceID string) (*types.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.sessions {
		if s.WorkspaceID == workspaceID && s.IsActive {
			return s, nil
		}
	}
	return nil, nil
}

func (p *memPersister) ListActiveSessions(ctx context.Context) ([]*types.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*types.Session
	for _, s := range p.sessions {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func testCfg() config.SessionManagerConfig {
	return config.SessionManagerConfig{
		MaxActiveSessions: 2,
		SessionTimeout:    50 * time.Millisecond,
		CleanupInterval:   10 * time.Millisecond,
	}
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	m, err := New(ctx, testCfg(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()

	s, err := m.Create(ctx, "ws1", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.WorkspaceID != "ws1" || !s.IsActive {
		t.Fatalf("unexpected session: %+v", s)
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.ID != s.ID {
		t.Fatalf("Get() = %+v, want session %s", got, s.ID)
	}
}

func TestCreateEnforcesMaxActiveSessions(t *testing.T) {
	ctx := context.Background()
	m, err := New(ctx, testCfg(), nil) // MaxActiveSessions = 2
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()

	if _, err := m.Create(ctx, "ws1", nil); err != nil {
		t.Fatalf("Create 1: %v", err)
	}
	if _, err := m.Create(ctx, "ws2", nil); err != nil {
		t.Fatalf("Create 2: %v", err)
	}
	if _, err := m.Create(ctx, "ws3", nil); err == nil {
		t.Error("expected third Create to fail past max_active_sessions")
	}
}

func TestGetOrCreateRefreshesExisting(t *testing.T) {
	ctx := context.Background()
	m, err := New(ctx, testCfg(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()

	first, err := m.GetOrCreate(ctx, "ws1", "")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	second, err := m.GetOrCreate(ctx, "ws1", first.ID)
	if err != nil {
		t.Fatalf("GetOrCreate refresh: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected same session id to be reused, got %s vs %s", second.ID, first.ID)
	}
}

func TestGetOrCreateWrongWorkspaceCreatesNew(t *testing.T) {
	ctx := context.Background()
	m, err := New(ctx, testCfg(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()

	first, err := m.GetOrCreate(ctx, "ws1", "")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	second, err := m.GetOrCreate(ctx, "ws2", first.ID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if second.ID == first.ID {
		t.Error("expected a different session for a mismatched workspace")
	}
	if second.WorkspaceID != "ws2" {
		t.Errorf("WorkspaceID = %s, want ws2", second.WorkspaceID)
	}
}

func TestConcurrentGetOrCreateConverges(t *testing.T) {
	ctx := context.Background()
	cfg := testCfg()
	cfg.MaxActiveSessions = 100
	m, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()

	const n = 25
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			s, err := m.GetOrCreate(ctx, "shared-workspace", "")
			if err != nil {
				t.Errorf("GetOrCreate: %v", err)
				return
			}
			ids[idx] = s.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("expected all concurrent calls to converge on one session id, got %s and %s", ids[0], ids[i])
		}
	}
}

func TestEndMarksInactive(t *testing.T) {
	ctx := context.Background()
	m, err := New(ctx, testCfg(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()

	s, _ := m.Create(ctx, "ws1", nil)
	if err := m.End(ctx, s.ID); err != nil {
		t.Fatalf("End: %v", err)
	}
	if got, _ := m.Get(s.ID); got != nil {
		t.Error("expected ended session to no longer be returned by Get")
	}
}

func TestCleanupInactiveExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	cfg := testCfg()
	cfg.SessionTimeout = 10 * time.Millisecond
	cfg.CleanupInterval = time.Hour // disable the background loop racing the manual call
	m, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()

	s, _ := m.Create(ctx, "ws1", nil)
	time.Sleep(20 * time.Millisecond)

	n, err := m.CleanupInactive(ctx)
	if err != nil {
		t.Fatalf("CleanupInactive: %v", err)
	}
	if n != 1 {
		t.Errorf("CleanupInactive() = %d, want 1", n)
	}
	if got, _ := m.Get(s.ID); got != nil {
		t.Error("expected idle session to be cleaned up")
	}
}

func TestNewRehydratesActiveSessionsFromStore(t *testing.T) {
	ctx := context.Background()
	store := newMemPersister()
	_ = store.PutSession(ctx, &types.Session{
		ID: "session_existing", WorkspaceID: "ws1",
		StartTime: time.Now(), LastActivity: time.Now(), IsActive: true,
	})

	m, err := New(ctx, testCfg(), store)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()

	got, err := m.Get("session_existing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected rehydrated session to be retrievable")
	}
}
