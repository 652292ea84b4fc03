// Package sessionmanager implements the Session Manager (C7): a
// workspace-to-active-session map with idle timeout, optional relational
// persistence, and a cap on concurrent sessions.
package sessionmanager

import (
	"context"
	"sync"
	"time"

	"github.com/memkit/memoryd/internal/config"
	"github.com/memkit/memoryd/internal/errs"
	"github.com/memkit/memoryd/internal/idgen"
	"github.com/memkit/memoryd/internal/types"
)

// Persister is the minimal relational surface the Session Manager needs.
// A nil Persister means sessions are tracked in memory only.
type Persister interface {
	PutSession(ctx context.Context, s *types.Session) error
	GetSession(ctx context.Context, id string) (*types.Session, error)
	FindActiveByWorkspace(ctx context.Context, workspaceID string) (*types.Session, error)
	ListActiveSessions(ctx context.Context) ([]*types.Session, error)
}

// Manager issues and tracks sessions.
type Manager struct {
	cfg   config.SessionManagerConfig
	store Persister

	mu       sync.Mutex
	sessions map[string]*types.Session // id -> session
	byWS     map[string]string         // workspace_id -> active session id

	// creating serializes concurrent get_or_create calls for the same
	// workspace so they converge on one session id instead of racing to
	// create two.
	creating map[string]chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Manager. If store is non-nil, active sessions are
// re-hydrated from it immediately, and every state-changing operation is
// mirrored back to it. The periodic cleanup loop starts immediately.
func New(ctx context.Context, cfg config.SessionManagerConfig, store Persister) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errs.Wrap(errs.Validation, "sessionmanager.new", "invalid session manager configuration", err)
	}

	m := &Manager{
		cfg:      cfg,
		store:    store,
		sessions: make(map[string]*types.Session),
		byWS:     make(map[string]string),
		creating: make(map[string]chan struct{}),
	}

	if store != nil {
		active, err := store.ListActiveSessions(ctx)
		if err != nil {
			return nil, errs.Wrap(errs.StoreUnavailable, "sessionmanager.new", "failed to rehydrate active sessions", err)
		}
		for _, s := range active {
			m.sessions[s.ID] = s
			if s.WorkspaceID != "" {
				m.byWS[s.WorkspaceID] = s.ID
			}
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.cleanupLoop(loopCtx)

	return m, nil
}

// Close stops the periodic cleanup loop.
func (m *Manager) Close() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
}

func (m *Manager) cleanupLoop(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = m.CleanupInactive(ctx)
		}
	}
}

// Create starts a new session for workspaceID, rejecting the call if
// max_active_sessions is already reached.
func (m *Manager) Create(ctx context.Context, workspaceID string, metadata map[string]interface{}) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(ctx, workspaceID, metadata)
}

func (m *Manager) createLocked(ctx context.Context, workspaceID string, metadata map[string]interface{}) (*types.Session, error) {
	if m.activeCountLocked() >= m.cfg.MaxActiveSessions {
		return nil, errs.New(errs.RateLimited, "sessionmanager.create", "max_active_sessions reached")
	}

	now := time.Now()
	s := &types.Session{
		ID:           idgen.NewSessionID(),
		WorkspaceID:  workspaceID,
		StartTime:    now,
		LastActivity: now,
		IsActive:     true,
		Metadata:     metadata,
	}
	m.sessions[s.ID] = s
	if workspaceID != "" {
		m.byWS[workspaceID] = s.ID
	}

	if m.store != nil {
		if err := m.store.PutSession(ctx, s); err != nil {
			return nil, errs.Wrap(errs.StoreUnavailable, "sessionmanager.create", "failed to persist session", err)
		}
	}
	return s, nil
}

func (m *Manager) activeCountLocked() int {
	var n int
	for _, s := range m.sessions {
		if s.IsActive {
			n++
		}
	}
	return n
}

// Get returns a session by id, or (nil, nil) if it is unknown or has
// gone idle past session_timeout.
func (m *Manager) Get(id string) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	if !s.Active(time.Now(), m.cfg.SessionTimeout) {
		return nil, nil
	}
	return s, nil
}

// GetOrCreate returns the session named by id if it exists and belongs
// to workspaceID, refreshing its last_activity; otherwise it creates a
// new session for workspaceID. Concurrent calls for the same workspace
// with no id converge on a single created session.
func (m *Manager) GetOrCreate(ctx context.Context, workspaceID, id string) (*types.Session, error) {
	m.mu.Lock()
	if id != "" {
		if s, ok := m.sessions[id]; ok && s.WorkspaceID == workspaceID && s.Active(time.Now(), m.cfg.SessionTimeout) {
			s.LastActivity = time.Now()
			store := m.store
			m.mu.Unlock()
			if store != nil {
				if err := store.PutSession(ctx, s); err != nil {
					return nil, errs.Wrap(errs.StoreUnavailable, "sessionmanager.get_or_create", "failed to persist activity", err)
				}
			}
			return s, nil
		}
	}

	// No usable existing session. Serialize creation per workspace so
	// concurrent callers converge on one session id instead of each
	// creating their own.
	for {
		if wait, inFlight := m.creating[workspaceID]; inFlight {
			m.mu.Unlock()
			<-wait
			m.mu.Lock()
			if existingID, ok := m.byWS[workspaceID]; ok {
				if s, ok := m.sessions[existingID]; ok && s.Active(time.Now(), m.cfg.SessionTimeout) {
					m.mu.Unlock()
					return s, nil
				}
			}
			continue
		}
		break
	}

	if existingID, ok := m.byWS[workspaceID]; ok {
		if s, ok := m.sessions[existingID]; ok && s.Active(time.Now(), m.cfg.SessionTimeout) {
			m.mu.Unlock()
			return s, nil
		}
	}

	gate := make(chan struct{})
	m.creating[workspaceID] = gate
	s, err := m.createLocked(ctx, workspaceID, nil)
	delete(m.creating, workspaceID)
	close(gate)
	m.mu.Unlock()
	return s, err
}

// FindActive returns the active session for a workspace, if any.
func (m *Manager) FindActive(workspaceID string) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byWS[workspaceID]
	if !ok {
		return nil, nil
	}
	s, ok := m.sessions[id]
	if !ok || !s.Active(time.Now(), m.cfg.SessionTimeout) {
		return nil, nil
	}
	return s, nil
}

// End marks a session terminated.
func (m *Manager) End(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	now := time.Now()
	s.IsActive = false
	s.EndTime = &now
	store := m.store
	m.mu.Unlock()

	if store != nil {
		if err := store.PutSession(ctx, s); err != nil {
			return errs.Wrap(errs.StoreUnavailable, "sessionmanager.end", "failed to persist session end", err)
		}
	}
	return nil
}

// GetActive returns every session currently considered active.
func (m *Manager) GetActive() []*types.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var out []*types.Session
	for _, s := range m.sessions {
		if s.Active(now, m.cfg.SessionTimeout) {
			out = append(out, s)
		}
	}
	return out
}

// CleanupInactive marks every session that has exceeded session_timeout
// as inactive, returning the count affected.
func (m *Manager) CleanupInactive(ctx context.Context) (int, error) {
	m.mu.Lock()
	now := time.Now()
	var toPersist []*types.Session
	for _, s := range m.sessions {
		if s.IsActive && now.Sub(s.LastActivity) >= m.cfg.SessionTimeout {
			s.IsActive = false
			endTime := now
			s.EndTime = &endTime
			toPersist = append(toPersist, s)
		}
	}
	store := m.store
	m.mu.Unlock()

	if store != nil {
		for _, s := range toPersist {
			if err := store.PutSession(ctx, s); err != nil {
				return len(toPersist), errs.Wrap(errs.StoreUnavailable, "sessionmanager.cleanup_inactive", "failed to persist session", err)
			}
		}
	}
	return len(toPersist), nil
}
