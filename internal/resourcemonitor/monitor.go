// Package resourcemonitor implements the Resource Monitor (C6): a
// sampling loop that derives four-tier memory/CPU/disk/file-descriptor
// pressure and drives emergency cleanup and cache degradation.
package resourcemonitor

import (
	"context"
	"sync"
	"time"

	"github.com/memkit/memoryd/internal/config"
	"github.com/memkit/memoryd/internal/errs"
	"github.com/memkit/memoryd/internal/types"
)

// CleanupHandler is invoked, best-effort, when overall pressure reaches
// EMERGENCY. Its analysis argument carries the snapshot that triggered it.
type CleanupHandler func(ctx context.Context, analysis types.ResourceMetrics)

// Counters tracks the loop's own performance.
type Counters struct {
	TotalCollections   int64
	AvgCollectionTime  time.Duration
	MaxCollectionTime  time.Duration
	CollectionErrors   int64
}

// Monitor runs the sampling loop and exposes pressure-level history.
type Monitor struct {
	mu      sync.RWMutex
	cfg     config.ResourceMonitorConfig
	history []types.ResourceMetrics
	counters Counters

	handlers     []CleanupHandler
	lastAlertAt  time.Time

	cancel context.CancelFunc
	done   chan struct{}
	logger *config.Logger
}

// New validates cfg and constructs a Monitor. Call Start to begin sampling.
func New(cfg config.ResourceMonitorConfig, logger *config.Logger) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errs.Wrap(errs.Validation, "resourcemonitor.new", "invalid resource monitor configuration", err)
	}
	return &Monitor{cfg: cfg, logger: logger}, nil
}

// RegisterCleanupHandler adds a handler invoked on EMERGENCY pressure.
func (m *Monitor) RegisterCleanupHandler(h CleanupHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// Start takes an immediate sample, then schedules one sample per
// monitoring_interval until Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.loop(ctx)
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)

	m.tick(ctx)

	m.mu.RLock()
	interval := m.cfg.MonitoringInterval
	m.mu.RUnlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			current := m.cfg.MonitoringInterval
			m.mu.RUnlock()
			if current != interval {
				interval = current
				ticker.Reset(interval)
			}
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	start := time.Now()
	snap, err := sample(ctx)
	elapsed := time.Since(start)

	m.mu.Lock()
	m.counters.TotalCollections++
	if err != nil {
		m.counters.CollectionErrors++
	}
	if elapsed > m.counters.MaxCollectionTime {
		m.counters.MaxCollectionTime = elapsed
	}
	n := m.counters.TotalCollections
	m.counters.AvgCollectionTime = (m.counters.AvgCollectionTime*time.Duration(n-1) + elapsed) / time.Duration(n)

	if err == nil {
		m.history = append(m.history, snap)
		if len(m.history) > m.cfg.HistorySize {
			m.history = m.history[len(m.history)-m.cfg.HistorySize:]
		}
	}
	cfg := m.cfg
	m.mu.Unlock()

	if err != nil {
		if m.logger != nil {
			m.logger.Warn("resourcemonitor: sample failed: %v", err)
		}
		return
	}

	overall := OverallLevel(snap, cfg)
	if overall == types.PressureEmergency && cfg.EmergencyCleanup {
		m.maybeFireEmergency(ctx, snap)
	}
}

func (m *Monitor) maybeFireEmergency(ctx context.Context, snap types.ResourceMetrics) {
	m.mu.Lock()
	now := time.Now()
	if !m.lastAlertAt.IsZero() && now.Sub(m.lastAlertAt) < m.cfg.AlertCooldown {
		m.mu.Unlock()
		return
	}
	m.lastAlertAt = now
	handlers := append([]CleanupHandler(nil), m.handlers...)
	m.mu.Unlock()

	for _, h := range handlers {
		func() {
			defer func() { _ = recover() }()
			h(ctx, snap)
		}()
	}
}

// Stop cancels the sampling loop and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
}

// UpdateConfig re-validates cfg and applies it. If monitoring_interval
// changed and the loop is running, the loop observes the change on its
// next ticker check and resets its period without a full restart.
func (m *Monitor) UpdateConfig(cfg config.ResourceMonitorConfig) error {
	if err := cfg.Validate(); err != nil {
		return errs.Wrap(errs.Validation, "resourcemonitor.update_config", "invalid resource monitor configuration", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
	return nil
}

// History returns a copy of the retained ring buffer, oldest first.
func (m *Monitor) History() []types.ResourceMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.ResourceMetrics, len(m.history))
	copy(out, m.history)
	return out
}

// Latest returns the most recent sample, or the zero value if none exist.
func (m *Monitor) Latest() (types.ResourceMetrics, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.history) == 0 {
		return types.ResourceMetrics{}, false
	}
	return m.history[len(m.history)-1], true
}

// Counters returns a snapshot of the loop's own performance counters.
func (m *Monitor) Counters() Counters {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters
}
