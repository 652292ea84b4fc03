package resourcemonitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/memkit/memoryd/internal/config"
	"github.com/memkit/memoryd/internal/types"
)

func testConfig() config.ResourceMonitorConfig {
	cfg := config.DefaultResourceMonitorConfig()
	cfg.MonitoringInterval = 5 * time.Millisecond
	cfg.HistorySize = 3
	cfg.AlertCooldown = 0
	return cfg
}

func TestOverallLevelPicksPointwiseMax(t *testing.T) {
	cfg := config.DefaultResourceMonitorConfig()
	snap := types.ResourceMetrics{
		Memory: types.MemoryMetrics{Utilization: 0.5},
		CPU:    types.CPUMetrics{Utilization: 0.97},
	}
	if got := OverallLevel(snap, cfg); got != types.PressureEmergency {
		t.Errorf("OverallLevel() = %v, want PressureEmergency driven by CPU", got)
	}
}

func TestOverallLevelIgnoresNilOptionalResources(t *testing.T) {
	cfg := config.DefaultResourceMonitorConfig()
	snap := types.ResourceMetrics{
		Memory: types.MemoryMetrics{Utilization: 0.1},
		CPU:    types.CPUMetrics{Utilization: 0.1},
	}
	if got := OverallLevel(snap, cfg); got != types.PressureNormal {
		t.Errorf("OverallLevel() = %v, want PressureNormal", got)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.HistorySize = 0
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected New to reject history_size <= 0")
	}
}

func TestStartSamplesImmediatelyAndOnInterval(t *testing.T) {
	m, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	m.Start(ctx)
	defer m.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := m.Latest(); ok {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if _, ok := m.Latest(); !ok {
		t.Fatal("expected an immediate sample on Start")
	}

	time.Sleep(50 * time.Millisecond)
	if len(m.History()) < 2 {
		t.Error("expected multiple samples to accumulate over several ticks")
	}

	counters := m.Counters()
	if counters.TotalCollections == 0 {
		t.Error("expected TotalCollections to be nonzero")
	}
}

func TestHistoryRespectsSizeCap(t *testing.T) {
	m, err := New(testConfig(), nil) // HistorySize = 3
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.Start(context.Background())
	defer m.Stop()

	time.Sleep(100 * time.Millisecond)
	if len(m.History()) > 3 {
		t.Errorf("History() length = %d, want <= 3", len(m.History()))
	}
}

func TestStopEndsLoop(t *testing.T) {
	m, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.Start(context.Background())
	m.Stop()

	counters := m.Counters()
	time.Sleep(20 * time.Millisecond)
	if m.Counters().TotalCollections != counters.TotalCollections {
		t.Error("expected no further samples after Stop")
	}
}

func TestRegisterCleanupHandlerFiresOnEmergency(t *testing.T) {
	cfg := testConfig()
	cfg.Memory.Warning, cfg.Memory.Critical, cfg.Memory.Emergency = 0, 0.000001, 0.000002
	m, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var mu sync.Mutex
	fired := 0
	m.RegisterCleanupHandler(func(ctx context.Context, analysis types.ResourceMetrics) {
		mu.Lock()
		fired++
		mu.Unlock()
	})

	m.Start(context.Background())
	defer m.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		got := fired
		mu.Unlock()
		if got > 0 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if fired == 0 {
		t.Error("expected cleanup handler to fire once memory utilization trips every threshold")
	}
}

func TestUpdateConfigRejectsInvalid(t *testing.T) {
	m, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	bad := testConfig()
	bad.HistorySize = -1
	if err := m.UpdateConfig(bad); err == nil {
		t.Error("expected UpdateConfig to reject an invalid configuration")
	}
}
