package resourcemonitor

import (
	"context"
	"os"
	"runtime"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sync/errgroup"

	"github.com/memkit/memoryd/internal/types"
)

var processStart = time.Now()

// sample gathers one ResourceMetrics snapshot. Memory, CPU, and process
// sampling run concurrently via errgroup since each hits a distinct
// gopsutil subsystem with its own syscall cost.
func sample(ctx context.Context) (types.ResourceMetrics, error) {
	m := types.ResourceMetrics{Timestamp: time.Now()}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return err
		}
		m.Memory = types.MemoryMetrics{
			Total:       vm.Total,
			Used:        vm.Used,
			Free:        vm.Free,
			Utilization: vm.UsedPercent / 100,
		}
		return nil
	})

	g.Go(func() error {
		pcts, err := cpu.PercentWithContext(ctx, 0, false)
		if err != nil {
			return err
		}
		avg, err := load.AvgWithContext(ctx)
		var loadAvg [3]float64
		if err == nil && avg != nil {
			loadAvg = [3]float64{avg.Load1, avg.Load5, avg.Load15}
		}
		util := 0.0
		if len(pcts) > 0 {
			util = pcts[0] / 100
		}
		m.CPU = types.CPUMetrics{
			Cores:       runtime.NumCPU(),
			Utilization: util,
			LoadAvg:     loadAvg,
		}
		return nil
	})

	g.Go(func() error {
		proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
		if err != nil {
			return err
		}
		memInfo, err := proc.MemInfoWithContext(ctx)
		var rss uint64
		if err == nil && memInfo != nil {
			rss = memInfo.RSS
		}
		var goMem runtime.MemStats
		runtime.ReadMemStats(&goMem)
		m.Process = types.ProcessMetrics{
			PID:       os.Getpid(),
			RSS:       rss,
			HeapUsed:  goMem.HeapAlloc,
			HeapTotal: goMem.HeapSys,
			Uptime:    time.Since(processStart),
		}

		if numFDs, fdErr := proc.NumFDsWithContext(ctx); fdErr == nil {
			limit := uint64(fdSoftLimit())
			fd := &types.FileDescriptorMetrics{Open: uint64(numFDs)}
			if limit > 0 {
				fd.Limit = limit
				fd.Utilization = float64(numFDs) / float64(limit)
			}
			m.FileDescriptors = fd
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return m, err
	}

	sanitize(&m)
	m.Clamp()
	return m, nil
}

// fdSoftLimit returns the process's soft RLIMIT_NOFILE, or 0 if it could
// not be determined.
func fdSoftLimit() uint64 {
	var rlimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rlimit); err != nil {
		return 0
	}
	return rlimit.Cur
}

// sanitize enforces the non-negative, non-zero-total rules from the
// spec's sampling-loop section before clamping utilization to [0,1].
func sanitize(m *types.ResourceMetrics) {
	if m.Memory.Total == 0 {
		m.Memory.Total = 1
	}
	if m.Disk != nil && m.Disk.Total == 0 {
		m.Disk.Total = 1
	}
}
