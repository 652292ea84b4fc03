package resourcemonitor

import (
	"github.com/memkit/memoryd/internal/config"
	"github.com/memkit/memoryd/internal/types"
)

func levelFor(utilization float64, t config.Thresholds) types.PressureLevel {
	switch {
	case utilization >= t.Emergency:
		return types.PressureEmergency
	case utilization >= t.Critical:
		return types.PressureCritical
	case utilization >= t.Warning:
		return types.PressureWarning
	default:
		return types.PressureNormal
	}
}

func maxLevel(levels ...types.PressureLevel) types.PressureLevel {
	max := types.PressureNormal
	for _, l := range levels {
		if l > max {
			max = l
		}
	}
	return max
}

// OverallLevel derives the pointwise-max pressure across every
// configured resource for one snapshot.
func OverallLevel(snap types.ResourceMetrics, cfg config.ResourceMonitorConfig) types.PressureLevel {
	levels := []types.PressureLevel{
		levelFor(snap.Memory.Utilization, cfg.Memory),
		levelFor(snap.CPU.Utilization, cfg.CPU),
	}
	if snap.Disk != nil {
		levels = append(levels, levelFor(snap.Disk.Utilization, cfg.Disk))
	}
	if snap.FileDescriptors != nil {
		levels = append(levels, levelFor(snap.FileDescriptors.Utilization, cfg.FileDescriptors))
	}
	return maxLevel(levels...)
}
