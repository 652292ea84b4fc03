package config

import (
	"fmt"
	"time"
)

// Thresholds holds the warning/critical/emergency cut points for one
// resource, each in [0,1] and strictly increasing.
type Thresholds struct {
	Warning   float64 `yaml:"warning"`
	Critical  float64 `yaml:"critical"`
	Emergency float64 `yaml:"emergency"`
}

func (t Thresholds) validate(name string) error {
	for _, v := range []float64{t.Warning, t.Critical, t.Emergency} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s thresholds must be within [0,1] (got warning=%f critical=%f emergency=%f)",
				name, t.Warning, t.Critical, t.Emergency)
		}
	}
	if !(t.Warning < t.Critical && t.Critical < t.Emergency) {
		return fmt.Errorf("%s thresholds must satisfy warning < critical < emergency (got %f < %f < %f)",
			name, t.Warning, t.Critical, t.Emergency)
	}
	return nil
}

// ResourceMonitorConfig configures the C6 Resource Monitor.
type ResourceMonitorConfig struct {
	Memory           Thresholds    `yaml:"memory"`
	CPU              Thresholds    `yaml:"cpu"`
	Disk             Thresholds    `yaml:"disk"`
	FileDescriptors  Thresholds    `yaml:"file_descriptors"`
	MonitoringInterval time.Duration `yaml:"monitoring_interval"`
	HistorySize      int           `yaml:"history_size"`
	EmergencyCleanup bool          `yaml:"emergency_cleanup"`
	AlertCooldown    time.Duration `yaml:"alert_cooldown"`
}

// DefaultResourceMonitorConfig returns the default Resource Monitor configuration.
func DefaultResourceMonitorConfig() ResourceMonitorConfig {
	return ResourceMonitorConfig{
		Memory:             Thresholds{Warning: 0.70, Critical: 0.85, Emergency: 0.95},
		CPU:                Thresholds{Warning: 0.70, Critical: 0.85, Emergency: 0.95},
		Disk:               Thresholds{Warning: 0.80, Critical: 0.90, Emergency: 0.97},
		FileDescriptors:    Thresholds{Warning: 0.70, Critical: 0.85, Emergency: 0.95},
		MonitoringInterval: 10 * time.Second,
		HistorySize:        360,
		EmergencyCleanup:   true,
		AlertCooldown:      time.Minute,
	}
}

// Validate checks the configuration against spec §4.6's construction rules.
func (c ResourceMonitorConfig) Validate() error {
	if err := c.Memory.validate("memory"); err != nil {
		return err
	}
	if err := c.CPU.validate("cpu"); err != nil {
		return err
	}
	if err := c.Disk.validate("disk"); err != nil {
		return err
	}
	if err := c.FileDescriptors.validate("file_descriptors"); err != nil {
		return err
	}
	if c.MonitoringInterval < 0 {
		return fmt.Errorf("monitoring_interval cannot be negative (got %s)", c.MonitoringInterval)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("history_size must be positive (got %d)", c.HistorySize)
	}
	return nil
}
