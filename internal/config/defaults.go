package config

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultConfig returns a complete configuration using only built-in
// defaults. Used when no config file is found.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Trace.SystemTracesEnabled = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyLeaseDefaults(&cfg.Lease)
	applyTraceDefaults(&cfg.Trace)
	applyStatusAPIDefaults(&cfg.StatusAPI)
	applyMetricsDefaults(&cfg.Metrics)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "hostleased"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"}
	}
}

// applyLeaseDefaults implements the construction-contract defaults from
// the lease manager: renewalInterval = leaseTimeout - 3s, retryInterval = 5s.
func applyLeaseDefaults(cfg *LeaseConfig) {
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RenewalInterval == 0 {
		cfg.RenewalInterval = cfg.Timeout - 3*time.Second
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	if cfg.Provider == "" {
		cfg.Provider = "local"
	}
}

func applyTraceDefaults(cfg *TraceConfig) {
	if cfg.Level == "" {
		cfg.Level = "Info"
	}
	// SystemTracesEnabled's zero value (false) is indistinguishable from an
	// explicit opt-out, so unlike the other fields here we do not force a
	// true default; config.DefaultConfig wants it on, so it sets it directly.
	if cfg.FileLoggingMode == "" {
		cfg.FileLoggingMode = "Always"
	}
	if cfg.RootLogPath == "" {
		cfg.RootLogPath = "/var/log/hostleased"
	}
	if cfg.SiteName == "" {
		cfg.SiteName = "default"
	}
	if cfg.AppName == "" {
		cfg.AppName = "hostleased"
	}
}

func applyStatusAPIDefaults(cfg *StatusAPIConfig) {
	if cfg.Addr == "" {
		cfg.Addr = ":8443"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}
