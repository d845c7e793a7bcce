// Package config loads and validates hostleased/hostleasectl configuration
// from a YAML file, environment variables, and built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the hostleased daemon.
//
// Configuration sources, highest precedence first:
//  1. Environment variables (HOSTLEASE_*), for keys the file sets
//  2. Configuration file (YAML)
//  3. Built-in defaults, for fields left empty
//
// When no configuration file is found, the built-in defaults are used as
// they are and environment variables are not read. No CLI flag overrides a
// configuration value; --config only selects the file.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing and profiling.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is validated and defaulted, but hostleased start does
	// not read it: on SIGINT/SIGTERM the deferred Dispose/Close calls run
	// without a deadline.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Lease configures the LeaseManager and its backing provider.
	Lease LeaseConfig `mapstructure:"lease" yaml:"lease"`

	// Trace configures the BufferedTraceWriter and its sinks.
	Trace TraceConfig `mapstructure:"trace" yaml:"trace"`

	// Audit configures the persisted lease-transition history store.
	Audit AuditConfig `mapstructure:"audit" yaml:"audit"`

	// StatusAPI configures the read-only HTTP status endpoint.
	StatusAPI StatusAPIConfig `mapstructure:"status_api" yaml:"status_api"`

	// Metrics controls Prometheus metrics collection.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// ServiceName is reported to the trace backend.
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`

	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use a non-TLS connection.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration.
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect.
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// LeaseConfig configures the LeaseManager and its provider.
type LeaseConfig struct {
	// AccountName identifies the shared storage account the lease lives in.
	AccountName string `mapstructure:"account_name" validate:"required" yaml:"account_name"`

	// HostID is the logical host identity the lease guards.
	HostID string `mapstructure:"host_id" validate:"required" yaml:"host_id"`

	// InstanceID identifies this process among the instances racing for the
	// lease. Defaults to a generated UUID when blank.
	InstanceID string `mapstructure:"instance_id" yaml:"instance_id,omitempty"`

	// Timeout is the lease period, constrained to [15s, 60s].
	Timeout time.Duration `mapstructure:"timeout" validate:"required,gte=15000000000,lte=60000000000" yaml:"timeout"`

	// RenewalInterval overrides the default of Timeout-3s. Zero uses the default.
	RenewalInterval time.Duration `mapstructure:"renewal_interval" yaml:"renewal_interval,omitempty"`

	// RetryInterval overrides the default 5s retry cadence while seeking.
	RetryInterval time.Duration `mapstructure:"retry_interval" yaml:"retry_interval,omitempty"`

	// Provider selects the backing LeaseProvider implementation.
	// Valid values: postgres, s3, local.
	Provider string `mapstructure:"provider" validate:"required,oneof=postgres s3 local" yaml:"provider"`

	Postgres PostgresLeaseConfig `mapstructure:"postgres" yaml:"postgres,omitempty"`
	S3       S3LeaseConfig       `mapstructure:"s3" yaml:"s3,omitempty"`
	Local    LocalLeaseConfig    `mapstructure:"local" yaml:"local,omitempty"`
}

// PostgresLeaseConfig configures the pglease.Provider.
type PostgresLeaseConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn,omitempty"`
}

// S3LeaseConfig configures the s3lease.Provider.
type S3LeaseConfig struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket,omitempty"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix,omitempty"`
	Region    string `mapstructure:"region" yaml:"region,omitempty"`
}

// LocalLeaseConfig configures the badger-backed embedded provider.
type LocalLeaseConfig struct {
	Path string `mapstructure:"path" yaml:"path,omitempty"`
}

// TraceConfig configures the BufferedTraceWriter and the factory that
// chooses its sinks.
type TraceConfig struct {
	// Level is the minimum trace level kept by the buffered writer.
	Level string `mapstructure:"level" validate:"required,oneof=Verbose Info Warning Error" yaml:"level"`

	// SystemTracesEnabled controls whether host-internal diagnostic events
	// (isSystemTrace=true) are kept.
	SystemTracesEnabled bool `mapstructure:"system_traces_enabled" yaml:"system_traces_enabled"`

	// Standalone selects whether the factory wires a SqlSink in addition to
	// FileSink.
	Standalone bool `mapstructure:"standalone" yaml:"standalone"`

	// FileLoggingMode controls whether/when a FileSink is constructed.
	// Valid values: Always, DebugOnly, Never.
	FileLoggingMode string `mapstructure:"file_logging_mode" validate:"required,oneof=Always DebugOnly Never" yaml:"file_logging_mode"`

	// RootLogPath is the root directory FileSink writes per-function logs under.
	RootLogPath string `mapstructure:"root_log_path" yaml:"root_log_path,omitempty"`

	// SQL configures the relational SqlSink.
	SQL TraceSQLConfig `mapstructure:"sql" yaml:"sql,omitempty"`

	// SiteName, AppName identify this host in SqlSink rows.
	SiteName string `mapstructure:"site_name" yaml:"site_name,omitempty"`
	AppName  string `mapstructure:"app_name" yaml:"app_name,omitempty"`
}

// TraceSQLConfig configures the SqlSink's connection.
type TraceSQLConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn,omitempty"`
}

// AuditConfig configures the lease-transition history recorder.
type AuditConfig struct {
	// Enabled controls whether lease transitions are recorded.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// DSN is the Postgres connection string for the audit store.
	DSN string `mapstructure:"dsn" yaml:"dsn,omitempty"`
}

// StatusAPIConfig configures the read-only HTTP status endpoint.
type StatusAPIConfig struct {
	// Enabled controls whether the HTTP server is started.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Addr is the listen address, e.g. ":8443".
	Addr string `mapstructure:"addr" yaml:"addr,omitempty"`

	// JWTSecret, when non-empty, requires a valid bearer token on every /v1/*
	// request; /healthz stays unauthenticated.
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret,omitempty"`

	// JWTIssuer is the expected issuer claim when JWTSecret is set.
	JWTIssuer string `mapstructure:"jwt_issuer" yaml:"jwt_issuer,omitempty"`
}

// MetricsConfig configures Prometheus metrics collection.
type MetricsConfig struct {
	// Enabled controls whether the shared registry and collectors are
	// created. hostleased starts no HTTP listener for them.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the metrics port reported in the startup log; no server
	// listens on it.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := DefaultConfig()
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("default configuration is invalid: %w", err)
		}
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, producing a user-friendly error if the
// config file is missing at the default location.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  hostleasectl init\n\n"+
				"Or specify a custom config file:\n"+
				"  hostleased --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML to path, creating parent directories as needed.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate runs struct-tag validation plus cross-field checks that the
// validator library cannot express declaratively.
func Validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return err
	}

	if cfg.Lease.Timeout < 15*time.Second || cfg.Lease.Timeout > 60*time.Second {
		return fmt.Errorf("lease.timeout must be between 15s and 60s, got %s", cfg.Lease.Timeout)
	}

	switch cfg.Lease.Provider {
	case "postgres":
		if cfg.Lease.Postgres.DSN == "" {
			return fmt.Errorf("lease.postgres.dsn is required when lease.provider is postgres")
		}
	case "s3":
		if cfg.Lease.S3.Bucket == "" {
			return fmt.Errorf("lease.s3.bucket is required when lease.provider is s3")
		}
	case "local":
		if cfg.Lease.Local.Path == "" {
			return fmt.Errorf("lease.local.path is required when lease.provider is local")
		}
	}

	if cfg.Trace.Standalone && cfg.Trace.SQL.DSN == "" {
		return fmt.Errorf("trace.sql.dsn is required when trace.standalone is true")
	}

	if cfg.Audit.Enabled && cfg.Audit.DSN == "" {
		return fmt.Errorf("audit.dsn is required when audit.enabled is true")
	}

	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("HOSTLEASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// durationDecodeHook converts strings like "30s" into time.Duration during
// viper/mapstructure unmarshaling.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "hostleased")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "hostleased")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
