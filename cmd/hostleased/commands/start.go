package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hostlease/hostlease/internal/config"
	"github.com/hostlease/hostlease/internal/logger"
	"github.com/hostlease/hostlease/internal/statusapi"
	"github.com/hostlease/hostlease/internal/telemetry"
	"github.com/hostlease/hostlease/pkg/audit"
	"github.com/hostlease/hostlease/pkg/lease"
	"github.com/hostlease/hostlease/pkg/metrics"
	"github.com/hostlease/hostlease/pkg/trace/factory"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the lease daemon in the foreground",
	Long: `Start races the configured lease provider for ownership of this
host and holds it for as long as it can, renewing on a fixed cadence.
Runs in the foreground; use a process supervisor (systemd, etc.) for
background operation and restarts.

Examples:
  hostleased start
  hostleased start --config /etc/hostleased/config.yaml`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	if cfg.Metrics.Enabled {
		metrics.Init()
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("metrics disabled")
	}

	var traceMetrics *metrics.TraceMetrics
	if cfg.Metrics.Enabled {
		traceMetrics = metrics.NewTraceMetrics()
	}

	traceWriter, err := factory.New(ctx, cfg.Lease.HostID, factory.Config{
		Level:               parseTraceLevel(cfg.Trace.Level),
		SystemTracesEnabled: cfg.Trace.SystemTracesEnabled,
		Standalone:          cfg.Trace.Standalone,
		FileLoggingMode:     parseFileLoggingMode(cfg.Trace.FileLoggingMode),
		RootLogPath:         cfg.Trace.RootLogPath,
		SQLDSN:              cfg.Trace.SQL.DSN,
		ServerName:          cfg.Trace.SiteName,
		AppName:             cfg.Trace.AppName,
		Metrics:             traceMetrics,
	})
	if err != nil {
		return fmt.Errorf("failed to build trace writer: %w", err)
	}
	defer func() {
		if err := traceWriter.Dispose(); err != nil {
			logger.Error("trace writer dispose error", "error", err)
		}
	}()

	provider, closeProvider, err := newProvider(ctx, cfg.Lease)
	if err != nil {
		return fmt.Errorf("failed to build lease provider: %w", err)
	}
	defer func() {
		if err := closeProvider(); err != nil {
			logger.Error("lease provider close error", "error", err)
		}
	}()

	var recorder *audit.Recorder
	if cfg.Audit.Enabled {
		recorder, err = audit.New(cfg.Audit.DSN, cfg.Lease.InstanceID, cfg.Lease.HostID, cfg.Lease.AccountName)
		if err != nil {
			return fmt.Errorf("failed to initialize audit recorder: %w", err)
		}
		defer func() {
			if err := recorder.Close(); err != nil {
				logger.Error("audit recorder close error", "error", err)
			}
		}()
	}

	manager, err := lease.New(provider, lease.Config{
		AccountName:     cfg.Lease.AccountName,
		HostID:          cfg.Lease.HostID,
		InstanceID:      cfg.Lease.InstanceID,
		LeaseTimeout:    cfg.Lease.Timeout,
		RenewalInterval: cfg.Lease.RenewalInterval,
		RetryInterval:   cfg.Lease.RetryInterval,
		TraceWriter:     leaseTraceAdapter{writer: traceWriter},
		OnTransition:    recorder.RecordTransition,
	})
	if err != nil {
		return fmt.Errorf("failed to start lease manager: %w", err)
	}
	defer manager.Dispose()

	var statusSrv *statusapi.Server
	if cfg.StatusAPI.Enabled {
		statusSrv = statusapi.New(manager, traceWriter, statusapi.Config{
			JWTSecret: cfg.StatusAPI.JWTSecret,
			JWTIssuer: cfg.StatusAPI.JWTIssuer,
		})
		srvErrCh := make(chan error, 1)
		httpSrv := newHTTPServer(cfg.StatusAPI.Addr, statusSrv)
		go func() { srvErrCh <- httpSrv.ListenAndServe() }()
		defer func() { _ = httpSrv.Close() }()
		logger.Info("status API listening", "addr", cfg.StatusAPI.Addr)
	}

	logger.Info("hostleased running", "host_id", cfg.Lease.HostID, "instance_id", cfg.Lease.InstanceID, "provider", cfg.Lease.Provider)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	signal.Stop(sigCh)
	logger.Info("shutdown signal received, draining")

	return nil
}
