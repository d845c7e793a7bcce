package commands

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/hostlease/hostlease/internal/config"
	"github.com/hostlease/hostlease/pkg/lease"
	"github.com/hostlease/hostlease/pkg/lease/localprovider"
	"github.com/hostlease/hostlease/pkg/lease/pglease"
	"github.com/hostlease/hostlease/pkg/lease/s3lease"
	"github.com/hostlease/hostlease/pkg/metrics"
	"github.com/hostlease/hostlease/pkg/trace"
	"github.com/hostlease/hostlease/pkg/trace/factory"
)

// newProvider builds the concrete lease.Provider selected by cfg.Provider.
// The returned closer, if non-nil, must be closed on shutdown.
func newProvider(ctx context.Context, cfg config.LeaseConfig) (lease.Provider, func() error, error) {
	switch cfg.Provider {
	case "postgres":
		p, err := pglease.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres lease provider: %w", err)
		}
		return p, func() error { p.Close(); return nil }, nil

	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3.Region))
		if err != nil {
			return nil, nil, fmt.Errorf("loading AWS config: %w", err)
		}
		p := s3lease.New(awsCfg, s3lease.Config{Bucket: cfg.S3.Bucket})
		return p, func() error { return nil }, nil

	case "local":
		var p *localprovider.Provider
		var err error
		if metrics.IsEnabled() {
			p, err = localprovider.NewWithMetrics(cfg.Local.Path, metrics.NewLocalProviderMetrics())
		} else {
			p, err = localprovider.New(cfg.Local.Path)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("local lease provider: %w", err)
		}
		return p, p.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown lease provider %q", cfg.Provider)
	}
}

func parseTraceLevel(s string) trace.Level {
	switch s {
	case "Verbose":
		return trace.LevelVerbose
	case "Warning":
		return trace.LevelWarning
	case "Error":
		return trace.LevelError
	default:
		return trace.LevelInfo
	}
}

func parseFileLoggingMode(s string) factory.FileLoggingMode {
	switch s {
	case "DebugOnly":
		return factory.FileLoggingDebugOnly
	case "Never":
		return factory.FileLoggingNever
	default:
		return factory.FileLoggingAlways
	}
}
