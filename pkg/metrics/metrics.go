// Package metrics owns the process-wide Prometheus registry and the
// collectors for the domain packages (LocalProviderMetrics for
// pkg/lease/localprovider, TraceMetrics for pkg/trace). Collectors are
// registered lazily, through GetRegistry, and their constructors return nil
// while metrics are disabled. The domain packages do not import this
// package; they take the collectors through narrow local interfaces.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	enabled  atomic.Bool
	initOnce sync.Once
	registry *prometheus.Registry
)

// Init enables metrics collection and creates the shared registry. Safe to
// call more than once; only the first call has effect.
func Init() *prometheus.Registry {
	initOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		)
		enabled.Store(true)
	})
	return registry
}

// IsEnabled reports whether Init has been called. Collector constructors
// use this to return a nil receiver instead of registering against a
// registry that will never be scraped.
func IsEnabled() bool {
	return enabled.Load()
}

// GetRegistry returns the shared registry, or nil if metrics are disabled.
func GetRegistry() *prometheus.Registry {
	if !IsEnabled() {
		return nil
	}
	return registry
}
