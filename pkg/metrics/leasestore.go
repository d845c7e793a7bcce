package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LocalProviderMetrics tracks the embedded badger-backed lease store's hit
// rate. All methods are nil-safe so callers can hold a nil pointer when
// metrics are disabled.
type LocalProviderMetrics struct {
	hitRatio *prometheus.GaugeVec
	misses   *prometheus.CounterVec
	hits     *prometheus.CounterVec
}

// NewLocalProviderMetrics returns nil when metrics are disabled.
func NewLocalProviderMetrics() *LocalProviderMetrics {
	if !IsEnabled() {
		return nil
	}
	reg := GetRegistry()
	return &LocalProviderMetrics{
		hitRatio: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "hostlease_localprovider_hit_ratio",
			Help: "Fraction of lease reads served from the local badger store's cache.",
		}, []string{"host_id"}),
		misses: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hostlease_localprovider_misses_total",
			Help: "Total lease-record lookups in the badger store that found no record.",
		}, []string{"host_id"}),
		hits: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hostlease_localprovider_hits_total",
			Help: "Total lease-record lookups in the badger store that found an existing record.",
		}, []string{"host_id"}),
	}
}

func (m *LocalProviderMetrics) RecordHitRatio(hostID string, ratio float64) {
	if m == nil {
		return
	}
	m.hitRatio.WithLabelValues(hostID).Set(ratio)
}

func (m *LocalProviderMetrics) RecordMiss(hostID string) {
	if m == nil {
		return
	}
	m.misses.WithLabelValues(hostID).Inc()
}

func (m *LocalProviderMetrics) RecordHit(hostID string) {
	if m == nil {
		return
	}
	m.hits.WithLabelValues(hostID).Inc()
}
