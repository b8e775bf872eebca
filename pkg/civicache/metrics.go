package civicache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	ops     *prometheus.CounterVec
	misses  *prometheus.CounterVec
	swaps   prometheus.Counter
	failed  *prometheus.CounterVec
	pending prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		ops: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "civicache_ops_total",
			Help: "Cache operations by name",
		}, []string{"op"}),
		misses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "civicache_cache_miss_total",
			Help: "Patches and deltas skipped because the target was not cached",
		}, []string{"op"}),
		swaps: factory.NewCounter(prometheus.CounterOpts{
			Name: "civicache_swaps_total",
			Help: "Temporary IDs swapped for server IDs",
		}),
		failed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "civicache_pending_failed_total",
			Help: "Optimistic entities rolled back",
		}, []string{"reason"}),
		pending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "civicache_pending",
			Help: "Optimistic entities awaiting confirmation",
		}),
	}
}
