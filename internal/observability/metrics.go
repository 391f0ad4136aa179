package observability

import "github.com/prometheus/client_golang/prometheus"

// Collectors for the dispatch pipeline. Label cardinality stays bounded:
// pass results are ok/failed, delivery outcomes come from the closed
// Outcome set.

var (
	// DispatchPasses counts dispatch passes by result (ok, failed).
	DispatchPasses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_dispatch_passes_total",
			Help: "Total number of dispatch passes over inbound messages.",
		},
		[]string{"result"},
	)

	// Deliveries counts per-mirror delivery attempts by outcome
	// (delivered-as-image, delivered-as-copy, skipped, failed).
	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_deliveries_total",
			Help: "Total number of per-mirror delivery attempts.",
		},
		[]string{"outcome"},
	)

	// DispatchDuration records the wall time of successful dispatch passes.
	DispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mirror_dispatch_duration_seconds",
			Help:    "Duration of dispatch passes in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(DispatchPasses, Deliveries, DispatchDuration)
}
