package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarkerEventsTotal counts marker-tagged messages accepted for counting.
	MarkerEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marker_events_total",
			Help: "Total marker-tagged messages counted",
		},
	)

	// CounterIncrementsTotal counts individual counter increments by kind
	// (sent/received) and table (cumulative/daily).
	CounterIncrementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_increments_total",
			Help: "Total counter increments by kind and table",
		},
		[]string{"kind", "table"},
	)

	// StoreErrorsTotal counts swallowed storage failures by operation.
	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Total storage failures by operation",
		},
		[]string{"op"},
	)

	// DispatchTicksTotal counts dispatcher tick evaluations.
	DispatchTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_ticks_total",
			Help: "Total dispatcher ticks",
		},
	)

	// DispatchPublishesTotal counts scheduled publish attempts by outcome
	// (ok, empty, error).
	DispatchPublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_publishes_total",
			Help: "Total scheduled report publishes by status",
		},
		[]string{"status"},
	)
)
