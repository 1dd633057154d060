package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Vortex-lattice solver metrics.
var (
	VLMSolvesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aerolab",
			Name:      "vlm_solves_total",
			Help:      "Total number of vortex-lattice solves",
		},
		[]string{"status"},
	)

	VLMSolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "aerolab",
			Name:      "vlm_solve_duration_seconds",
			Help:      "Vortex-lattice solve duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)

	VLMPanels = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "aerolab",
			Name:      "vlm_panels",
			Help:      "Panels per solve",
			Buckets:   prometheus.ExponentialBuckets(4, 2, 10),
		},
	)
)

var vlmMetricsRegistered bool

// RegisterVLMMetrics registers solver metrics. Safe to call more than once.
func RegisterVLMMetrics() {
	if vlmMetricsRegistered {
		return
	}
	prometheus.MustRegister(VLMSolvesTotal)
	prometheus.MustRegister(VLMSolveDuration)
	prometheus.MustRegister(VLMPanels)
	vlmMetricsRegistered = true
}

// SolveObserver feeds solver timings into Prometheus.
type SolveObserver struct{}

// ObserveSolve implements the solver observer hook.
func (SolveObserver) ObserveSolve(panels int, elapsed time.Duration, err error) {
	VLMSolvesTotal.WithLabelValues(Status(err)).Inc()
	if err != nil {
		return
	}
	VLMSolveDuration.Observe(elapsed.Seconds())
	VLMPanels.Observe(float64(panels))
}
