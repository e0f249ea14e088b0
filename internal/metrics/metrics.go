package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ksred/summit-api/internal/types"
)

// Recorder collects per-operation counters and latencies for the ledger engines.
// A nil *Recorder records nothing.
type Recorder struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func NewRecorder(namespace string) *Recorder {
	return &Recorder{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Ledger operations by outcome (ok or error kind)",
			},
			[]string{"operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "operation_duration_seconds",
				Help:      "Ledger operation latency",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"operation"},
		),
	}
}

// Register registers all metrics with the given registry.
func (r *Recorder) Register(registry prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{r.operations, r.duration} {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Observe records one completed operation that started at start and ended with err.
func (r *Recorder) Observe(operation string, start time.Time, err error) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(operation, types.Kind(err)).Inc()
	r.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
