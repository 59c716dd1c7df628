package ordering

import (
	"github.com/prometheus/client_golang/prometheus"
)

var OperationCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ordset",
	Subsystem: "ordering",
	Name:      "operations_total",
	Help:      "Ordering operations by kind and result.",
}, []string{"op", "result"})

var ShiftedRows = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "ordset",
	Subsystem: "ordering",
	Name:      "shifted_rows",
	Help:      "Rows whose Index changed in one operation, the moved item excluded.",
	Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000},
}, []string{"op"})

var OperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "ordset",
	Subsystem: "ordering",
	Name:      "duration_seconds",
	Help:      "Wall time of ordering operations, transaction included.",
	Buckets:   prometheus.DefBuckets,
}, []string{"op"})

// Collectors returns the package's metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{OperationCount, ShiftedRows, OperationDuration}
}

// Register registers the package's metrics with reg, tolerating repeat
// registration of the same collectors.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}
