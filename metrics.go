package conneg

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the dispatch collectors.
type Metrics struct {
	dispatchTotal     *prometheus.CounterVec
	selectionDuration prometheus.Histogram
}

// NewMetrics creates the dispatch collectors and registers them with
// registerer. A nil registerer creates unregistered collectors.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	return &Metrics{
		dispatchTotal: promauto.With(registerer).NewCounterVec(prometheus.CounterOpts{
			Namespace: "conneg",
			Name:      "dispatch_total",
			Help:      "Total number of dispatched requests by response status.",
		}, []string{"status"}),
		selectionDuration: promauto.With(registerer).NewHistogram(prometheus.HistogramOpts{
			Namespace: "conneg",
			Name:      "selection_duration_seconds",
			Help:      "Time (in seconds) spent selecting the operation for a request.",
			Buckets:   []float64{.00001, .000025, .00005, .0001, .00025, .0005, .001, .0025, .005, .01},
		}),
	}
}

func (m *Metrics) observeSelection(start time.Time) {
	if m == nil {
		return
	}
	m.selectionDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) countDispatch(status int) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}
