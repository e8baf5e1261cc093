// Package observability provides run metrics and logger construction for
// the averaging pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and gauges for one averaging run.
// Each Metrics owns its registry, so batch invocations and parallel tests
// never collide on registration.
type Metrics struct {
	StationsConsidered   prometheus.Counter
	StationsSkipped      *prometheus.CounterVec // label: reason
	StationsContributing prometheus.Gauge
	SamplesInterpolated  prometheus.Counter
	RunDuration          prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all pipeline metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		StationsConsidered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neutronavg",
			Name:      "stations_considered_total",
			Help:      "Stations read from the metadata table.",
		}),
		StationsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neutronavg",
			Name:      "stations_skipped_total",
			Help:      "Stations dropped before averaging, by reason.",
		}, []string{"reason"}),
		StationsContributing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "neutronavg",
			Name:      "stations_contributing",
			Help:      "Stations that passed every filter and joined the ensemble.",
		}),
		SamplesInterpolated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "neutronavg",
			Name:      "samples_interpolated_total",
			Help:      "Missing or outlier samples filled by linear interpolation.",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "neutronavg",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the averaging run.",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.StationsConsidered,
		m.StationsSkipped,
		m.StationsContributing,
		m.SamplesInterpolated,
		m.RunDuration,
	)
	return m
}

// WriteTextfile dumps the run's metrics in the Prometheus textfile-collector
// format, the batch-job convention for exposing metrics without a scrape
// endpoint.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
