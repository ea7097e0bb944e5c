package ingest

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks line outcomes of the ingestion loop.
type Metrics struct {
	lines       *prometheus.CounterVec
	lastReading prometheus.Gauge
}

// NewMetrics registers the ingestion collectors on reg. A nil reg yields
// working but unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		lines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "etongue",
			Subsystem: "ingest",
			Name:      "lines_total",
			Help:      "Device lines seen, by outcome (parsed, nomatch, stale).",
		}, []string{"result"}),
		lastReading: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "etongue",
			Subsystem: "ingest",
			Name:      "last_reading_timestamp_seconds",
			Help:      "Unix time of the last applied reading.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.lines, m.lastReading)
	}
	return m
}
