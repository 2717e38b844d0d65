package observability

import (
	"time"

	"github.com/aretw0/merits/pkg/edifact"
	"github.com/prometheus/client_golang/prometheus"
)

// Conversion directions used as label values.
const (
	DirectionToCSV     = "edifact_to_csv"
	DirectionToEdifact = "csv_to_edifact"
	DirectionParse     = "parse"
)

// Outcomes used as label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the collectors of one registry.
type Metrics struct {
	conversions *prometheus.CounterVec
	segments    *prometheus.CounterVec
	rows        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		conversions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "merits_conversions_total",
				Help: "Total number of conversions",
			},
			[]string{"direction", "family", "outcome"},
		),
		segments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "merits_segments_total",
				Help: "Total number of segments read or written",
			},
			[]string{"family"},
		),
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "merits_rows_total",
				Help: "Total number of CSV rows read or written",
			},
			[]string{"family", "file"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "merits_conversion_duration_seconds",
				Help:    "Duration of conversions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"direction", "family"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.conversions, m.segments, m.rows, m.duration)
	}
	return m
}

// ObserveConversion counts one finished conversion and its duration.
func (m *Metrics) ObserveConversion(direction, family string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.conversions.WithLabelValues(direction, family, outcome).Inc()
	m.duration.WithLabelValues(direction, family).Observe(time.Since(started).Seconds())
}

// AddSegments counts segments written outside an instrumented handler.
func (m *Metrics) AddSegments(family string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.segments.WithLabelValues(family).Add(float64(n))
}

// AddRows counts rows of one CSV file.
func (m *Metrics) AddRows(family, file string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rows.WithLabelValues(family, file).Add(float64(n))
}

// Instrument wraps h so that every segment it receives is counted.
// On a nil Metrics it returns h unchanged.
func (m *Metrics) Instrument(h edifact.Handler, family string) edifact.Handler {
	if m == nil {
		return h
	}
	return &instrumented{Handler: h, segments: m.segments.WithLabelValues(family)}
}

type instrumented struct {
	edifact.Handler
	segments prometheus.Counter
}

func (i *instrumented) EnterLeaf(l *edifact.Leaf) error {
	i.segments.Inc()
	return i.Handler.EnterLeaf(l)
}
