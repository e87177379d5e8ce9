// Package metrics exposes Prometheus instrumentation for the triage
// pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the triage collectors. A nil *Metrics is valid and records
// nothing, so instrumentation stays optional at call sites.
type Metrics struct {
	cellsScanned  prometheus.Counter
	errorsFlagged prometheus.Counter
	analyses      *prometheus.CounterVec
	duration      prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cellsScanned: factory.NewCounter(prometheus.CounterOpts{
			Name: "nbtriage_cells_scanned_total",
			Help: "Number of code cells scanned for error outputs.",
		}),
		errorsFlagged: factory.NewCounter(prometheus.CounterOpts{
			Name: "nbtriage_errors_flagged_total",
			Help: "Number of cells flagged with a fresh error snapshot.",
		}),
		analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nbtriage_analyses_total",
			Help: "Number of analysis requests by result.",
		}, []string{"result"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "nbtriage_analysis_duration_seconds",
			Help:    "Wall time of analysis requests.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}
}

// CellScanned records one cell scan.
func (m *Metrics) CellScanned() {
	if m == nil {
		return
	}
	m.cellsScanned.Inc()
}

// ErrorFlagged records a cell gaining a fresh error snapshot.
func (m *Metrics) ErrorFlagged() {
	if m == nil {
		return
	}
	m.errorsFlagged.Inc()
}

// AnalysisSettled records one finished analysis with its result and
// duration.
func (m *Metrics) AnalysisSettled(succeeded bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if !succeeded {
		result = "failure"
	}
	m.analyses.WithLabelValues(result).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// Handler returns the /metrics HTTP handler for a registry created with
// NewRegistry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// NewRegistry returns a fresh registry with the standard process and Go
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	return reg
}
