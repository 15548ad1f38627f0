// Package metrics exposes Prometheus instruments for search compilation
// and execution.
//
// Metrics:
//   - <ns>_compile_total: compiled searches by outcome
//   - <ns>_compile_duration_seconds: compile latency
//   - <ns>_execute_total: executed searches by outcome
//   - <ns>_execute_duration_seconds: execute latency
//   - <ns>_records_loaded_total: records imported into the store by type
//
// A nil *Metrics is valid and records nothing, so callers never need to
// check whether metrics are enabled.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/linql/internal/qerr"
)

// DefaultNamespace prefixes every metric name when none is configured.
const DefaultNamespace = "linql"

// OutcomeOK labels a successful compile or execute.
const OutcomeOK = "ok"

// Metrics holds the registered instruments.
type Metrics struct {
	compileTotal    *prometheus.CounterVec
	compileDuration prometheus.Histogram
	executeTotal    *prometheus.CounterVec
	executeDuration prometheus.Histogram
	recordsLoaded   *prometheus.CounterVec
}

// New creates the instruments and registers them with reg.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	m := &Metrics{
		compileTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compile_total",
				Help:      "Searches compiled, by outcome",
			},
			[]string{"outcome"},
		),
		compileDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "compile_duration_seconds",
				Help:      "Search compile latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8), // 50us to ~800ms
			},
		),
		executeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "execute_total",
				Help:      "Searches executed, by outcome",
			},
			[]string{"outcome"},
		),
		executeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "execute_duration_seconds",
				Help:      "Search execution latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		recordsLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_loaded_total",
				Help:      "Records imported into the store, by type",
			},
			[]string{"type"},
		),
	}

	reg.MustRegister(
		m.compileTotal,
		m.compileDuration,
		m.executeTotal,
		m.executeDuration,
		m.recordsLoaded,
	)
	return m
}

// ObserveCompile records one compilation.
func (m *Metrics) ObserveCompile(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.compileTotal.WithLabelValues(Outcome(err)).Inc()
	m.compileDuration.Observe(d.Seconds())
}

// ObserveExecute records one execution.
func (m *Metrics) ObserveExecute(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.executeTotal.WithLabelValues(Outcome(err)).Inc()
	m.executeDuration.Observe(d.Seconds())
}

// AddRecords counts n records loaded for typeName.
func (m *Metrics) AddRecords(typeName string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsLoaded.WithLabelValues(typeName).Add(float64(n))
}

// Outcome maps an error to a low-cardinality label: "ok", the lower-cased
// error code, or "error" for uncoded failures.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code := qerr.CodeOf(err); code != "" {
		return strings.ToLower(string(code))
	}
	return "error"
}
