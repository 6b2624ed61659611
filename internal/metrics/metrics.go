// Package metrics holds the Prometheus instruments of the pipeline. Every
// method is safe on a nil *Metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics provides observability for the medallion pipeline.
type Metrics struct {
	registry *prometheus.Registry

	// Bronze rows judged by the validator, by kind and outcome
	RowsValidated *prometheus.CounterVec

	// Rejections by kind and failing check
	RowsRejected *prometheus.CounterVec

	// Pipeline step latency (bronze, silver, gold, reconcile)
	StepDuration *prometheus.HistogramVec

	// Rows written per Gold table on the last rebuild
	GoldTableRows *prometheus.GaugeVec

	// Reconciliation rules evaluated, by outcome
	ReconciliationRules *prometheus.CounterVec

	// 1 when the latest reconciliation passed
	ReconciliationPassed prometheus.Gauge
}

// New creates a Metrics instance on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RowsValidated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medallion_rows_validated_total",
			Help: "Bronze rows validated by kind and outcome",
		}, []string{"kind", "outcome"}), // outcome: "accepted", "reaffirmed", "rejected"

		RowsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medallion_rows_rejected_total",
			Help: "Rejected Bronze rows by kind and failing check",
		}, []string{"kind", "check"}),

		StepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medallion_step_duration_seconds",
			Help:    "Duration of pipeline steps",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"step"}),

		GoldTableRows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "medallion_gold_table_rows",
			Help: "Rows written to each Gold table by the last rebuild",
		}, []string{"table"}),

		ReconciliationRules: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medallion_reconciliation_rules_total",
			Help: "Reconciliation rules evaluated by outcome",
		}, []string{"outcome"}),

		ReconciliationPassed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "medallion_reconciliation_passed",
			Help: "1 when the most recent reconciliation passed, 0 otherwise",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Push sends the current values to a Pushgateway. Batch CLI runs end before
// any scrape could happen.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if m == nil || url == "" {
		return nil
	}
	return push.New(url, job).Gatherer(m.registry).PushContext(ctx)
}

// ObserveValidated counts n validated rows.
func (m *Metrics) ObserveValidated(kind, outcome string, n int) {
	if m != nil && n > 0 {
		m.RowsValidated.WithLabelValues(kind, outcome).Add(float64(n))
	}
}

// ObserveRejected counts n rejections.
func (m *Metrics) ObserveRejected(kind, check string, n int) {
	if m != nil && n > 0 {
		m.RowsRejected.WithLabelValues(kind, check).Add(float64(n))
	}
}

// ObserveStep records the duration of a pipeline step.
func (m *Metrics) ObserveStep(step string, d time.Duration) {
	if m != nil {
		m.StepDuration.WithLabelValues(step).Observe(d.Seconds())
	}
}

// SetGoldTableRows records the row count of a Gold table.
func (m *Metrics) SetGoldTableRows(table string, rows int64) {
	if m != nil {
		m.GoldTableRows.WithLabelValues(table).Set(float64(rows))
	}
}

// ObserveReconciliation records the outcome of a reconciliation run.
func (m *Metrics) ObserveReconciliation(passed, failed int) {
	if m == nil {
		return
	}
	m.ReconciliationRules.WithLabelValues("passed").Add(float64(passed))
	m.ReconciliationRules.WithLabelValues("failed").Add(float64(failed))
	if failed == 0 {
		m.ReconciliationPassed.Set(1)
	} else {
		m.ReconciliationPassed.Set(0)
	}
}
