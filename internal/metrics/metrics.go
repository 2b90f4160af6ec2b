// Package metrics holds the Prometheus collectors for the royalty service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JonMunkholm/royalty/internal/catalog"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Import metrics
	ImportRows     *prometheus.CounterVec
	ImportDuration *prometheus.HistogramVec
	ImportsActive  prometheus.Gauge
	ImportsBusy    prometheus.Counter

	// Export metrics
	ExportRows     *prometheus.CounterVec
	ExportDuration *prometheus.HistogramVec

	// Entitlement metrics
	EntitlementDenials *prometheus.CounterVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates and registers the metrics on reg. Tests pass a fresh
// prometheus.NewRegistry(); the server passes prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ImportRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "royalty_import_rows_total",
				Help: "Total number of import rows reconciled",
			},
			[]string{"kind", "outcome"},
		),

		ImportDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "royalty_import_duration_seconds",
				Help:    "Duration of import batches",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),

		ImportsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "royalty_imports_active",
				Help: "Imports currently holding a limiter slot",
			},
		),

		ImportsBusy: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "royalty_imports_rejected_total",
				Help: "Imports rejected because every slot stayed busy",
			},
		),

		ExportRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "royalty_export_rows_total",
				Help: "Total number of rows exported",
			},
			[]string{"kind"},
		),

		ExportDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "royalty_export_duration_seconds",
				Help:    "Duration of exports",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),

		EntitlementDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "royalty_entitlement_denials_total",
				Help: "Entities hidden from or refused to a principal",
			},
			[]string{"kind", "mode"},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "royalty_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "royalty_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// RowReconciled records one import row outcome.
func (m *Metrics) RowReconciled(k catalog.Kind, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ImportRows.WithLabelValues(string(k), outcome).Inc()
}

// Denied records n entities refused in the given mode.
func (m *Metrics) Denied(k catalog.Kind, mode string, n int) {
	if n <= 0 {
		return
	}
	m.EntitlementDenials.WithLabelValues(string(k), mode).Add(float64(n))
}

// ObserveImport records the duration of an import batch.
func (m *Metrics) ObserveImport(k catalog.Kind, d time.Duration) {
	m.ImportDuration.WithLabelValues(string(k)).Observe(d.Seconds())
}

// ObserveExport records an export's size and duration.
func (m *Metrics) ObserveExport(k catalog.Kind, rows int, d time.Duration) {
	m.ExportRows.WithLabelValues(string(k)).Add(float64(rows))
	m.ExportDuration.WithLabelValues(string(k)).Observe(d.Seconds())
}

// ObserveRequest records one HTTP request against its route pattern.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	if status == 0 {
		status = http.StatusOK
	}
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}
