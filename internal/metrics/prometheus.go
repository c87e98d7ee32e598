package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics contains all Prometheus metrics for the escrow migrator
type PrometheusMetrics struct {
	// Discovery and reconciliation metrics
	AccountsDiscovered  prometheus.Gauge
	SnapshotsReconciled prometheus.Counter
	DataQualityWarnings prometheus.Counter

	// Execution metrics
	PagesCommittedTotal   *prometheus.CounterVec
	AccountsMigratedTotal prometheus.Counter
	EntriesImportedTotal  prometheus.Counter

	// Verification metrics
	VerificationMismatchesTotal *prometheus.CounterVec

	// Ledger client metrics
	LedgerReadDuration  *prometheus.HistogramVec
	LedgerWriteDuration *prometheus.HistogramVec
	LedgerErrorsTotal   *prometheus.CounterVec

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram
}

// NewPrometheusMetrics creates and registers all Prometheus metrics
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		AccountsDiscovered: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "escrow_migrator_accounts_discovered",
				Help: "Number of distinct accounts discovered from vesting events",
			},
		),

		SnapshotsReconciled: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "escrow_migrator_snapshots_reconciled_total",
				Help: "Total number of account snapshots reconciled",
			},
		),

		DataQualityWarnings: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "escrow_migrator_data_quality_warnings_total",
				Help: "Total number of anomalous schedule pairs flagged",
			},
		),

		PagesCommittedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_migrator_pages_committed_total",
				Help: "Total number of write pages committed per phase",
			},
			[]string{"phase"},
		),

		AccountsMigratedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "escrow_migrator_accounts_migrated_total",
				Help: "Total number of accounts whose balances were migrated",
			},
		),

		EntriesImportedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "escrow_migrator_entries_imported_total",
				Help: "Total number of vesting entries imported",
			},
		),

		VerificationMismatchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_migrator_verification_mismatches_total",
				Help: "Total number of post-run verification mismatches per kind",
			},
			[]string{"kind"},
		),

		LedgerReadDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "escrow_migrator_ledger_read_duration_seconds",
				Help:    "Duration of ledger read calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"ledger", "method"},
		),

		LedgerWriteDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "escrow_migrator_ledger_write_duration_seconds",
				Help:    "Duration of ledger write calls including receipt wait",
				Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"method"},
		),

		LedgerErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_migrator_ledger_errors_total",
				Help: "Total number of failed ledger calls",
			},
			[]string{"ledger", "method"},
		),

		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_migrator_runs_total",
				Help: "Total number of migration runs per outcome",
			},
			[]string{"status"},
		),

		RunDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "escrow_migrator_run_duration_seconds",
				Help:    "Duration of complete migration runs",
				Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
			},
		),
	}
}

// RecordPageCommitted records one committed write page
func (m *PrometheusMetrics) RecordPageCommitted(phase string, accounts int) {
	m.PagesCommittedTotal.WithLabelValues(phase).Inc()
	if phase == "balance" {
		m.AccountsMigratedTotal.Add(float64(accounts))
	} else {
		m.EntriesImportedTotal.Add(float64(accounts))
	}
}

// RecordVerificationMismatch records a post-run verification mismatch
func (m *PrometheusMetrics) RecordVerificationMismatch(kind string) {
	m.VerificationMismatchesTotal.WithLabelValues(kind).Inc()
}

// RecordLedgerRead records a ledger read call
func (m *PrometheusMetrics) RecordLedgerRead(ledger, method string, duration time.Duration, err error) {
	m.LedgerReadDuration.WithLabelValues(ledger, method).Observe(duration.Seconds())
	if err != nil {
		m.LedgerErrorsTotal.WithLabelValues(ledger, method).Inc()
	}
}

// RecordLedgerWrite records a ledger write call
func (m *PrometheusMetrics) RecordLedgerWrite(method string, duration time.Duration, err error) {
	m.LedgerWriteDuration.WithLabelValues(method).Observe(duration.Seconds())
	if err != nil {
		m.LedgerErrorsTotal.WithLabelValues("target", method).Inc()
	}
}

// RecordRun records a completed run
func (m *PrometheusMetrics) RecordRun(status string, duration time.Duration) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(duration.Seconds())
}
