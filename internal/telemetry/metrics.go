// Package telemetry provides application-level observability for the internal
// administration system.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<IDEAL_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090.  The endpoint returns data in the Prometheus text exposition
// format and is intended to be scraped by a Prometheus server every 15–60 seconds.
// It is NOT served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Login attempt counters by outcome
//   - Spreadsheet fetch duration and error counters by unit
//   - Statement CSV export counter
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/extrato/:unidade)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// HTTPRequestsTotal is a CounterVec with labels {method, path, status}.
// The path label holds the Gin route template (e.g. /api/extrato/:unidade),
// NOT the raw URL, to prevent unbounded cardinality.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//
// HTTPRequestDuration is a HistogramVec with labels {method, path} and
// exponential-ish buckets from 5 ms to 30 s.  Use histogram_quantile to compute
// latency percentiles.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// LoginAttemptsTotal is a CounterVec with label {outcome} incremented on every
// call to the login endpoint. Outcome values: "success", "invalid_credentials",
// "locked", "wrong_unit".
//
// Example PromQL queries:
//   - Failed login rate:   sum(rate(login_attempts_total{outcome!="success"}[15m]))
//   - Lockout alert:       increase(login_attempts_total{outcome="locked"}[30m]) > 10
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "login_attempts_total",
		Help: "Total number of login attempts, by outcome.",
	},
	[]string{"outcome"},
)

// Spreadsheet metrics — recorded by the statement service around every upstream
// Google Sheets read.
//
// SheetFetchDuration is a HistogramVec with label {unidade}. Each observation
// represents one complete range read for a single unit's spreadsheet.
//
// SheetFetchErrorsTotal is a CounterVec with label {unidade}.  An alert on
// rate(sheet_fetch_errors_total[1h]) > 0 is recommended to catch credential
// expiry and upstream quota problems early.
var (
	SheetFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sheet_fetch_duration_seconds",
			Help:    "Duration of a single spreadsheet range read, by unit.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"unidade"},
	)

	SheetFetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheet_fetch_errors_total",
			Help: "Total number of failed spreadsheet reads, by unit.",
		},
		[]string{"unidade"},
	)
)

// StatementExportsTotal is a plain Counter (no labels) incremented once per CSV
// export successfully streamed to a client.
var StatementExportsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "statement_exports_total",
		Help: "Total number of statement CSV exports generated.",
	},
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool.  It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits cleanly when the database becomes unreachable (db.Ping fails),
// which happens automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
