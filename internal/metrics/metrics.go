// Package metrics exposes Prometheus collectors for betting, settlement,
// ledger, sync and HTTP activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "worldcup_betting"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	betsPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bets",
			Name:      "placed_total",
			Help:      "Bet placements by result (created, updated) or rejection reason.",
		},
		[]string{"result"},
	)

	settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "runs_total",
			Help:      "Settlement attempts by outcome.",
		},
		[]string{"outcome"},
	)

	settlementRemainder = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "retained_remainder_total",
			Help:      "Pool amount left undistributed by floor division.",
		},
	)

	ledgerEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "entries_total",
			Help:      "Ledger entries appended by kind.",
		},
		[]string{"kind"},
	)

	ledgerAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "amount_total",
			Help:      "Absolute amount moved by ledger entries, by kind.",
		},
		[]string{"kind"},
	)

	syncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Feed sync runs by result.",
		},
		[]string{"success"},
	)

	syncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Duration of feed sync runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		betsPlaced,
		settlements,
		settlementRemainder,
		ledgerEntries,
		ledgerAmount,
		syncRuns,
		syncDuration,
		httpRequests,
		httpDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordBet counts a bet placement result or rejection reason.
func RecordBet(result string) {
	betsPlaced.WithLabelValues(result).Inc()
}

// RecordSettlement counts a settlement attempt. remainder is the amount the
// pool retained.
func RecordSettlement(outcome string, remainder int64) {
	settlements.WithLabelValues(outcome).Inc()
	if remainder > 0 {
		settlementRemainder.Add(float64(remainder))
	}
}

// RecordEntry counts a committed ledger entry.
func RecordEntry(kind string, amount int64) {
	if amount < 0 {
		amount = -amount
	}
	ledgerEntries.WithLabelValues(kind).Inc()
	ledgerAmount.WithLabelValues(kind).Add(float64(amount))
}

// RecordSync records a feed sync run.
func RecordSync(duration time.Duration, success bool) {
	syncRuns.WithLabelValues(strconv.FormatBool(success)).Inc()
	syncDuration.Observe(duration.Seconds())
}

// RecordHTTP records a handled request. route should be the router pattern,
// not the raw path, to keep label cardinality bounded.
func RecordHTTP(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
