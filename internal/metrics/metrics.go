package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "satoshi",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "satoshi",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "satoshi",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	purchaseOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "satoshi",
			Subsystem: "purchase",
			Name:      "outcomes_total",
			Help:      "Purchases by terminal state; aborted purchases are labelled with the failure kind.",
		},
		[]string{"result"},
	)

	purchaseStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "satoshi",
			Subsystem: "purchase",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each purchase stage.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"stage"},
	)

	unrecordedSettlements = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "satoshi",
			Subsystem: "purchase",
			Name:      "unrecorded_settlements_total",
			Help:      "Settlements that succeeded on-chain but could not be written to the ledger store.",
		},
	)

	lateSettlements = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "satoshi",
			Subsystem: "node",
			Name:      "late_settlements_total",
			Help:      "Sends that completed on the node after the caller stopped waiting.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		purchaseOutcomes,
		purchaseStageDuration,
		unrecordedSettlements,
		lateSettlements,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// HTTPStarted marks a request as in flight. Call the returned func when done.
func HTTPStarted() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// RecordHTTP records one handled request.
func RecordHTTP(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordPurchase counts a purchase reaching a terminal state.
func RecordPurchase(result string) {
	purchaseOutcomes.WithLabelValues(result).Inc()
}

// ObserveStage records how long a purchase stage took.
func ObserveStage(stage string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Microsecond
	}
	purchaseStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordUnrecordedSettlement counts a settlement the ledger store missed.
func RecordUnrecordedSettlement() {
	unrecordedSettlements.Inc()
}

// RecordLateSettlement counts a send whose result arrived after its caller
// gave up.
func RecordLateSettlement() {
	lateSettlements.Inc()
}
