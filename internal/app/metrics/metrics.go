package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "auction_layer",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auction_layer",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "auction_layer",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	purchases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auction_layer",
			Subsystem: "auction",
			Name:      "purchases_total",
			Help:      "Total number of purchase attempts.",
		},
		[]string{"status"},
	)

	salePrices = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "auction_layer",
			Subsystem: "auction",
			Name:      "sale_price",
			Help:      "Final prices of settled listings.",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
	)

	closes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auction_layer",
			Subsystem: "auction",
			Name:      "closes_total",
			Help:      "Total number of close attempts.",
		},
		[]string{"status"},
	)

	withdrawals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auction_layer",
			Subsystem: "ledger",
			Name:      "withdrawals_total",
			Help:      "Total number of withdrawal attempts.",
		},
		[]string{"status"},
	)

	sweeps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "auction_layer",
			Subsystem: "auction",
			Name:      "sweeps_total",
			Help:      "Total number of deadline sweeper runs.",
		},
	)

	expiredListings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "auction_layer",
			Subsystem: "auction",
			Name:      "expired_listings_total",
			Help:      "Listings whose deadline passed with no sale.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		purchases,
		salePrices,
		closes,
		withdrawals,
		sweeps,
		expiredListings,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordPurchase counts a purchase attempt; price is observed for settled
// sales only.
func RecordPurchase(status string, price int64) {
	purchases.WithLabelValues(status).Inc()
	if status == "completed" && price > 0 {
		salePrices.Observe(float64(price))
	}
}

// RecordClose counts a close attempt.
func RecordClose(status string) {
	closes.WithLabelValues(status).Inc()
}

// RecordWithdrawal counts a withdrawal attempt.
func RecordWithdrawal(status string) {
	withdrawals.WithLabelValues(status).Inc()
}

// RecordSweep counts a sweeper run and the expired listings it found.
func RecordSweep(expired int) {
	sweeps.Inc()
	for i := 0; i < expired; i++ {
		expiredListings.Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "listings", "assets", "ledger":
		if len(parts) == 1 {
			return "/" + parts[0]
		}
		if len(parts) == 2 {
			return "/" + parts[0] + "/:id"
		}
		return "/" + parts[0] + "/:id/" + parts[2]
	default:
		return "/" + parts[0]
	}
}
