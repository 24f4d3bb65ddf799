package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	salesCommitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_committed_total",
		Help: "Sales that reached the committed terminal state.",
	})

	salesRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_rejected_total",
		Help: "Sales rejected during validation.",
	})

	salesFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_failed_total",
		Help: "Sales that failed on storage and were compensated.",
	})

	stockReservationSkips = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_stock_reservation_skips_total",
		Help: "Line items whose stock reservation was skipped (soft policy).",
	})

	stockCompensations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_stock_compensations_total",
		Help: "Stock releases performed while rolling back a failed sale.",
	})
)

// Init registers all metrics with the default registry. Call once at startup.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		salesCommitted, salesRejected, salesFailed,
		stockReservationSkips, stockCompensations,
	)
}

// Handler serves the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

func SaleCommitted()        { salesCommitted.Inc() }
func SaleRejected()         { salesRejected.Inc() }
func SaleFailed()           { salesFailed.Inc() }
func StockReservationSkip() { stockReservationSkips.Inc() }
func StockCompensation()    { stockCompensations.Inc() }

// Instrument wraps an HTTP handler with request count, latency and in-flight
// gauges.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(duration)
		httpInFlight.Dec()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
