// Package metrics provides Prometheus instrumentation for the rate engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// QuotesTotal counts quotes served, partitioned by loan type and action.
	QuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigor_quotes_total",
		Help: "Total number of rate quotes served",
	}, []string{"loan_type", "action"})

	// QuoteLatency tracks end-to-end quote latency, snapshot load included.
	QuoteLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vigor_quote_latency_seconds",
		Help:    "Rate quote latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"loan_type"})

	// ZeroRateFallbacks counts quotes whose arithmetic degenerated to a
	// zero rate.
	ZeroRateFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigor_zero_rate_fallbacks_total",
		Help: "Quotes that fell back to a zero rate",
	}, []string{"loan_type"})

	// MissingDataRejections counts quotes rejected for missing market or
	// whitelist data.
	MissingDataRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigor_missing_data_rejections_total",
		Help: "Quotes rejected for missing market or whitelist data",
	})

	// ConfigFallbacks counts quotes priced with one or more default config
	// fields.
	ConfigFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vigor_config_fallbacks_total",
		Help: "Quotes priced with default protocol config values",
	})

	// LimitRejections counts borrows rejected by the capacity check.
	LimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigor_limit_rejections_total",
		Help: "Borrow quotes rejected by the limiter",
	}, []string{"reason"})

	// MarketQuotes tracks the number of quoted symbols.
	MarketQuotes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vigor_market_quotes",
		Help: "Number of symbols with a market quote",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vigor_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vigor_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vigor_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		// The chi wrapper keeps http.Hijacker and http.Flusher visible to
		// the WebSocket upgrader.
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		duration := time.Since(start).Seconds()

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}
