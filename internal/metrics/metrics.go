// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idiomchain_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "idiomchain_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	roundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idiomchain_rounds_total",
			Help: "Rounds counted towards chain length, by player",
		},
		[]string{"player"},
	)

	openingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "idiomchain_openings_total",
			Help: "Opening idioms placed by the system; these are not rounds",
		},
	)

	rejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idiomchain_rejections_total",
			Help: "Rejected idiom submissions, by reason",
		},
		[]string{"reason"},
	)

	sessionsEndedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idiomchain_sessions_ended_total",
			Help: "Finished game sessions, by winner",
		},
		[]string{"winner"},
	)

	sessionRounds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "idiomchain_session_rounds",
			Help:    "Rounds played per finished session",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
		},
	)

	contributionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idiomchain_contributions_total",
			Help: "Contribution workflow events, by result",
		},
		[]string{"result"},
	)
)

// Middleware records request counts and latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := "unknown"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordRound counts one round played by player ("human" or "bot").
func RecordRound(player string) {
	roundsTotal.WithLabelValues(player).Inc()
}

// RecordOpening counts a system opening idiom.
func RecordOpening() {
	openingsTotal.Inc()
}

// RecordRejection counts a refused submission.
func RecordRejection(reason string) {
	rejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordSessionEnd counts a finished session and its length.
func RecordSessionEnd(winner string, rounds int) {
	sessionsEndedTotal.WithLabelValues(winner).Inc()
	sessionRounds.Observe(float64(rounds))
}

// RecordContribution counts a workflow event: submitted, duplicate,
// approved, rejected, failed.
func RecordContribution(result string) {
	contributionsTotal.WithLabelValues(result).Inc()
}
