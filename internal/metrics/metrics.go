// Package metrics provides Prometheus instrumentation for the round engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PhaseTransitions counts phase changes, partitioned by target phase.
	PhaseTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneyrush_phase_transitions_total",
		Help: "Total number of phase transitions",
	}, []string{"phase"})

	// WheelSpins counts events drawn from the market wheel.
	WheelSpins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moneyrush_wheel_spins_total",
		Help: "Total number of events drawn from the wheel",
	})

	// EventAcceptances counts accepted events per avenue.
	EventAcceptances = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneyrush_event_acceptances_total",
		Help: "Total number of events accepted by avenue agents",
	}, []string{"avenue"})

	// CompoundingImpacts counts event_impact ledger entries produced by
	// compounding passes.
	CompoundingImpacts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moneyrush_compounding_impacts_total",
		Help: "Holdings touched by compounding passes",
	})

	// Transactions counts agent trades, partitioned by action.
	Transactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneyrush_transactions_total",
		Help: "Total number of agent transactions",
	}, []string{"action"})

	// TransactionVolume tracks cumulative traded amount per avenue.
	TransactionVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneyrush_transaction_volume_total",
		Help: "Cumulative traded amount in game currency",
	}, []string{"avenue", "action"})

	// RejectedOperations counts operations refused by the engine by error kind.
	RejectedOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneyrush_rejected_operations_total",
		Help: "Operations rejected by the engine",
	}, []string{"kind"})

	// RegisteredTeams tracks the number of teams in the game.
	RegisteredTeams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "moneyrush_registered_teams",
		Help: "Number of registered teams",
	})

	// RoundIndex tracks the number of completed rounds.
	RoundIndex = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "moneyrush_round_index",
		Help: "Number of completed rounds",
	})

	// PersistLatency tracks snapshot save latency.
	PersistLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "moneyrush_persist_latency_seconds",
		Help:    "Snapshot persistence latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// PersistFailures counts snapshot saves that failed and were rolled back.
	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moneyrush_persist_failures_total",
		Help: "Snapshot saves that failed",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneyrush_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moneyrush_http_request_duration_seconds",
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
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
