package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "genstudio"

var (
	// Registry holds the application collectors exposed on /metrics.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
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
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"method", "route"},
	)

	creditMovements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "credits_total",
			Help:      "Credits moved through the ledger by direction.",
		},
		[]string{"direction"},
	)

	generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Metered generation calls by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Latency of calls to the generation backend.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"action"},
	)

	paymentResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "resolutions_total",
			Help:      "Payment requests resolved by an operator.",
		},
		[]string{"status"},
	)

	rewardClaims = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rewards",
			Name:      "claims_total",
			Help:      "Successful daily reward claims.",
		},
	)

	videoPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "videos",
			Name:      "polls_total",
			Help:      "Video operation status checks by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		creditMovements,
		generations,
		generationDuration,
		paymentResolutions,
		rewardClaims,
		videoPolls,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler records request counts and latency labelled with the chi
// route pattern, so ids in the path do not explode cardinality.
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

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordCredits counts credits moved in one direction: deducted, refunded,
// granted or adjusted.
func RecordCredits(direction string, amount int64) {
	if amount < 0 {
		amount = -amount
	}
	creditMovements.WithLabelValues(direction).Add(float64(amount))
}

// RecordGeneration records one metered backend call.
func RecordGeneration(action string, duration time.Duration, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	generations.WithLabelValues(action, outcome).Inc()
	generationDuration.WithLabelValues(action).Observe(duration.Seconds())
}

func RecordPaymentResolution(status string) {
	paymentResolutions.WithLabelValues(status).Inc()
}

func RecordRewardClaim() {
	rewardClaims.Inc()
}

// RecordVideoPoll counts a status check: pending, completed, failed or error.
func RecordVideoPoll(result string) {
	videoPolls.WithLabelValues(result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
