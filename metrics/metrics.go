package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Labels are bounded; never label by match or player id.
var (
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "runerelic_tick_duration_seconds",
		Help:    "Time spent in one simulation step",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.0167},
	})

	ActiveMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "runerelic_active_matches",
		Help: "Matches currently in countdown or playing",
	})

	MatchesFinished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "runerelic_matches_finished_total",
		Help: "Matches that produced a transcript",
	})

	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "runerelic_verifications_total",
		Help: "Transcript verifications by outcome",
	}, []string{"result"}) // "valid", "invalid", "error", "rate_limited"

	VerifyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "runerelic_verify_duration_seconds",
		Help:    "Time spent replaying a transcript",
		Buckets: prometheus.DefBuckets,
	})

	InputsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "runerelic_inputs_dropped_total",
		Help: "Client inputs rejected before reaching a session",
	}, []string{"reason"}) // "late", "rate_limit", "malformed", "phase"

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "runerelic_websocket_connections_active",
		Help: "Currently open WebSocket connections",
	})

	WSMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "runerelic_websocket_messages_total",
		Help: "WebSocket messages queued for clients",
	})

	StorageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "runerelic_storage_failures_total",
		Help: "Failed writes at match end",
	}, []string{"target"}) // "transcript", "redis", "nats", "anchor"
)

// ObserveTick records one step duration.
func ObserveTick(start time.Time) {
	TickDuration.Observe(time.Since(start).Seconds())
}

// RecordVerification counts a verify call. err is a failure to run the
// replay at all, not an invalid transcript.
func RecordVerification(valid bool, err error, start time.Time) {
	VerifyDuration.Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		Verifications.WithLabelValues("error").Inc()
	case valid:
		Verifications.WithLabelValues("valid").Inc()
	default:
		Verifications.WithLabelValues("invalid").Inc()
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
