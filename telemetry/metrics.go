// Package telemetry provides Prometheus metrics, OpenTelemetry tracing setup, and
// correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	PollsTotal      prometheus.Counter
	PollErrors      prometheus.Counter
	NotifyErrors    prometheus.Counter
	MessagesCreated prometheus.Counter
	EventsCreated   prometheus.Counter
	StaleIDResets   prometheus.Counter
	Rounds          prometheus.Counter

	// Histograms (seconds)
	RoundDuration prometheus.Observer

	// Gauges
	OnlineSourcesGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		PollsTotal = promauto.NewCounter(prometheus.CounterOpts{Name: "livestatus_polls_total", Help: "Number of Twitch status polls performed"})
		PollErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "livestatus_poll_errors_total", Help: "Number of Twitch status polls that failed"})
		NotifyErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "livestatus_notify_errors_total", Help: "Number of Discord notification calls that failed"})
		MessagesCreated = promauto.NewCounter(prometheus.CounterOpts{Name: "livestatus_messages_created_total", Help: "Number of Discord messages created"})
		EventsCreated = promauto.NewCounter(prometheus.CounterOpts{Name: "livestatus_events_created_total", Help: "Number of Discord scheduled events created"})
		StaleIDResets = promauto.NewCounter(prometheus.CounterOpts{Name: "livestatus_stale_id_resets_total", Help: "Number of stored Discord identifiers cleared after a stale-resource error"})
		Rounds = promauto.NewCounter(prometheus.CounterOpts{Name: "livestatus_rounds_total", Help: "Number of completed scheduler rounds"})
		RoundDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "livestatus_round_duration_seconds", Help: "Scheduler round duration seconds", Buckets: prometheus.DefBuckets})
		OnlineSourcesGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "livestatus_online_sources", Help: "Number of tracked Twitch channels currently live"})
	})
}

// SetOnlineSources records how many tracked channels are currently live.
func SetOnlineSources(n int) {
	if OnlineSourcesGauge != nil {
		OnlineSourcesGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records it in obs if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or an empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with a corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
