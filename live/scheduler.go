package live

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/livestatus/config"
	"github.com/onnwee/livestatus/i18n"
	"github.com/onnwee/livestatus/store"
	"github.com/onnwee/livestatus/telemetry"
)

// MinInterval floors the polling interval so a misconfigured value cannot hammer
// the upstream APIs.
const MinInterval = time.Second

type runnable interface {
	Tick(ctx context.Context)
}

// Scheduler drives rounds: all pollers concurrently, a barrier, then all targets
// concurrently. The barrier is what guarantees every target reads a status
// refreshed in the same round.
type Scheduler struct {
	interval time.Duration
	cache    *Cache
	pollers  []runnable
	targets  []runnable
}

// NewScheduler builds the poller set (one per distinct Twitch channel across all
// targets) and one Target per config entry, all sharing one cache.
func NewScheduler(ctx context.Context, cfg *config.Config, src StreamSource, sink Sink, ids store.Store, bundle *i18n.Bundle) *Scheduler {
	interval := cfg.CheckInterval
	if interval < MinInterval {
		slog.Warn("check interval below floor, clamping",
			slog.Duration("configured", interval), slog.Duration("floor", MinInterval))
		interval = MinInterval
	}

	s := &Scheduler{interval: interval, cache: NewCache()}

	seen := make(map[string]bool)
	for _, target := range cfg.Targets {
		if !seen[target.Source] {
			seen[target.Source] = true
			s.pollers = append(s.pollers, NewPoller(target.Source, src, s.cache))
		}
		s.targets = append(s.targets, NewTarget(ctx, target, s.cache, sink, ids, bundle, cfg.OfflineGrace, interval))
	}

	slog.Info("scheduler built",
		slog.Int("pollers", len(s.pollers)),
		slog.Int("targets", len(s.targets)),
		slog.Duration("interval", interval))
	return s
}

// Interval is the effective (clamped) polling interval.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Cache exposes the shared live-status cache for read-only consumers (the HTTP
// status endpoint).
func (s *Scheduler) Cache() *Cache { return s.cache }

// Run ticks immediately, then re-arms after each completed round. Rounds never
// overlap: a slow round delays the next one instead of racing it.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-time.After(s.interval):
		}
	}
}

// tick runs one full round. Within a round all poller writes happen before any
// target read.
func (s *Scheduler) tick(ctx context.Context) {
	ctx, span := telemetry.StartSpan(ctx, "scheduler", "round",
		attribute.Int("pollers", len(s.pollers)),
		attribute.Int("targets", len(s.targets)))
	defer span.End()

	telemetry.TimeFunc(telemetry.RoundDuration, func() {
		runAll(ctx, s.pollers)
		runAll(ctx, s.targets)
	})
	telemetry.Rounds.Inc()

	online := 0
	for _, st := range s.cache.All() {
		if st.Online {
			online++
		}
	}
	telemetry.SetOnlineSources(online)
}

func runAll(ctx context.Context, units []runnable) {
	var wg sync.WaitGroup
	for _, u := range units {
		wg.Add(1)
		go func(u runnable) {
			defer wg.Done()
			u.Tick(ctx)
		}(u)
	}
	wg.Wait()
}
