package live

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/onnwee/livestatus/config"
	"github.com/onnwee/livestatus/store"
)

func schedulerConfig(interval time.Duration, sources ...string) *config.Config {
	cfg := &config.Config{
		CheckInterval: interval,
		OfflineGrace:  config.DefaultOfflineGrace,
	}
	for _, s := range sources {
		cfg.Targets = append(cfg.Targets, config.Target{
			GuildID:   "g1",
			ChannelID: "c-" + s,
			Source:    s,
			Message:   config.MessageConfig{Active: true},
		})
	}
	return cfg
}

func TestSchedulerDeduplicatesPollers(t *testing.T) {
	cfg := schedulerConfig(15*time.Second, "alice", "alice", "bob")
	s := NewScheduler(context.Background(), cfg, &fakeSource{}, &fakeSink{}, store.NewMemory(), testBundle(t))

	if len(s.pollers) != 2 {
		t.Fatalf("pollers = %d, want 2 (one per distinct channel)", len(s.pollers))
	}
	if len(s.targets) != 3 {
		t.Fatalf("targets = %d, want 3 (one per config entry)", len(s.targets))
	}
}

func TestSchedulerClampsInterval(t *testing.T) {
	tests := []struct {
		name       string
		configured time.Duration
		want       time.Duration
	}{
		{"above floor unchanged", 15 * time.Second, 15 * time.Second},
		{"below floor clamped", 200 * time.Millisecond, MinInterval},
		{"at floor unchanged", time.Second, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := schedulerConfig(tt.configured, "alice")
			s := NewScheduler(context.Background(), cfg, &fakeSource{}, &fakeSink{}, store.NewMemory(), testBundle(t))
			if s.Interval() != tt.want {
				t.Fatalf("Interval = %v, want %v", s.Interval(), tt.want)
			}
		})
	}
}

// TestSchedulerRoundBarrier proves every poll completes before any target runs.
func TestSchedulerRoundBarrier(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(label string) runnable {
		return tickFunc(func(context.Context) {
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			order = append(order, label)
			mu.Unlock()
		})
	}

	s := &Scheduler{
		interval: time.Second,
		cache:    NewCache(),
		pollers:  []runnable{record("poll"), record("poll")},
		targets:  []runnable{record("target"), record("target")},
	}
	s.tick(context.Background())

	if len(order) != 4 {
		t.Fatalf("order = %v, want 4 entries", order)
	}
	for i, label := range order {
		want := "poll"
		if i >= 2 {
			want = "target"
		}
		if label != want {
			t.Fatalf("order = %v: entry %d is %q, want %q", order, i, label, want)
		}
	}
}

type tickFunc func(ctx context.Context)

func (f tickFunc) Tick(ctx context.Context) { f(ctx) }

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	ticks := 0
	s := &Scheduler{
		interval: 10 * time.Millisecond,
		cache:    NewCache(),
		pollers: []runnable{tickFunc(func(context.Context) {
			mu.Lock()
			ticks++
			mu.Unlock()
		})},
	}

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if ticks < 2 {
		t.Fatalf("ticks = %d, want at least an immediate tick plus re-arms", ticks)
	}
}
