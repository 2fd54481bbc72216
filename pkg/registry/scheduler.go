package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler reruns discovery on a cron schedule and notifies a callback
// when the set of available provider types changes. Long-lived processes
// use it to pick up runtimes that start or stop after boot.
type Scheduler struct {
	registry *Registry
	cron     *cron.Cron
	onUpdate func(available []string)

	mu   sync.Mutex
	last []string
}

// NewScheduler creates a discovery scheduler over a registry. onUpdate is
// invoked from the cron goroutine whenever the available set changes; it
// may be nil.
func NewScheduler(registry *Registry, onUpdate func(available []string)) *Scheduler {
	return &Scheduler{
		registry: registry,
		cron:     cron.New(),
		onUpdate: onUpdate,
	}
}

// Start begins periodic discovery with the given cron expression
// (standard 5-field syntax, e.g. "*/5 * * * *"). An immediate discovery
// pass runs before the schedule takes over.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.runDiscovery(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid discovery schedule %q: %w", schedule, err)
	}

	s.runDiscovery(ctx)
	s.cron.Start()

	slog.Info("discovery scheduler started", "schedule", schedule)
	return nil
}

// Stop halts the schedule. Stop does not wait for an in-flight discovery
// pass.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	slog.Debug("discovery scheduler stopped")
}

// Available returns the result of the most recent discovery pass.
func (s *Scheduler) Available() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.last...)
}

func (s *Scheduler) runDiscovery(ctx context.Context) {
	available := s.registry.Discover(ctx)

	s.mu.Lock()
	changed := !equalStrings(s.last, available)
	s.last = available
	s.mu.Unlock()

	if changed {
		slog.Info("available provider types changed", "available", available)
		if s.onUpdate != nil {
			s.onUpdate(available)
		}
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
