// Package background runs periodic housekeeping next to the HTTP server,
// independently of any request.
package background

import (
	"context"
	"log"
	"time"

	"go.uber.org/atomic"

	"github.com/user/blogplatform-go/audit"
	"github.com/user/blogplatform-go/users"
)

// Task is one unit of housekeeping. Run returns the number of rows it removed.
type Task struct {
	Name string
	Run  func(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper runs its tasks once at start and then on every tick until the
// context is cancelled. A failing task is logged and retried on the next tick.
type Sweeper struct {
	interval time.Duration
	tasks    []Task
	now      audit.Clock
	passes   *atomic.Int64
	removed  *atomic.Int64
}

// NewSweeper creates a Sweeper.
func NewSweeper(interval time.Duration, clock audit.Clock, tasks ...Task) *Sweeper {
	if clock == nil {
		clock = audit.SystemClock
	}
	return &Sweeper{
		interval: interval,
		tasks:    tasks,
		now:      clock,
		passes:   atomic.NewInt64(0),
		removed:  atomic.NewInt64(0),
	}
}

// Run blocks until ctx is done. It always returns nil so that an errgroup
// sibling failing is what stops the process, not housekeeping.
func (s *Sweeper) Run(ctx context.Context) error {
	log.Printf("Sweeper starting: %d task(s) every %s", len(s.tasks), s.interval)
	defer log.Println("Sweeper stopped.")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := s.now()
	for _, task := range s.tasks {
		if ctx.Err() != nil {
			return
		}
		n, err := task.Run(ctx, now)
		if err != nil {
			log.Printf("Sweeper: task %s failed: %v", task.Name, err)
			continue
		}
		if n > 0 {
			log.Printf("Sweeper: task %s removed %d row(s)", task.Name, n)
		}
		s.removed.Add(n)
	}
	s.passes.Inc()
}

// Stats are the sweeper's running counters.
type Stats struct {
	Passes  int64 `json:"passes"`
	Removed int64 `json:"removed"`
}

// Stats returns a snapshot of the counters.
func (s *Sweeper) Stats() Stats {
	return Stats{Passes: s.passes.Load(), Removed: s.removed.Load()}
}

// PruneUsedTokens drops consumed email-verification tokens past their expiry.
// Replaying one of them fails on the expiry check before the ledger is read.
func PruneUsedTokens(store users.Store) Task {
	return Task{
		Name: "prune-used-tokens",
		Run: func(ctx context.Context, now time.Time) (int64, error) {
			return store.PruneUsedTokens(ctx, now)
		},
	}
}
