package export

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/logbook-automation/pkg/logger"
	"github.com/logbook-automation/pkg/queue"
	"github.com/logbook-automation/pkg/storage"
)

// Sweeper hands queued records that never reached the job queue to it, for
// example after a crash between storing and enqueueing.
type Sweeper struct {
	store *storage.Storage
	queue JobQueue
	log   *logger.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

func NewSweeper(store *storage.Storage, q JobQueue) *Sweeper {
	return &Sweeper{
		store: store,
		queue: q,
		log:   logger.WithComponent("sweeper"),
	}
}

// Dispatch enqueues a first-attempt job for the record and marks it handed off.
func (s *Sweeper) Dispatch(ctx context.Context, entryID string) (queue.Job, error) {
	job := queue.NewJob(entryID)
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return job, err
	}
	if err := s.store.MarkDispatched(entryID); err != nil {
		return job, err
	}
	return job, nil
}

func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	pending, err := s.store.GetUndispatched(0)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, rec := range pending {
		if _, err := s.Dispatch(ctx, rec.Entry.ID); err != nil {
			return dispatched, fmt.Errorf("failed to dispatch %s: %w", rec.Entry.ID, err)
		}
		dispatched++
	}
	if dispatched > 0 {
		s.log.Info("Dispatched %d queued entries", dispatched)
	}
	return dispatched, nil
}

// Start sweeps on schedule until Stop. The schedule uses cron syntax or
// descriptors such as "@every 5m".
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.log.Error("Sweep failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()

	c.Start()
	s.log.Info("Sweeping queued entries %s", schedule)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}
