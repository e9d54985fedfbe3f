// Package export turns stored logbook records into portal submissions. It
// owns record status, whole-run retries and pacing; a single run is the
// orchestrator's business.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/logbook-automation/pkg/config"
	"github.com/logbook-automation/pkg/logbook"
	"github.com/logbook-automation/pkg/logger"
	"github.com/logbook-automation/pkg/queue"
	"github.com/logbook-automation/pkg/storage"
)

// Runner performs one submission. *portal.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, entry logbook.Entry, creds logbook.Credentials) *logbook.Outcome
}

type JobQueue interface {
	Enqueue(ctx context.Context, job queue.Job) error
	EnqueueAt(ctx context.Context, job queue.Job, at time.Time) error
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
}

type Processor struct {
	config   *config.ExportConfig
	store    *storage.Storage
	queue    JobQueue
	runner   Runner
	creds    logbook.Credentials
	notifier Notifier
	log      *logger.Logger
	now      func() time.Time
}

func NewProcessor(cfg *config.ExportConfig, store *storage.Storage, q JobQueue, runner Runner,
	creds logbook.Credentials, notifier Notifier) *Processor {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Processor{
		config:   cfg,
		store:    store,
		queue:    q,
		runner:   runner,
		creds:    creds,
		notifier: notifier,
		log:      logger.WithComponent("export"),
		now:      time.Now,
	}
}

// RetryDelay is the wait before attempt+1 after attempt failed.
func (p *Processor) RetryDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.config.BackoffInitial
	b.MaxInterval = p.config.BackoffMax
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	delay := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	return delay
}

// Process runs the job's entry once and records the result. A failed run is
// re-queued with backoff until max_job_attempts, then marked failed.
func (p *Processor) Process(ctx context.Context, job queue.Job) error {
	log := p.log.WithFields(map[string]interface{}{"job_id": job.ID, "entry_id": job.EntryID})

	rec, err := p.store.GetRecord(job.EntryID)
	if err != nil {
		return fmt.Errorf("failed to load entry %s: %w", job.EntryID, err)
	}
	if rec == nil {
		log.Warn("Dropping job for unknown entry")
		return nil
	}
	if rec.Status != logbook.StatusQueued {
		log.Info("Skipping job, entry is %s", rec.Status)
		return nil
	}

	rec, err = p.store.Transition(job.EntryID, logbook.StatusRunning, "")
	if err != nil {
		return err
	}
	p.notify(ctx, log, Event{EntryID: job.EntryID, JobID: job.ID, Status: logbook.StatusRunning, Attempt: job.Attempt})

	runCtx := ctx
	if p.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.config.RunTimeout)
		defer cancel()
	}

	log.Info("Submitting entry for %s (attempt %d/%d)", rec.Entry.Date, job.Attempt, p.config.MaxJobAttempts)
	outcome := p.runner.Run(runCtx, rec.Entry, p.creds)

	if err := p.store.AddRun(storage.Run{EntryID: job.EntryID, Attempt: job.Attempt, Outcome: *outcome}); err != nil {
		log.Error("Failed to record run: %v", err)
	}
	if err := p.store.UpdateTodayStats(func(s *storage.DailyStats) {
		s.Submitted++
		if outcome.Succeeded {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}); err != nil {
		log.Error("Failed to update stats: %v", err)
	}

	evt := Event{EntryID: job.EntryID, JobID: job.ID, RunID: outcome.RunID, Attempt: job.Attempt}

	if outcome.Succeeded {
		if _, err := p.store.UpdateRecord(job.EntryID, func(r *storage.Record) error {
			r.Tentative = outcome.Tentative
			return nil
		}); err != nil {
			return err
		}
		if _, err := p.store.Transition(job.EntryID, logbook.StatusSuccess, ""); err != nil {
			return err
		}
		evt.Status = logbook.StatusSuccess
		p.notify(ctx, log, evt)
		log.Info("Entry submitted (tentative=%v)", outcome.Tentative)
		return nil
	}

	reason := outcome.FailureReason
	evt.Reason = reason

	if ctx.Err() != nil {
		return p.requeueInterrupted(job, log)
	}

	if outcome.Permanent || job.Attempt >= p.config.MaxJobAttempts {
		if _, err := p.store.Transition(job.EntryID, logbook.StatusFailed, reason); err != nil {
			return err
		}
		evt.Status = logbook.StatusFailed
		p.notify(ctx, log, evt)
		log.Error("Entry failed after %d attempt(s): %s", job.Attempt, reason)
		return nil
	}

	delay := p.RetryDelay(job.Attempt)
	next := job
	next.Attempt++
	next.EnqueuedAt = p.now()

	// Queued and dispatched land together. If scheduling then fails the
	// record is left for the sweeper instead.
	if _, err := p.store.Requeue(job.EntryID, reason); err != nil {
		return err
	}
	if err := p.queue.EnqueueAt(ctx, next, next.EnqueuedAt.Add(delay)); err != nil {
		if _, uerr := p.store.UpdateRecord(job.EntryID, func(r *storage.Record) error {
			r.Dispatched = false
			return nil
		}); uerr != nil {
			log.Error("Failed to release entry for the sweeper: %v", uerr)
		}
		return fmt.Errorf("failed to schedule retry: %w", err)
	}

	evt.Status = logbook.StatusQueued
	p.notify(ctx, log, evt)
	log.Warn("Run failed at %s, retrying in %s: %s", outcome.FailedState, delay, reason)
	return nil
}

// requeueInterrupted puts a job cut short by shutdown back without spending
// an attempt.
func (p *Processor) requeueInterrupted(job queue.Job, log *logger.Logger) error {
	ctx := context.Background()
	if _, err := p.store.UpdateRecord(job.EntryID, func(r *storage.Record) error {
		r.Status = logbook.StatusQueued
		r.Attempts--
		r.Dispatched = true
		return nil
	}); err != nil {
		return err
	}
	log.Info("Run interrupted by shutdown, putting job back")
	return p.queue.Enqueue(ctx, job)
}

func (p *Processor) notify(ctx context.Context, log *logger.Logger, evt Event) {
	if evt.At.IsZero() {
		evt.At = p.now()
	}
	if err := p.notifier.Notify(ctx, evt); err != nil {
		log.Warn("Status notification failed: %v", err)
	}
}
