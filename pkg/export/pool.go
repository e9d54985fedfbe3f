package export

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/logbook-automation/pkg/config"
	"github.com/logbook-automation/pkg/logger"
	"github.com/logbook-automation/pkg/storage"
)

// Pool runs processors on concurrency workers. Each worker owns its run and
// its browser; they share only the queue, the store and the pacing limits.
type Pool struct {
	config    *config.ExportConfig
	queue     JobQueue
	processor *Processor
	store     *storage.Storage
	window    *Window
	limiter   *rate.Limiter
	poll      time.Duration
	idle      time.Duration
	log       *logger.Logger
}

func NewPool(cfg *config.ExportConfig, q JobQueue, p *Processor, store *storage.Storage, w *Window) *Pool {
	limit := rate.Inf
	if cfg.SubmissionsPerHour > 0 {
		limit = rate.Every(time.Hour / time.Duration(cfg.SubmissionsPerHour))
	}
	return &Pool{
		config:    cfg,
		queue:     q,
		processor: p,
		store:     store,
		window:    w,
		limiter:   rate.NewLimiter(limit, 1),
		poll:      2 * time.Second,
		idle:      time.Minute,
		log:       logger.WithComponent("pool"),
	}
}

// WithPolling sets how long a worker blocks on an empty queue and how long it
// idles once the daily limit is reached.
func (p *Pool) WithPolling(poll, idle time.Duration) *Pool {
	p.poll = poll
	p.idle = idle
	return p
}

// Run blocks until ctx is cancelled and every worker has returned.
func (p *Pool) Run(ctx context.Context) error {
	workers := p.config.Concurrency
	if workers < 1 {
		workers = 1
	}

	p.log.Info("Starting %d export worker(s)", workers)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		id := i + 1
		g.Go(func() error {
			return p.worker(ctx, id)
		})
	}

	err := g.Wait()
	p.log.Info("Export workers stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *Pool) worker(ctx context.Context, id int) error {
	log := p.log.WithField("worker", id)

	for {
		if ctx.Err() != nil {
			return nil
		}

		if p.window != nil {
			if err := p.window.Wait(ctx); err != nil {
				return nil
			}
		}

		if p.dailyLimitReached(log) {
			if !sleep(ctx, p.idle) {
				return nil
			}
			continue
		}

		job, err := p.queue.Dequeue(ctx, p.poll)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("Dequeue failed: %v", err)
			if !sleep(ctx, p.poll) {
				return nil
			}
			continue
		}
		if job == nil {
			continue
		}

		if err := p.limiter.Wait(ctx); err != nil {
			log.Info("Shutting down before job %s started, putting it back", job.ID)
			if err := p.queue.Enqueue(context.Background(), *job); err != nil {
				log.Error("Failed to return job %s: %v", job.ID, err)
			}
			return nil
		}

		if err := p.processor.Process(ctx, *job); err != nil {
			log.Error("Job %s: %v", job.ID, err)
		}
	}
}

func (p *Pool) dailyLimitReached(log *logger.Logger) bool {
	if p.config.DailyLimit <= 0 {
		return false
	}
	stats, err := p.store.GetTodayStats()
	if err != nil {
		log.Warn("Failed to read daily stats: %v", err)
		return false
	}
	if stats.Submitted >= p.config.DailyLimit {
		log.Info("Daily limit reached (%d/%d), idling", stats.Submitted, p.config.DailyLimit)
		return true
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
