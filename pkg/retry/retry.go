package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/logbook-automation/pkg/logger"
)

// IsPermanent reports whether err carries a backoff.Permanent marker. Do
// keeps the marker on the error it returns so callers can tell a rejected
// input from an exhausted one.
func IsPermanent(err error) bool {
	var p *backoff.PermanentError
	return errors.As(err, &p)
}

// Screenshotter is the subset of diagnostics.Recorder the executor needs.
type Screenshotter interface {
	CaptureAttempt(operation string, attempt int) string
	CaptureFailed(operation string) string
}

type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Linear makes the delay before attempt n+1 BaseDelay*n instead of BaseDelay.
	Linear bool
	// CaptureAttempts takes a screenshot on every failed attempt that will be
	// retried, not only on the final failure.
	CaptureAttempts bool
}

type Executor struct {
	opts  Options
	shots Screenshotter
	log   *logger.Logger
}

func New(opts Options, shots Screenshotter, log *logger.Logger) *Executor {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if log == nil {
		log = logger.WithComponent("retry")
	}
	return &Executor{opts: opts, shots: shots, log: log}
}

// linearBackOff waits base, 2*base, 3*base...
type linearBackOff struct {
	base time.Duration
	n    int
}

func (b *linearBackOff) Reset() { b.n = 0 }

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return b.base * time.Duration(b.n)
}

func (e *Executor) policy(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = backoff.NewConstantBackOff(e.opts.BaseDelay)
	if e.opts.Linear {
		b = &linearBackOff{base: e.opts.BaseDelay}
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.opts.MaxAttempts-1)), ctx)
}

// Do runs op up to MaxAttempts times. op must be safe to call again after a
// failure. The last error is returned wrapped with the operation name.
func (e *Executor) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	attempt := 0
	permanent := false

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempt++
		err := op(ctx)
		if err != nil && IsPermanent(err) {
			permanent = true
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		e.log.Warn("%s attempt %d/%d failed, retrying in %s: %v", name, attempt, e.opts.MaxAttempts, next, err)
		if e.opts.CaptureAttempts && e.shots != nil {
			e.shots.CaptureAttempt(name, attempt)
		}
	}

	err := backoff.RetryNotify(operation, e.policy(ctx), notify)
	if err == nil {
		if attempt > 1 {
			e.log.Info("%s succeeded on attempt %d/%d", name, attempt, e.opts.MaxAttempts)
		}
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && !permanent {
		return fmt.Errorf("%s cancelled: %w", name, ctxErr)
	}

	if e.shots != nil {
		e.shots.CaptureFailed(name)
	}
	if permanent {
		// RetryNotify strips the marker; put it back for the caller.
		e.log.Error("%s failed permanently on attempt %d: %v", name, attempt, err)
		return backoff.Permanent(fmt.Errorf("%s failed: %w", name, err))
	}
	e.log.Error("%s failed after %d attempt(s): %v", name, attempt, err)
	return fmt.Errorf("%s failed after %d attempt(s): %w", name, attempt, err)
}
