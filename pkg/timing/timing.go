package timing

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/logbook-automation/pkg/config"
)

// Controller bounds every deliberate pause in a run. All sleeps return early
// with ctx.Err() when the run is cancelled.
type Controller struct {
	config *config.TimingConfig

	mu   sync.Mutex
	rand *rand.Rand
}

func New(cfg *config.TimingConfig) *Controller {
	return &Controller{
		config: cfg,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Instant returns a controller that never waits, for tests.
func Instant() *Controller {
	return New(&config.TimingConfig{})
}

// Jitter spreads d by the configured variation in both directions.
func (t *Controller) Jitter(d time.Duration) time.Duration {
	if d <= 0 || t.config.HumanVariation <= 0 {
		return d
	}
	t.mu.Lock()
	f := t.rand.Float64()*2 - 1
	t.mu.Unlock()

	out := d + time.Duration(float64(d)*t.config.HumanVariation*f)
	if out < d/2 {
		out = d / 2
	}
	return out
}

func (t *Controller) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *Controller) SleepAction(ctx context.Context) error {
	return t.Sleep(ctx, t.Jitter(t.config.ActionDelay))
}

func (t *Controller) SleepSettle(ctx context.Context) error {
	return t.Sleep(ctx, t.config.SettleDelay)
}

func (t *Controller) SleepPageLoad(ctx context.Context) error {
	return t.Sleep(ctx, t.Jitter(t.config.PageLoadWait))
}

func (t *Controller) SleepReadBack(ctx context.Context) error {
	return t.Sleep(ctx, t.config.ReadBackDelay)
}

// Poll calls check every interval until it returns true, the timeout passes
// or ctx ends. It reports whether check succeeded.
func (t *Controller) Poll(ctx context.Context, timeout, interval time.Duration, check func() bool) (bool, error) {
	if check() {
		return true, nil
	}
	if timeout <= 0 {
		return false, nil
	}
	if interval <= 0 || interval > timeout {
		interval = timeout
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return check(), nil
		case <-ticker.C:
			if check() {
				return true, nil
			}
		}
	}
}
