package export

import (
	"context"
	"time"

	"github.com/logbook-automation/pkg/config"
	"github.com/logbook-automation/pkg/logger"
)

// Window limits submissions to configured working days and hours in the
// portal's timezone. A disabled window is always open.
type Window struct {
	config *config.ScheduleConfig
	loc    *time.Location
	log    *logger.Logger
	now    func() time.Time
}

func NewWindow(cfg *config.ScheduleConfig) *Window {
	log := logger.WithComponent("window")
	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Warn("Failed to load timezone %s, using local time", cfg.Timezone)
		} else {
			loc = l
		}
	}
	return &Window{config: cfg, loc: loc, log: log, now: time.Now}
}

func (w *Window) isWorkDay(t time.Time) bool {
	weekday := int(t.Weekday())
	for _, day := range w.config.WorkDays {
		if day == weekday {
			return true
		}
	}
	return false
}

func (w *Window) OpenAt(t time.Time) bool {
	if !w.config.Enabled {
		return true
	}
	t = t.In(w.loc)
	if !w.isWorkDay(t) {
		return false
	}
	hour := t.Hour()
	return hour >= w.config.StartHour && hour < w.config.EndHour
}

func (w *Window) Open() bool {
	return w.OpenAt(w.now())
}

// Next returns the earliest time at or after from when the window is open.
func (w *Window) Next(from time.Time) time.Time {
	if w.OpenAt(from) {
		return from
	}

	current := from.In(w.loc)
	for i := 0; i < 8; i++ {
		if w.isWorkDay(current) {
			start := time.Date(current.Year(), current.Month(), current.Day(),
				w.config.StartHour, 0, 0, 0, w.loc)
			if current.Before(start) {
				return start
			}
		}
		current = time.Date(current.Year(), current.Month(), current.Day()+1,
			0, 0, 0, 0, w.loc)
	}

	return current
}

// Wait blocks until the window opens or ctx ends.
func (w *Window) Wait(ctx context.Context) error {
	now := w.now()
	if w.OpenAt(now) {
		return nil
	}

	next := w.Next(now)
	wait := next.Sub(now)
	w.log.Info("Outside working hours, resuming at %s (in %s)", next.Format(time.RFC3339), wait.Round(time.Second))

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
