package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/logbook-automation/pkg/browser"
	"github.com/logbook-automation/pkg/config"
	"github.com/logbook-automation/pkg/diagnostics"
	"github.com/logbook-automation/pkg/fields"
	"github.com/logbook-automation/pkg/logbook"
	"github.com/logbook-automation/pkg/logger"
	"github.com/logbook-automation/pkg/resolver"
	"github.com/logbook-automation/pkg/retry"
	"github.com/logbook-automation/pkg/selectors"
	"github.com/logbook-automation/pkg/timing"
)

// Orchestrator drives one submission per Run. It holds no per-run state, so
// concurrent runs only share configuration.
type Orchestrator struct {
	config     *config.Config
	catalog    *selectors.Catalog
	launcher   browser.Launcher
	timing     *timing.Controller
	heuristics Heuristics
	interval   time.Duration
	log        *logger.Logger
	newRunID   func() string
}

func New(cfg *config.Config, catalog *selectors.Catalog, launcher browser.Launcher, t *timing.Controller) *Orchestrator {
	return &Orchestrator{
		config:     cfg,
		catalog:    catalog,
		launcher:   launcher,
		timing:     t,
		heuristics: HeuristicsFromConfig(&cfg.Automation.Heuristics),
		interval:   100 * time.Millisecond,
		log:        logger.WithComponent("portal"),
		newRunID:   uuid.NewString,
	}
}

func (o *Orchestrator) WithHeuristics(h Heuristics) *Orchestrator {
	cp := *o
	if h.NavigatedDuringSubmit == nil {
		h.NavigatedDuringSubmit = DefaultHeuristics().NavigatedDuringSubmit
	}
	if h.LingeringModal == nil {
		h.LingeringModal = DefaultHeuristics().LingeringModal
	}
	cp.heuristics = h
	return &cp
}

func (o *Orchestrator) WithLogger(log *logger.Logger) *Orchestrator {
	cp := *o
	cp.log = log
	return &cp
}

// WithPollInterval sets how often element waits re-query the page.
func (o *Orchestrator) WithPollInterval(d time.Duration) *Orchestrator {
	cp := *o
	cp.interval = d
	return &cp
}

// session is everything one run mutates. It is passed explicitly through
// every state.
type session struct {
	runID  string
	entry  *logbook.Entry
	creds  logbook.Credentials
	values FormValues

	page     browser.Page
	recorder *diagnostics.Recorder
	retry    *retry.Executor
	resolver *resolver.Resolver
	fields   *fields.Operator
	log      *logger.Logger

	warnings  []string
	tentative bool
	navigated bool
}

func (s *session) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.log.Warn("%s", msg)
	s.warnings = append(s.warnings, msg)
}

type step struct {
	state State
	run   func(ctx context.Context, s *session) error
}

// Run performs one submission and converts every failure into the outcome.
// The browser is closed on every path once it has been launched.
func (o *Orchestrator) Run(ctx context.Context, entry logbook.Entry, creds logbook.Credentials) *logbook.Outcome {
	runID := o.newRunID()
	log := o.log.WithFields(map[string]interface{}{"run_id": runID, "entry_id": entry.ID})
	outcome := &logbook.Outcome{RunID: runID, StartedAt: time.Now()}

	recorder := diagnostics.NewRecorder(o.config.Automation.ScreenshotDir, runID, log.WithComponent("diagnostics"))
	res := resolver.New(o.timing, log.WithComponent("resolver")).WithInterval(o.interval)
	s := &session{
		runID:    runID,
		entry:    &entry,
		creds:    creds,
		values:   MapEntry(&entry),
		recorder: recorder,
		resolver: res,
		fields:   fields.New(res, o.timing, o.config.Automation.ResolveTimeout, log.WithComponent("fields")),
		log:      log,
		retry: retry.New(retry.Options{
			MaxAttempts:     o.config.Automation.MaxAttempts,
			BaseDelay:       o.config.Automation.BaseDelay,
			Linear:          o.config.Automation.LinearBackoff,
			CaptureAttempts: o.config.Automation.ScreenshotAttempts,
		}, recorder, log.WithComponent("retry")),
	}

	finish := func(err error) *logbook.Outcome {
		outcome.Duration = time.Since(outcome.StartedAt)
		outcome.Screenshots = recorder.Paths()
		outcome.Warnings = s.warnings
		outcome.Tentative = s.tentative
		if err == nil {
			outcome.Succeeded = true
			log.Info("Run succeeded in %s (tentative=%v, warnings=%d)", outcome.Duration.Round(time.Millisecond), s.tentative, len(s.warnings))
			return outcome
		}
		var se *StateError
		if errors.As(err, &se) {
			outcome.FailedState = string(se.State)
			outcome.Permanent = se.State == StateValidate
		}
		if retry.IsPermanent(err) {
			outcome.Permanent = true
		}
		outcome.FailureReason = err.Error()
		log.Error("Run failed: %v", err)
		return outcome
	}

	log.Info("Starting submission for %s", entry.Date)

	if err := o.validate(&entry, creds); err != nil {
		return finish(&StateError{State: StateValidate, Err: err})
	}

	if err := s.retry.Do(ctx, string(StateInit), func(ctx context.Context) error {
		page, err := o.launcher.Launch(ctx)
		if err != nil {
			return err
		}
		s.page = page
		return nil
	}); err != nil {
		return finish(&StateError{State: StateInit, Err: err})
	}
	recorder.Attach(s.page)
	defer o.teardown(s)

	steps := []step{
		{StateLogin, o.login},
		{StateLocatePage, o.locateActivityPage},
		{StateOpenForm, o.openAddForm},
		{StateFillForm, o.fillForm},
		{StateSubmit, o.submit},
		{StateVerifySuccess, o.verifySuccess},
	}

	for _, st := range steps {
		log.Info("Entering state %s", st.state)
		run := st.run
		if err := s.retry.Do(ctx, string(st.state), func(ctx context.Context) error {
			return run(ctx, s)
		}); err != nil {
			return finish(&StateError{State: st.state, Err: err})
		}
	}

	return finish(nil)
}

func (o *Orchestrator) validate(entry *logbook.Entry, creds logbook.Credentials) error {
	if !creds.Valid() {
		return errors.New("portal credentials are required")
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid entry: %w", err)
	}
	return nil
}

func (o *Orchestrator) teardown(s *session) {
	s.log.Info("Entering state %s", StateTeardown)
	if err := s.page.Close(); err != nil {
		s.log.Warn("Failed to close browser: %v", err)
	}
}
