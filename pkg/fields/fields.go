package fields

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/logbook-automation/pkg/browser"
	"github.com/logbook-automation/pkg/logger"
	"github.com/logbook-automation/pkg/resolver"
	"github.com/logbook-automation/pkg/timing"
)

type Status int

const (
	Done Status = iota
	// Soft means the field could not be set but nothing is broken: the
	// control is absent or no option matched.
	Soft
	// Hard means a precondition failed or the control rejected the action.
	Hard
)

func (s Status) String() string {
	switch s {
	case Done:
		return "done"
	case Soft:
		return "soft-failure"
	default:
		return "hard-failure"
	}
}

type Result struct {
	Status Status
	// Verified is set when a read-back confirmed the value.
	Verified bool
	Selector string
	Reason   string
}

func (r Result) OK() bool { return r.Status == Done }

func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%s: %s", r.Status, r.Reason)
}

func soft(format string, args ...interface{}) Result {
	return Result{Status: Soft, Reason: fmt.Sprintf(format, args...)}
}

func hard(format string, args ...interface{}) Result {
	return Result{Status: Hard, Reason: fmt.Sprintf(format, args...)}
}

type Operator struct {
	resolver *resolver.Resolver
	timing   *timing.Controller
	timeout  time.Duration
	log      *logger.Logger
}

func New(r *resolver.Resolver, t *timing.Controller, timeout time.Duration, log *logger.Logger) *Operator {
	if log == nil {
		log = logger.WithComponent("fields")
	}
	return &Operator{resolver: r, timing: t, timeout: timeout, log: log}
}

// FillText clears the control and types value. A read-back mismatch is only
// a warning, because widgets such as date pickers reformat what they get.
func (o *Operator) FillText(ctx context.Context, page browser.Page, name string, selectors []string, value string) Result {
	return o.fill(ctx, page, name, selectors, value, false)
}

// FillSecret is FillText without the value ever reaching the log.
func (o *Operator) FillSecret(ctx context.Context, page browser.Page, name string, selectors []string, value string) Result {
	return o.fill(ctx, page, name, selectors, value, true)
}

func (o *Operator) fill(ctx context.Context, page browser.Page, name string, selectors []string, value string, secret bool) Result {
	res := o.resolver.Resolve(ctx, page, selectors, o.timeout, true)
	if !res.Found() {
		return soft("%s: control not found (%s)", name, res.Outcome)
	}

	if err := res.Element.Fill(value); err != nil {
		o.log.Warn("%s: fill via %s failed: %v", name, res.Selector, err)
		r := hard("%s: fill failed: %v", name, err)
		r.Selector = res.Selector
		return r
	}

	if err := o.timing.SleepReadBack(ctx); err != nil {
		return hard("%s: %v", name, err)
	}

	got, err := res.Element.Value()
	switch {
	case err != nil:
		o.log.Warn("%s: could not read value back: %v", name, err)
	case got != value && secret:
		o.log.Warn("%s: read-back mismatch via %s", name, res.Selector)
	case got != value:
		o.log.Warn("%s: read-back mismatch via %s: want %q, got %q", name, res.Selector, value, got)
	default:
		o.log.Debug("%s: set and verified via %s", name, res.Selector)
		return Result{Status: Done, Verified: true, Selector: res.Selector}
	}
	return Result{Status: Done, Verified: false, Selector: res.Selector}
}

// SelectOption picks an option by underlying value, then by visible label.
// Enhanced dropdowns hide the native select, so visibility is not required.
func (o *Operator) SelectOption(ctx context.Context, page browser.Page, name string, selectors []string, value, label string) Result {
	res := o.resolver.Resolve(ctx, page, selectors, o.timeout, false)
	if !res.Found() {
		return soft("%s: dropdown not found (%s)", name, res.Outcome)
	}

	err := res.Element.SelectByValue(value)
	if err == nil {
		o.log.Debug("%s: selected value %q via %s", name, value, res.Selector)
		return Result{Status: Done, Verified: true, Selector: res.Selector}
	}
	o.log.Debug("%s: no option with value %q: %v", name, value, err)

	if label != "" {
		err = res.Element.SelectByLabel(label)
		if err == nil {
			o.log.Debug("%s: selected label %q via %s", name, label, res.Selector)
			return Result{Status: Done, Verified: true, Selector: res.Selector}
		}
		o.log.Debug("%s: no option with label %q: %v", name, label, err)
	}

	r := soft("%s: neither value %q nor label %q matched", name, value, label)
	r.Selector = res.Selector
	return r
}

// CheckOption scans same-named checkbox or radio inputs and checks the first
// whose value attribute equals target.
func (o *Operator) CheckOption(ctx context.Context, page browser.Page, name string, selectors []string, target string) Result {
	els, sel := o.resolver.ResolveAll(ctx, page, selectors, o.timeout)
	if len(els) == 0 {
		return soft("%s: no inputs found", name)
	}

	for i, el := range els {
		v, ok, err := el.Attribute("value")
		if err != nil || !ok || v != target {
			continue
		}
		if err := el.Check(); err != nil {
			o.log.Warn("%s: checking instance %d of %s failed: %v", name, i, sel, err)
			r := hard("%s: check failed: %v", name, err)
			r.Selector = sel
			return r
		}
		o.log.Debug("%s: checked instance %d with value %q", name, i, target)
		return Result{Status: Done, Verified: true, Selector: sel}
	}

	r := soft("%s: none of %d inputs has value %q", name, len(els), target)
	r.Selector = sel
	return r
}

// Check ticks the first resolved checkbox.
func (o *Operator) Check(ctx context.Context, page browser.Page, name string, selectors []string) Result {
	res := o.resolver.Resolve(ctx, page, selectors, o.timeout, false)
	if !res.Found() {
		return soft("%s: checkbox not found (%s)", name, res.Outcome)
	}
	if err := res.Element.Check(); err != nil {
		r := hard("%s: check failed: %v", name, err)
		r.Selector = res.Selector
		return r
	}
	return Result{Status: Done, Verified: true, Selector: res.Selector}
}

// UploadFile attaches path to a (possibly hidden) file input and confirms the
// input now holds exactly that one file. The page is not touched when the
// local file is missing or empty.
func (o *Operator) UploadFile(ctx context.Context, page browser.Page, name string, selectors []string, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return hard("%s: %s is not readable: %v", name, path, err)
	}
	if info.IsDir() {
		return hard("%s: %s is a directory", name, path)
	}
	if info.Size() == 0 {
		return hard("%s: %s is empty", name, path)
	}

	res := o.resolver.Resolve(ctx, page, selectors, o.timeout, false)
	if !res.Found() {
		return soft("%s: file input not found (%s)", name, res.Outcome)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if err := res.Element.SetFiles([]string{abs}); err != nil {
		r := hard("%s: set files failed: %v", name, err)
		r.Selector = res.Selector
		return r
	}

	if _, err := res.Element.Eval(browser.ScriptDispatchInputChange, nil); err != nil {
		o.log.Warn("%s: dispatching input/change failed: %v", name, err)
	}

	raw, err := res.Element.Eval(browser.ScriptFileNames, nil)
	if err != nil {
		r := soft("%s: could not read back attached files: %v", name, err)
		r.Selector = res.Selector
		return r
	}

	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		r := soft("%s: unexpected file list %q", name, raw)
		r.Selector = res.Selector
		return r
	}

	want := filepath.Base(path)
	if len(names) != 1 || names[0] != want {
		r := soft("%s: expected exactly %q attached, found [%s]", name, want, strings.Join(names, ", "))
		r.Selector = res.Selector
		return r
	}

	o.log.Info("%s: attached %s (%d bytes)", name, want, info.Size())
	return Result{Status: Done, Verified: true, Selector: res.Selector}
}
