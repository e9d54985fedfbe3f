package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/logbook-automation/pkg/browser"
	"github.com/logbook-automation/pkg/logger"
	"github.com/logbook-automation/pkg/timing"
)

type Outcome int

const (
	// NoNode means no selector matched any node.
	NoNode Outcome = iota
	// Hidden means some selector matched, but the node never became visible.
	Hidden
	// Found means a node matched and was visible, unless visibility was not
	// required.
	Found
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "visible match"
	case Hidden:
		return "hidden"
	default:
		return "no node"
	}
}

type Result struct {
	Element  browser.Element
	Selector string
	Index    int
	Outcome  Outcome
}

func (r Result) Found() bool { return r.Outcome == Found }

const defaultInterval = 100 * time.Millisecond

type Resolver struct {
	timing   *timing.Controller
	log      *logger.Logger
	interval time.Duration
}

func New(t *timing.Controller, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.WithComponent("resolver")
	}
	return &Resolver{timing: t, log: log, interval: defaultInterval}
}

// WithInterval returns a copy polling at d.
func (r *Resolver) WithInterval(d time.Duration) *Resolver {
	cp := *r
	cp.interval = d
	return &cp
}

// Resolve returns the first selector, in list order, whose first DOM match
// satisfies the visibility requirement. Each selector gets an equal share of
// timeout.
func (r *Resolver) Resolve(ctx context.Context, page browser.Page, selectors []string, timeout time.Duration, requireVisible bool) Result {
	res := Result{Index: -1, Outcome: NoNode}
	if len(selectors) == 0 {
		return res
	}
	budget := timeout / time.Duration(len(selectors))

	for i, sel := range selectors {
		if ctx.Err() != nil {
			break
		}

		var (
			el      browser.Element
			matched bool
		)
		ok, _ := r.timing.Poll(ctx, budget, r.interval, func() bool {
			found, err := page.Element(sel)
			if err != nil {
				if !errors.Is(err, browser.ErrNotFound) {
					r.log.Debug("selector %s query failed: %v", sel, err)
				}
				return false
			}
			matched = true
			el = found
			if !requireVisible {
				return true
			}
			visible, err := found.Visible()
			return err == nil && visible
		})

		switch {
		case ok && requireVisible:
			r.log.Debug("selector %s: visible match (index %d)", sel, i)
			return Result{Element: el, Selector: sel, Index: i, Outcome: Found}
		case ok:
			r.log.Debug("selector %s: match (visibility not required, index %d)", sel, i)
			return Result{Element: el, Selector: sel, Index: i, Outcome: Found}
		case matched:
			r.log.Debug("selector %s: matched but never became visible within %s", sel, budget)
			if res.Outcome == NoNode {
				res = Result{Element: el, Selector: sel, Index: i, Outcome: Hidden}
			}
		default:
			r.log.Debug("selector %s: no node within %s", sel, budget)
		}
	}

	r.log.Debug("no usable match among %d selectors (%s)", len(selectors), res.Outcome)
	if res.Outcome == Hidden {
		// a hidden node is not a usable result
		res.Element = nil
	}
	return res
}

// ResolveAll returns every node matched by the first selector that matches
// anything. Visibility is not required.
func (r *Resolver) ResolveAll(ctx context.Context, page browser.Page, selectors []string, timeout time.Duration) ([]browser.Element, string) {
	first := r.Resolve(ctx, page, selectors, timeout, false)
	if !first.Found() {
		return nil, ""
	}
	els, err := page.Elements(first.Selector)
	if err != nil || len(els) == 0 {
		r.log.Debug("selector %s vanished before listing: %v", first.Selector, err)
		return nil, ""
	}
	return els, first.Selector
}

// Exists reports whether any selector currently matches a visible node,
// without waiting.
func (r *Resolver) Exists(page browser.Page, selectors []string) (browser.Element, string, bool) {
	for _, sel := range selectors {
		els, err := page.Elements(sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			if visible, err := el.Visible(); err == nil && visible {
				return el, sel, true
			}
		}
	}
	return nil, "", false
}
