package portal

import (
	"fmt"

	"github.com/logbook-automation/pkg/browser"
	"github.com/logbook-automation/pkg/config"
)

type State string

const (
	StateValidate      State = "Validate"
	StateInit          State = "Init"
	StateLogin         State = "Login"
	StateLocatePage    State = "LocateActivityPage"
	StateOpenForm      State = "OpenAddForm"
	StateFillForm      State = "FillForm"
	StateSubmit        State = "Submit"
	StateVerifySuccess State = "VerifySuccess"
	StateTeardown      State = "Teardown"
)

// StateError records the state a run died in.
type StateError struct {
	State State
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error { return e.Err }

// Heuristics are the inferences the run makes about the portal without an
// explicit signal. Each can be replaced or switched off.
type Heuristics struct {
	// NavigatedDuringSubmit reports whether an error raised while submitting
	// means the page navigated away, which counts as a successful submit.
	NavigatedDuringSubmit func(err error) bool
	// LingeringModal decides the result when the form modal is still visible
	// after submit and no error text appeared. True means tentative success.
	LingeringModal func() bool
}

func DefaultHeuristics() Heuristics {
	return Heuristics{
		NavigatedDuringSubmit: browser.IsContextDestroyed,
		LingeringModal:        func() bool { return true },
	}
}

func HeuristicsFromConfig(cfg *config.HeuristicConfig) Heuristics {
	h := DefaultHeuristics()
	if !cfg.NavigationMeansSubmitted {
		h.NavigatedDuringSubmit = func(error) bool { return false }
	}
	if !cfg.LingeringModalTentative {
		h.LingeringModal = func() bool { return false }
	}
	return h
}
