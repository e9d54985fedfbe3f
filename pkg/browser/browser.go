package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/logbook-automation/pkg/config"
	"github.com/logbook-automation/pkg/logger"
)

// ErrNotFound is returned by Page.Element when a selector matches no node.
var ErrNotFound = errors.New("element not found")

// Element is a handle to one DOM node. Calls never wait for the node to
// appear; waiting is the resolver's job.
type Element interface {
	Visible() (bool, error)
	Text() (string, error)
	// Attribute reports the attribute value and whether it is present.
	Attribute(name string) (string, bool, error)
	Value() (string, error)
	Fill(value string) error
	Click() error
	Check() error
	SelectByValue(value string) error
	SelectByLabel(label string) error
	SetFiles(paths []string) error
	// Eval runs a script of the form (el, arg) => ... and returns its result
	// as a string.
	Eval(fn string, arg interface{}) (string, error)
}

// ResponseWaiter blocks until a matching network response arrives, the
// timeout passes or the page is closed. It returns the HTTP status.
type ResponseWaiter func(timeout time.Duration) (int, error)

// Page is a single tab inside a browser context owned by one run.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL() string
	// Element returns the first node matching selector or ErrNotFound.
	Element(selector string) (Element, error)
	Elements(selector string) ([]Element, error)
	// Eval runs a script of the form (arg) => ... in the page.
	Eval(js string, arg interface{}) (string, error)
	PressEnter() error
	// AcceptNextDialog auto-accepts the next native alert or confirm until
	// release is called or ctx ends.
	AcceptNextDialog(ctx context.Context) (release func())
	// ExpectResponse starts listening before the action that triggers the
	// request; call the returned waiter afterwards.
	ExpectResponse(ctx context.Context, urlContains string) ResponseWaiter
	Screenshot(path string) error
	// Close releases the whole browser context, not just the tab.
	Close() error
}

type Launcher interface {
	Launch(ctx context.Context) (Page, error)
}

// New returns the launcher for the configured engine.
func New(cfg *config.BrowserConfig, actionTimeout time.Duration) (Launcher, error) {
	log := logger.WithComponent("browser")
	switch cfg.Engine {
	case "", "rod":
		return NewRodLauncher(cfg, actionTimeout, log), nil
	case "playwright":
		return NewPlaywrightLauncher(cfg, actionTimeout, log), nil
	default:
		return nil, fmt.Errorf("unsupported browser engine: %q", cfg.Engine)
	}
}

// IsContextDestroyed matches the errors both engines raise when the page
// navigates away while a call is in flight.
func IsContextDestroyed(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "context was destroyed") ||
		strings.Contains(msg, "Execution context was destroyed") ||
		strings.Contains(msg, "Cannot find context with specified id")
}

// IsTextSelector reports whether selector is a text= selector and returns
// the literal.
func IsTextSelector(selector string) (string, bool) {
	if strings.HasPrefix(selector, "text=") {
		return strings.Trim(strings.TrimPrefix(selector, "text="), `"'`), true
	}
	return "", false
}
