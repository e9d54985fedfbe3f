// Package browsertest provides a scripted in-memory page for exercising
// automation code without a real browser.
package browsertest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/logbook-automation/pkg/browser"
)

// Page is a fake browser.Page. The DOM is a map from selector to nodes; tests
// script transitions through Route, OnEnter and Element.OnClick hooks.
type Page struct {
	mu       sync.Mutex
	url      string
	dom      map[string][]*Element
	routes   map[string]func(*Page)
	queries  int
	dialogs  int
	armed    int
	closed   bool
	shots    []string
	enters   int
	navLog   []string
	evalFunc func(js string, arg interface{}) (string, error)

	// OnEnter runs when PressEnter is called.
	OnEnter func(p *Page) error
	// Response is returned by every ResponseWaiter. A nil func means no
	// matching response ever arrives.
	Response func(urlContains string) (int, error)
	// ScreenshotErr makes Screenshot fail.
	ScreenshotErr error
	// NavigateErr makes Navigate fail for the given URL.
	NavigateErr map[string]error
}

var _ browser.Page = (*Page)(nil)

func NewPage() *Page {
	return &Page{
		dom:    make(map[string][]*Element),
		routes: make(map[string]func(*Page)),
	}
}

// Route registers the DOM built when url is navigated to.
func (p *Page) Route(url string, build func(*Page)) *Page {
	p.mu.Lock()
	p.routes[url] = build
	p.mu.Unlock()
	return p
}

// Set replaces the nodes matched by selector.
func (p *Page) Set(selector string, els ...*Element) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, el := range els {
		el.page = p
	}
	p.dom[selector] = els
	return p
}

func (p *Page) Remove(selector string) {
	p.mu.Lock()
	delete(p.dom, selector)
	p.mu.Unlock()
}

// Reset clears the DOM, as a full page load would.
func (p *Page) Reset() {
	p.mu.Lock()
	p.dom = make(map[string][]*Element)
	p.mu.Unlock()
}

func (p *Page) SetURL(url string) {
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
}

func (p *Page) SetEval(fn func(js string, arg interface{}) (string, error)) {
	p.mu.Lock()
	p.evalFunc = fn
	p.mu.Unlock()
}

// Queries counts every DOM lookup and element interaction.
func (p *Page) Queries() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries
}

func (p *Page) Screenshots() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.shots...)
}

func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navLog...)
}

func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// PendingDialogs counts dialog handlers armed and not yet released.
func (p *Page) PendingDialogs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dialogs
}

// ArmedDialogs counts every AcceptNextDialog call.
func (p *Page) ArmedDialogs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.armed
}

func (p *Page) touch() {
	p.mu.Lock()
	p.queries++
	p.mu.Unlock()
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	p.navLog = append(p.navLog, url)
	if err := p.NavigateErr[url]; err != nil {
		p.mu.Unlock()
		return err
	}
	p.url = url
	p.dom = make(map[string][]*Element)
	build := p.routes[url]
	p.mu.Unlock()

	if build != nil {
		build(p)
	}
	return nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) Element(selector string) (browser.Element, error) {
	els, err := p.Elements(selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, browser.ErrNotFound
	}
	return els[0], nil
}

func (p *Page) Elements(selector string) ([]browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries++
	if p.closed {
		return nil, errors.New("page closed")
	}
	nodes := p.dom[selector]
	out := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n)
	}
	return out, nil
}

func (p *Page) Eval(js string, arg interface{}) (string, error) {
	p.mu.Lock()
	fn := p.evalFunc
	p.queries++
	p.mu.Unlock()
	if fn != nil {
		return fn(js, arg)
	}
	return "", nil
}

func (p *Page) PressEnter() error {
	p.mu.Lock()
	p.enters++
	hook := p.OnEnter
	p.mu.Unlock()
	if hook != nil {
		return hook(p)
	}
	return nil
}

func (p *Page) Enters() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enters
}

func (p *Page) AcceptNextDialog(ctx context.Context) func() {
	p.mu.Lock()
	p.dialogs++
	p.armed++
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			p.dialogs--
			p.mu.Unlock()
		})
	}
}

func (p *Page) ExpectResponse(ctx context.Context, urlContains string) browser.ResponseWaiter {
	return func(timeout time.Duration) (int, error) {
		if p.Response == nil {
			return 0, fmt.Errorf("no response matching %q within %s", urlContains, timeout)
		}
		return p.Response(urlContains)
	}
}

// Screenshot records the path and writes a placeholder file.
func (p *Page) Screenshot(path string) error {
	if p.ScreenshotErr != nil {
		return p.ScreenshotErr
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte("png"), 0644); err != nil {
		return err
	}
	p.mu.Lock()
	p.shots = append(p.shots, path)
	p.mu.Unlock()
	return nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// Launcher hands out a prepared page.
type Launcher struct {
	Page     *Page
	Err      error
	Launches int
}

func (l *Launcher) Launch(ctx context.Context) (browser.Page, error) {
	l.Launches++
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Page, nil
}

func fileNamesJSON(paths []string) string {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	data, _ := json.Marshal(names)
	return string(data)
}
