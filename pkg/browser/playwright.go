package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/logbook-automation/pkg/config"
	"github.com/logbook-automation/pkg/logger"
)

type PlaywrightLauncher struct {
	config        *config.BrowserConfig
	actionTimeout time.Duration
	log           *logger.Logger
}

func NewPlaywrightLauncher(cfg *config.BrowserConfig, actionTimeout time.Duration, log *logger.Logger) *PlaywrightLauncher {
	return &PlaywrightLauncher{config: cfg, actionTimeout: actionTimeout, log: log}
}

func (l *PlaywrightLauncher) Launch(ctx context.Context) (Page, error) {
	l.log.Info("Launching browser (playwright, headless=%v)...", l.config.Headless)

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.config.Headless),
	}
	if l.config.Bin != "" {
		opts.ExecutablePath = playwright.String(l.config.Bin)
	}

	b, err := pw.Chromium.Launch(opts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	ctxOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  l.config.ViewportWidth,
			Height: l.config.ViewportHeight,
		},
	}
	if l.config.UserAgent != "" {
		ctxOpts.UserAgent = playwright.String(l.config.UserAgent)
	}

	bctx, err := b.NewContext(ctxOpts)
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	bctx.SetDefaultTimeout(float64(l.actionTimeout.Milliseconds()))
	if l.config.PageLoadTimeout > 0 {
		bctx.SetDefaultNavigationTimeout(float64(l.config.PageLoadTimeout.Milliseconds()))
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	p := &pwPage{pw: pw, browser: b, bctx: bctx, page: page, log: l.log}
	p.attachListeners()

	l.log.Info("Browser launched")
	return p, nil
}

type responseWatch struct {
	match  string
	status chan int
}

type pwPage struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	bctx    playwright.BrowserContext
	page    playwright.Page
	log     *logger.Logger

	acceptDialogs atomic.Int32

	mu      sync.Mutex
	watches []*responseWatch

	closeOnce sync.Once
}

func (p *pwPage) attachListeners() {
	p.page.OnConsole(func(m playwright.ConsoleMessage) {
		p.log.Debug("console.%s: %s", m.Type(), m.Text())
	})
	p.page.OnPageError(func(err error) {
		p.log.Warn("page error: %v", err)
	})
	p.page.OnRequestFailed(func(r playwright.Request) {
		p.log.Warn("request failed: %s %v", r.URL(), r.Failure())
	})
	p.page.OnDialog(func(d playwright.Dialog) {
		if p.acceptDialogs.Load() > 0 {
			p.acceptDialogs.Add(-1)
			p.log.Info("Accepting %s dialog: %s", d.Type(), d.Message())
			if err := d.Accept(); err != nil {
				p.log.Warn("Failed to accept dialog: %v", err)
			}
			return
		}
		p.log.Warn("Dismissing unexpected %s dialog: %s", d.Type(), d.Message())
		_ = d.Dismiss()
	})
	p.page.OnResponse(func(r playwright.Response) {
		p.mu.Lock()
		defer p.mu.Unlock()
		kept := p.watches[:0]
		for _, w := range p.watches {
			if strings.Contains(r.URL(), w.match) {
				w.status <- r.Status()
				continue
			}
			kept = append(kept, w)
		}
		p.watches = kept
	})
}

func (p *pwPage) Navigate(ctx context.Context, url string) error {
	p.log.Debug("Navigating to %s", url)
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (p *pwPage) URL() string {
	return p.page.URL()
}

func (p *pwPage) Element(selector string) (Element, error) {
	loc := p.page.Locator(selector)
	n, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", selector, err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return &pwElement{loc: loc.First()}, nil
}

func (p *pwPage) Elements(selector string) ([]Element, error) {
	locs, err := p.page.Locator(selector).All()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", selector, err)
	}
	out := make([]Element, 0, len(locs))
	for _, loc := range locs {
		out = append(out, &pwElement{loc: loc})
	}
	return out, nil
}

func (p *pwPage) Eval(js string, arg interface{}) (string, error) {
	res, err := p.page.Evaluate(js, arg)
	if err != nil {
		return "", err
	}
	return stringify(res), nil
}

func (p *pwPage) PressEnter() error {
	return p.page.Keyboard().Press("Enter")
}

func (p *pwPage) AcceptNextDialog(ctx context.Context) func() {
	p.acceptDialogs.Add(1)
	var once sync.Once
	release := func() {
		once.Do(func() {
			for {
				n := p.acceptDialogs.Load()
				if n <= 0 || p.acceptDialogs.CompareAndSwap(n, n-1) {
					return
				}
			}
		})
	}
	stop := context.AfterFunc(ctx, release)
	return func() {
		stop()
		release()
	}
}

func (p *pwPage) ExpectResponse(ctx context.Context, urlContains string) ResponseWaiter {
	w := &responseWatch{match: urlContains, status: make(chan int, 1)}
	p.mu.Lock()
	p.watches = append(p.watches, w)
	p.mu.Unlock()

	return func(timeout time.Duration) (int, error) {
		defer p.drop(w)
		select {
		case code := <-w.status:
			return code, nil
		case <-time.After(timeout):
			return 0, fmt.Errorf("no response matching %q within %s", urlContains, timeout)
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

func (p *pwPage) drop(w *responseWatch) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, cur := range p.watches {
		if cur == w {
			p.watches = append(p.watches[:i], p.watches[i+1:]...)
			return
		}
	}
}

func (p *pwPage) Screenshot(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if _, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	return nil
}

func (p *pwPage) Close() error {
	var err error
	p.closeOnce.Do(func() {
		if cerr := p.bctx.Close(); cerr != nil {
			err = cerr
		}
		if cerr := p.browser.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if cerr := p.pw.Stop(); cerr != nil && err == nil {
			err = cerr
		}
	})
	return err
}

type pwElement struct {
	loc playwright.Locator
}

func (e *pwElement) Visible() (bool, error) {
	return e.loc.IsVisible()
}

func (e *pwElement) Text() (string, error) {
	return e.loc.TextContent()
}

func (e *pwElement) Attribute(name string) (string, bool, error) {
	res, err := e.loc.Evaluate(`(el, name) => el.getAttribute(name)`, name)
	if err != nil {
		return "", false, err
	}
	if res == nil {
		return "", false, nil
	}
	return stringify(res), true, nil
}

func (e *pwElement) Value() (string, error) {
	return e.loc.InputValue()
}

func (e *pwElement) Fill(value string) error {
	return e.loc.Fill(value)
}

func (e *pwElement) Click() error {
	return e.loc.Click()
}

func (e *pwElement) Check() error {
	return e.loc.Check()
}

func (e *pwElement) SelectByValue(value string) error {
	_, err := e.loc.SelectOption(playwright.SelectOptionValues{Values: &[]string{value}})
	return err
}

func (e *pwElement) SelectByLabel(label string) error {
	_, err := e.loc.SelectOption(playwright.SelectOptionValues{Labels: &[]string{label}})
	return err
}

func (e *pwElement) SetFiles(paths []string) error {
	return e.loc.SetInputFiles(paths)
}

func (e *pwElement) Eval(fn string, arg interface{}) (string, error) {
	res, err := e.loc.Evaluate(fn, arg)
	if err != nil {
		return "", err
	}
	return stringify(res), nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
