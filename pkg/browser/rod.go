package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/logbook-automation/pkg/config"
	"github.com/logbook-automation/pkg/logger"
)

// innermost elements whose text contains the literal
const findByTextJS = `(text) => {
	const contains = (el) => ((el.innerText || el.textContent || '').indexOf(text) !== -1);
	return Array.from(document.querySelectorAll('body *')).filter(
		(el) => contains(el) && !Array.from(el.children).some(contains));
}`

type RodLauncher struct {
	config        *config.BrowserConfig
	actionTimeout time.Duration
	log           *logger.Logger
}

func NewRodLauncher(cfg *config.BrowserConfig, actionTimeout time.Duration, log *logger.Logger) *RodLauncher {
	return &RodLauncher{config: cfg, actionTimeout: actionTimeout, log: log}
}

func (l *RodLauncher) Launch(ctx context.Context) (Page, error) {
	l.log.Info("Launching browser (rod, headless=%v)...", l.config.Headless)

	lc := launcher.New().
		Context(ctx).
		Headless(l.config.Headless).
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("window-size", fmt.Sprintf("%d,%d", l.config.ViewportWidth, l.config.ViewportHeight))

	if l.config.Bin != "" {
		lc = lc.Bin(l.config.Bin)
	}
	if l.config.UserDataDir != "" {
		if err := os.MkdirAll(l.config.UserDataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create user data directory: %w", err)
		}
		lc = lc.UserDataDir(l.config.UserDataDir)
	}

	url, err := lc.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(url)
	if err := b.Connect(); err != nil {
		lc.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             l.config.ViewportWidth,
		Height:            l.config.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		l.log.Warn("Failed to set viewport: %v", err)
	}

	if l.config.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: l.config.UserAgent}); err != nil {
			l.log.Warn("Failed to set user agent: %v", err)
		}
	}

	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		l.log.Warn("Failed to enable network events: %v", err)
	}

	p := &rodPage{browser: b, page: page, timeout: l.actionTimeout, loadTimeout: l.config.PageLoadTimeout, log: l.log}
	p.attachDiagnostics(ctx)

	l.log.Info("Browser launched")
	return p, nil
}

type rodPage struct {
	browser     *rod.Browser
	page        *rod.Page
	timeout     time.Duration
	loadTimeout time.Duration
	log         *logger.Logger

	closeOnce sync.Once
}

func (p *rodPage) attachDiagnostics(ctx context.Context) {
	go p.page.Context(ctx).EachEvent(
		func(e *proto.RuntimeConsoleAPICalled) {
			parts := make([]string, 0, len(e.Args))
			for _, arg := range e.Args {
				if arg.Value.Val() != nil {
					parts = append(parts, arg.Value.String())
				}
			}
			p.log.Debug("console.%s: %s", e.Type, strings.Join(parts, " "))
		},
		func(e *proto.RuntimeExceptionThrown) {
			if e.ExceptionDetails != nil {
				p.log.Warn("page error: %s", e.ExceptionDetails.Text)
			}
		},
		func(e *proto.NetworkLoadingFailed) {
			if !e.Canceled {
				p.log.Warn("request failed (%s): %s", e.RequestID, e.ErrorText)
			}
		},
	)()
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	p.log.Debug("Navigating to %s", url)

	page := p.page.Context(ctx)
	if p.loadTimeout > 0 {
		page = page.Timeout(p.loadTimeout)
		defer page.CancelTimeout()
	}
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("page load timeout for %s: %w", url, err)
	}
	return nil
}

func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) Element(selector string) (Element, error) {
	els, err := p.Elements(selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, ErrNotFound
	}
	return els[0], nil
}

func (p *rodPage) Elements(selector string) ([]Element, error) {
	var (
		found rod.Elements
		err   error
	)
	if text, ok := IsTextSelector(selector); ok {
		found, err = p.page.ElementsByJS(rod.Eval(findByTextJS, text))
	} else {
		found, err = p.page.Elements(selector)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", selector, err)
	}

	out := make([]Element, 0, len(found))
	for _, el := range found {
		out = append(out, &rodElement{el: el, timeout: p.timeout})
	}
	return out, nil
}

func (p *rodPage) Eval(js string, arg interface{}) (string, error) {
	res, err := p.page.Timeout(p.timeout).Eval(js, arg)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// PressEnter dispatches the key events directly; rod's Keyboard is bound to
// the original page and would ignore a Timeout clone.
func (p *rodPage) PressEnter() error {
	page := p.page.Timeout(p.timeout)
	defer page.CancelTimeout()
	if err := input.Enter.Encode(proto.InputDispatchKeyEventTypeKeyDown, 0).Call(page); err != nil {
		return err
	}
	return input.Enter.Encode(proto.InputDispatchKeyEventTypeKeyUp, 0).Call(page)
}

func (p *rodPage) AcceptNextDialog(ctx context.Context) func() {
	dctx, cancel := context.WithCancel(ctx)
	page := p.page.Context(dctx)
	go page.EachEvent(func(e *proto.PageJavascriptDialogOpening) bool {
		p.log.Info("Accepting %s dialog: %s", e.Type, e.Message)
		if err := (proto.PageHandleJavaScriptDialog{Accept: true}).Call(p.page.Timeout(p.timeout)); err != nil {
			p.log.Warn("Failed to accept dialog: %v", err)
		}
		return true
	})()
	return cancel
}

func (p *rodPage) ExpectResponse(ctx context.Context, urlContains string) ResponseWaiter {
	status := make(chan int, 1)
	listenCtx, cancel := context.WithCancel(ctx)

	wait := p.page.Context(listenCtx).EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Response != nil && strings.Contains(e.Response.URL, urlContains) {
			status <- e.Response.Status
			return true
		}
		return false
	})
	go wait()

	return func(timeout time.Duration) (int, error) {
		defer cancel()
		select {
		case code := <-status:
			return code, nil
		case <-time.After(timeout):
			return 0, fmt.Errorf("no response matching %q within %s", urlContains, timeout)
		case <-listenCtx.Done():
			return 0, listenCtx.Err()
		}
	}
}

func (p *rodPage) Screenshot(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := p.page.Timeout(p.timeout).Screenshot(true, nil)
	if err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

func (p *rodPage) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.browser.Close()
	})
	return err
}

type rodElement struct {
	el      *rod.Element
	timeout time.Duration
}

func (e *rodElement) bounded() *rod.Element {
	return e.el.Timeout(e.timeout)
}

func (e *rodElement) Visible() (bool, error) {
	return e.bounded().Visible()
}

func (e *rodElement) Text() (string, error) {
	return e.bounded().Text()
}

func (e *rodElement) Attribute(name string) (string, bool, error) {
	v, err := e.bounded().Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *rodElement) Value() (string, error) {
	v, err := e.bounded().Property("value")
	if err != nil {
		return "", err
	}
	return v.Str(), nil
}

func (e *rodElement) Fill(value string) error {
	el := e.bounded()
	if _, err := el.Eval(`() => { this.value = '' }`); err != nil {
		return fmt.Errorf("failed to clear: %w", err)
	}
	if value == "" {
		return nil
	}
	return el.Input(value)
}

func (e *rodElement) Click() error {
	return e.bounded().Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Check() error {
	checked, err := e.bounded().Property("checked")
	if err == nil && checked.Bool() {
		return nil
	}
	return e.Click()
}

func (e *rodElement) SelectByValue(value string) error {
	sel := fmt.Sprintf(`[value="%s"]`, strings.ReplaceAll(value, `"`, `\"`))
	return e.bounded().Select([]string{sel}, true, rod.SelectorTypeCSSSector)
}

func (e *rodElement) SelectByLabel(label string) error {
	return e.bounded().Select([]string{label}, true, rod.SelectorTypeText)
}

func (e *rodElement) SetFiles(paths []string) error {
	return e.bounded().SetFiles(paths)
}

func (e *rodElement) Eval(fn string, arg interface{}) (string, error) {
	res, err := e.bounded().Eval(`function (arg) { return (`+fn+`)(this, arg) }`, arg)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}
