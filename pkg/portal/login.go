package portal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/logbook-automation/pkg/browser"
)

const loginPollInterval = 500 * time.Millisecond

type loginResult int

const (
	loginPending loginResult = iota
	loginSucceeded
	loginRejected
)

func (o *Orchestrator) login(ctx context.Context, s *session) error {
	s.log.Info("Navigating to login page...")
	if err := s.page.Navigate(ctx, o.config.LoginURL()); err != nil {
		return err
	}
	if err := o.timing.SleepPageLoad(ctx); err != nil {
		return err
	}

	s.log.Info("Entering username...")
	if res := s.fields.FillText(ctx, s.page, "username", o.catalog.LoginUsername, s.creds.Username); !res.OK() {
		return fmt.Errorf("username field: %s", res.Reason)
	}

	if err := o.timing.SleepAction(ctx); err != nil {
		return err
	}

	s.log.Info("Entering password...")
	if res := s.fields.FillSecret(ctx, s.page, "password", o.catalog.LoginPassword, s.creds.Password); !res.OK() {
		return fmt.Errorf("password field: %s", res.Reason)
	}

	if err := o.timing.SleepAction(ctx); err != nil {
		return err
	}

	if err := o.clickOrEnter(ctx, s, "login submit", o.catalog.LoginSubmit); err != nil && !browser.IsContextDestroyed(err) {
		return err
	}

	if err := o.timing.SleepSettle(ctx); err != nil {
		return err
	}

	result, detail, err := o.waitForLoginResult(ctx, s)
	if err != nil {
		return err
	}
	switch result {
	case loginRejected:
		return backoff.Permanent(fmt.Errorf("login rejected: %s", detail))
	case loginSucceeded:
		s.log.Info("Login successful (%s)", detail)
		return nil
	default:
		return fmt.Errorf("login outcome unclear after %s", o.config.Automation.LoginWait)
	}
}

// clickOrEnter clicks the first visible control, falling back to Enter when
// none resolves.
func (o *Orchestrator) clickOrEnter(ctx context.Context, s *session, name string, sels []string) error {
	res := s.resolver.Resolve(ctx, s.page, sels, o.config.Automation.ResolveTimeout, true)
	if !res.Found() {
		s.log.Warn("No %s control resolved (%s), pressing Enter", name, res.Outcome)
		return s.page.PressEnter()
	}
	s.log.Info("Clicking %s via %s", name, res.Selector)
	return res.Element.Click()
}

// waitForLoginResult checks error text before success signals on every tick.
func (o *Orchestrator) waitForLoginResult(ctx context.Context, s *session) (loginResult, string, error) {
	result, detail := o.classifyLogin(s)
	if result != loginPending {
		return result, detail, nil
	}

	timeout := time.NewTimer(o.config.Automation.LoginWait)
	defer timeout.Stop()
	ticker := time.NewTicker(loginPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return loginPending, "", ctx.Err()
		case <-timeout.C:
			result, detail = o.classifyLogin(s)
			return result, detail, nil
		case <-ticker.C:
			if result, detail = o.classifyLogin(s); result != loginPending {
				return result, detail, nil
			}
		}
	}
}

func (o *Orchestrator) classifyLogin(s *session) (loginResult, string) {
	if text := visibleText(s.page, o.catalog.LoginError); text != "" {
		return loginRejected, text
	}

	currentURL := s.page.URL()
	if currentURL != "" && !containsAny(currentURL, o.config.Portal.LoginMarkers) {
		return loginSucceeded, "left login page: " + currentURL
	}

	if _, sel, ok := s.resolver.Exists(s.page, o.catalog.LoggedIn); ok {
		return loginSucceeded, "found " + sel
	}

	return loginPending, ""
}

// visibleText joins the distinct text of every visible node matched by sels.
func visibleText(page browser.Page, sels []string) string {
	seen := make(map[string]bool)
	var parts []string
	for _, sel := range sels {
		els, err := page.Elements(sel)
		if err != nil {
			continue
		}
		for _, el := range els {
			if visible, err := el.Visible(); err != nil || !visible {
				continue
			}
			text, err := el.Text()
			text = strings.Join(strings.Fields(text), " ")
			if err != nil || text == "" || seen[text] {
				continue
			}
			seen[text] = true
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "; ")
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(s, m) {
			return true
		}
	}
	return false
}
