package portal

import (
	"context"
	"fmt"
	"strings"
)

// locateActivityPage accepts a page only when the page indicator and a
// visible add control are both present.
func (o *Orchestrator) locateActivityPage(ctx context.Context, s *session) error {
	for _, url := range o.config.ActivityURLs() {
		s.log.Info("Trying activity page %s", url)
		if err := s.page.Navigate(ctx, url); err != nil {
			s.log.Warn("Navigation to %s failed: %v", url, err)
			continue
		}
		if err := o.timing.SleepPageLoad(ctx); err != nil {
			return err
		}
		if o.onActivityPage(ctx, s) {
			s.log.Info("Activity page found at %s", url)
			return nil
		}
	}

	s.log.Info("No candidate URL worked, trying navigation menu")
	for _, sel := range o.catalog.MenuEntry {
		if err := s.page.Navigate(ctx, o.config.Portal.BaseURL); err != nil {
			return fmt.Errorf("failed to return to portal home: %w", err)
		}
		if err := o.timing.SleepPageLoad(ctx); err != nil {
			return err
		}

		el, _, ok := s.resolver.Exists(s.page, []string{sel})
		if !ok {
			continue
		}
		s.log.Info("Clicking menu entry %s", sel)
		if err := el.Click(); err != nil {
			s.log.Warn("Menu entry %s click failed: %v", sel, err)
			continue
		}
		if err := o.timing.SleepPageLoad(ctx); err != nil {
			return err
		}
		if o.onActivityPage(ctx, s) {
			s.log.Info("Activity page found via menu at %s", s.page.URL())
			return nil
		}
	}

	return fmt.Errorf("activity page with a visible add control not found (%d candidate URLs, %d menu entries)",
		len(o.config.Portal.ActivityPaths), len(o.catalog.MenuEntry))
}

func (o *Orchestrator) onActivityPage(ctx context.Context, s *session) bool {
	timeout := o.config.Automation.ResolveTimeout

	indicator := s.resolver.Resolve(ctx, s.page, o.catalog.PageIndicator, timeout, true)
	if !indicator.Found() {
		s.log.Debug("Page indicator missing (%s)", indicator.Outcome)
		return false
	}

	add := s.resolver.Resolve(ctx, s.page, o.catalog.AddButton, timeout, true)
	if !add.Found() {
		s.log.Warn("Page indicator %s present but add control is %s", indicator.Selector, add.Outcome)
		return false
	}
	return true
}

func (o *Orchestrator) openAddForm(ctx context.Context, s *session) error {
	timeout := o.config.Automation.ResolveTimeout

	add := s.resolver.Resolve(ctx, s.page, o.catalog.AddButton, timeout, true)
	if !add.Found() {
		return fmt.Errorf("add control not found (%s)", add.Outcome)
	}

	s.log.Info("Opening add form via %s", add.Selector)
	if err := add.Element.Click(); err != nil {
		return fmt.Errorf("failed to click add control: %w", err)
	}
	if err := o.timing.SleepAction(ctx); err != nil {
		return err
	}

	form := s.resolver.Resolve(ctx, s.page, o.catalog.FormIndicator, timeout, true)
	if !form.Found() {
		return fmt.Errorf("add form did not open: none of [%s] appeared", strings.Join(o.catalog.FormIndicator, ", "))
	}
	s.log.Info("Add form open (%s)", form.Selector)
	return nil
}
