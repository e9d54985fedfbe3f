package portal

import (
	"context"
	"fmt"
)

func (o *Orchestrator) submit(ctx context.Context, s *session) error {
	release := s.page.AcceptNextDialog(ctx)
	defer release()
	waitResponse := s.page.ExpectResponse(ctx, o.config.Portal.ActivityEndpoint)

	if err := o.clickOrEnter(ctx, s, "submit", o.catalog.Submit); err != nil {
		// release the listener
		_, _ = waitResponse(0)
		if o.heuristics.NavigatedDuringSubmit(err) {
			s.log.Info("Page navigated during submit (%v), treating as submitted", err)
			s.navigated = true
			return nil
		}
		return fmt.Errorf("failed to trigger submit: %w", err)
	}

	if status, err := waitResponse(o.config.Automation.ResponseWait); err != nil {
		s.log.Info("No %s response observed: %v", o.config.Portal.ActivityEndpoint, err)
	} else {
		s.log.Info("Portal responded with HTTP %d", status)
	}

	if err := o.timing.SleepSettle(ctx); err != nil {
		return err
	}

	if text := visibleText(s.page, o.catalog.ValidationError); text != "" {
		return fmt.Errorf("portal rejected the form: %s", text)
	}

	if _, sel, open := s.resolver.Exists(s.page, o.catalog.Modal); open {
		s.log.Warn("Modal %s still visible after submit, re-checking for errors", sel)
		if err := o.timing.SleepSettle(ctx); err != nil {
			return err
		}
		if text := visibleText(s.page, o.catalog.ValidationError); text != "" {
			return fmt.Errorf("portal rejected the form: %s", text)
		}
		if !o.heuristics.LingeringModal() {
			return fmt.Errorf("form modal %s still open after submit", sel)
		}
		s.warn("modal still open after submit without errors, assuming tentative success")
		s.tentative = true
	}

	return nil
}

// verifySuccess looks for success text, then for a URL that has left the
// login and form pages. A navigation seen during submit is already proof.
func (o *Orchestrator) verifySuccess(ctx context.Context, s *session) error {
	if s.navigated {
		s.log.Info("Submission confirmed by navigation")
		return nil
	}

	found, err := o.timing.Poll(ctx, o.config.Automation.ResolveTimeout, o.interval, func() bool {
		_, _, ok := s.resolver.Exists(s.page, o.catalog.SuccessText)
		return ok
	})
	if err != nil {
		return err
	}
	if found {
		s.log.Info("Success message visible: %s", visibleText(s.page, o.catalog.SuccessText))
		return nil
	}

	currentURL := s.page.URL()
	if currentURL != "" &&
		!containsAny(currentURL, o.config.Portal.LoginMarkers) &&
		!containsAny(currentURL, o.config.Portal.FormMarkers) {
		s.log.Info("No success text, but %s is past the login and form pages", currentURL)
		return nil
	}

	return fmt.Errorf("no success signal (url %s)", currentURL)
}
