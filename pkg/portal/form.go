package portal

import (
	"context"
	"errors"
	"fmt"

	"github.com/logbook-automation/pkg/browser"
	"github.com/logbook-automation/pkg/logbook"
)

// FormValues is an entry translated into what the portal form expects.
type FormValues struct {
	Date              string
	StartTime         string
	EndTime           string
	ActivityCode      string
	ActivityLabel     string
	ParticipationCode string
	Location          string
	Description       string
	EvidencePath      string
}

func MapEntry(e *logbook.Entry) FormValues {
	return FormValues{
		Date:              logbook.FormatPortalDate(e.Date),
		StartTime:         e.StartTime,
		EndTime:           e.EndTime,
		ActivityCode:      logbook.ActivityCode(e.ActivityKind),
		ActivityLabel:     e.ActivityKind,
		ParticipationCode: logbook.ParticipationCode(e.ParticipationMode),
		Location:          e.Location,
		Description:       e.Description,
		EvidencePath:      e.EvidenceFilePath,
	}
}

type requiredField struct {
	name      string
	selectors []string
	value     string
}

func (o *Orchestrator) fillForm(ctx context.Context, s *session) error {
	v := s.values
	cat := o.catalog
	timeout := o.config.Automation.ResolveTimeout

	// Warnings are kept only for the attempt that completes the form.
	var warnings []string
	warn := func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		s.log.Warn("%s", msg)
		warnings = append(warnings, msg)
	}

	if modal := s.resolver.Resolve(ctx, s.page, cat.Modal, timeout, true); modal.Found() {
		s.log.Debug("Form modal visible (%s)", modal.Selector)
	} else {
		s.log.Info("Form modal wrapper not detected (%s), continuing", modal.Outcome)
	}

	date := s.fields.FillText(ctx, s.page, "date", cat.Date, v.Date)
	if !date.OK() {
		return fmt.Errorf("required field date: %s", date.Reason)
	}
	o.updateDateWidget(s, date.Selector, v.Date)

	required := []requiredField{
		{"start_time", cat.StartTime, v.StartTime},
		{"end_time", cat.EndTime, v.EndTime},
		{"location", cat.Location, v.Location},
		{"description", cat.Description, v.Description},
	}
	for _, f := range required {
		if res := s.fields.FillText(ctx, s.page, f.name, f.selectors, f.value); !res.OK() {
			return fmt.Errorf("required field %s: %s", f.name, res.Reason)
		}
		if err := o.timing.SleepAction(ctx); err != nil {
			return err
		}
	}

	if err := o.selectActivityKind(ctx, s, v); err != nil {
		warn("activity kind not selected: %v", err)
	}

	if res := s.fields.Check(ctx, s.page, "advisor", cat.Advisor); !res.OK() {
		warn("advisor checkbox: %s", res.Reason)
	}

	if res := s.fields.CheckOption(ctx, s.page, "participation_mode", cat.ParticipationMode, v.ParticipationCode); !res.OK() {
		warn("participation mode: %s", res.Reason)
	}

	if v.EvidencePath != "" {
		res := s.fields.UploadFile(ctx, s.page, "evidence", cat.Evidence, v.EvidencePath)
		if !res.OK() {
			if o.config.Automation.RequireEvidence {
				return fmt.Errorf("evidence upload not confirmed: %s", res.Reason)
			}
			warn("evidence upload not confirmed, submitting without attachment: %s", res.Reason)
		}
	}

	s.warnings = append(s.warnings, warnings...)
	return nil
}

// updateDateWidget tells a third-party picker about the value, since a plain
// assignment does not always register with it.
func (o *Orchestrator) updateDateWidget(s *session, selector, value string) {
	el, err := s.page.Element(selector)
	if err != nil {
		return
	}
	widget, err := el.Eval(browser.ScriptDateWidgetUpdate, value)
	if err != nil {
		s.log.Debug("Date widget hook failed: %v", err)
		return
	}
	if widget != "none" {
		s.log.Info("Date pushed through %s", widget)
	}
}

// selectActivityKind prefers the component library path so dependent UI
// updates fire, then falls back to plain value and label matching.
func (o *Orchestrator) selectActivityKind(ctx context.Context, s *session, v FormValues) error {
	res := s.resolver.Resolve(ctx, s.page, o.catalog.ActivityKind, o.config.Automation.ResolveTimeout, false)
	if !res.Found() {
		return fmt.Errorf("dropdown not found (%s)", res.Outcome)
	}

	path, err := res.Element.Eval(browser.ScriptSelectComponent, v.ActivityCode)
	if err == nil && (path == "select2" || path == "dom") {
		s.log.Info("Activity kind %s selected via %s", v.ActivityCode, path)
		return nil
	}
	s.log.Debug("Component select returned %q (%v), falling back", path, err)

	fallback := s.fields.SelectOption(ctx, s.page, "activity_kind", o.catalog.ActivityKind, v.ActivityCode, v.ActivityLabel)
	if !fallback.OK() {
		return errors.New(fallback.Reason)
	}
	return nil
}
