package logbook

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

var ErrMissingField = errors.New("missing required field")

type ActivityKind string

const (
	KindMentoring ActivityKind = "Mentoring"
	KindExam      ActivityKind = "Exam"
	KindActivity  ActivityKind = "Activity"
)

type ParticipationMode string

const (
	ModeHybrid  ParticipationMode = "Hybrid"
	ModeOffline ParticipationMode = "Offline"
	ModeOnline  ParticipationMode = "Online"
)

// Entry is one day's activity record as typed by the student. Kind and Mode
// are kept as raw strings because callers pass the portal's own labels too.
type Entry struct {
	ID                string `yaml:"id" json:"id"`
	Date              string `yaml:"date" json:"date"`
	StartTime         string `yaml:"start_time" json:"start_time"`
	EndTime           string `yaml:"end_time" json:"end_time"`
	ActivityKind      string `yaml:"activity_kind" json:"activity_kind"`
	AdvisorName       string `yaml:"advisor_name" json:"advisor_name,omitempty"`
	ParticipationMode string `yaml:"participation_mode" json:"participation_mode"`
	Location          string `yaml:"location" json:"location"`
	Title             string `yaml:"title" json:"title,omitempty"`
	Description       string `yaml:"description" json:"description"`
	EvidenceFilePath  string `yaml:"evidence_file_path" json:"evidence_file_path,omitempty"`
}

// Credentials are held in memory for a single run and never serialized.
type Credentials struct {
	Username string `json:"-" yaml:"-"`
	Password string `json:"-" yaml:"-"`
}

func (c Credentials) Valid() bool {
	return c.Username != "" && c.Password != ""
}

func (c Credentials) String() string {
	return "Credentials{<redacted>}"
}

// Validate checks everything that can be checked without a browser.
func (e *Entry) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"date", e.Date},
		{"start_time", e.StartTime},
		{"end_time", e.EndTime},
		{"description", e.Description},
		{"location", e.Location},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, r.name)
		}
	}

	if _, err := time.Parse("2006-01-02", e.Date); err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", e.Date)
	}

	start, err := time.Parse("15:04", e.StartTime)
	if err != nil {
		return fmt.Errorf("invalid start_time %q: expected HH:MM", e.StartTime)
	}
	end, err := time.Parse("15:04", e.EndTime)
	if err != nil {
		return fmt.Errorf("invalid end_time %q: expected HH:MM", e.EndTime)
	}
	if !end.After(start) {
		return fmt.Errorf("end_time %s must be after start_time %s", e.EndTime, e.StartTime)
	}

	if e.EvidenceFilePath != "" {
		if err := checkReadable(e.EvidenceFilePath); err != nil {
			return fmt.Errorf("evidence file: %w", err)
		}
	}

	return nil
}

func checkReadable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

// FormatPortalDate turns YYYY-MM-DD into DD/MM/YYYY. Anything that does not
// split into exactly three parts on '-' is returned unchanged.
func FormatPortalDate(iso string) string {
	parts := strings.Split(iso, "-")
	if len(parts) != 3 {
		return iso
	}
	return parts[2] + "/" + parts[1] + "/" + parts[0]
}
