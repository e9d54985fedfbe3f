package logbook

import "time"

type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Outcome is produced once at the end of a run.
type Outcome struct {
	RunID         string        `json:"run_id"`
	Succeeded     bool          `json:"succeeded"`
	Tentative     bool          `json:"tentative,omitempty"`
	FailedState   string        `json:"failed_state,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
	// Permanent means repeating the run with the same input cannot succeed.
	Permanent     bool          `json:"permanent,omitempty"`
	Warnings      []string      `json:"warnings,omitempty"`
	Screenshots   []string      `json:"screenshots,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
}
