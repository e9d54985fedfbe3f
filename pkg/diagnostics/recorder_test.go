package diagnostics

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logbook-automation/pkg/browser/browsertest"
	"github.com/logbook-automation/pkg/logger"
)

func TestRecorderNaming(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir, "run-1", logger.NewNop())
	r.now = func() time.Time { return time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC) }

	page := browsertest.NewPage()
	r.Attach(page)

	first := r.CaptureAttempt("Login", 1)
	final := r.CaptureFailed("Fill Form")

	assert.Equal(t, filepath.Join(dir, "run-1", "Login_attempt1_20250301_083000.000.png"), first)
	assert.Equal(t, filepath.Join(dir, "run-1", "Fill_Form_failed_20250301_083000.000.png"), final)
	assert.Equal(t, []string{first, final}, r.Paths())
	assert.FileExists(t, first)
}

func TestRecorderWithoutPage(t *testing.T) {
	r := NewRecorder(t.TempDir(), "run-2", logger.NewNop())
	assert.Empty(t, r.CaptureFailed("Init"))
	assert.Empty(t, r.Paths())
}

func TestRecorderScreenshotErrorIsNotRecorded(t *testing.T) {
	r := NewRecorder(t.TempDir(), "run-3", logger.NewNop())
	page := browsertest.NewPage()
	page.ScreenshotErr = errors.New("target crashed")
	r.Attach(page)

	assert.Empty(t, r.CaptureAttempt("Submit", 1))
	require.Empty(t, r.Paths())
}
