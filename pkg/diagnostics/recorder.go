package diagnostics

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/logbook-automation/pkg/browser"
	"github.com/logbook-automation/pkg/logger"
)

const stampLayout = "20060102_150405.000"

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Recorder writes screenshots for one run under <dir>/<runID>/ and keeps the
// paths in capture order.
type Recorder struct {
	dir   string
	runID string
	log   *logger.Logger
	now   func() time.Time

	mu    sync.Mutex
	page  browser.Page
	paths []string
}

func NewRecorder(dir, runID string, log *logger.Logger) *Recorder {
	if log == nil {
		log = logger.WithComponent("diagnostics")
	}
	return &Recorder{dir: dir, runID: runID, log: log, now: time.Now}
}

// Attach sets the page subsequent captures are taken from.
func (r *Recorder) Attach(page browser.Page) {
	r.mu.Lock()
	r.page = page
	r.mu.Unlock()
}

func (r *Recorder) Dir() string {
	return filepath.Join(r.dir, r.runID)
}

// CaptureAttempt records a failed attempt that will be retried.
func (r *Recorder) CaptureAttempt(operation string, attempt int) string {
	return r.capture(fmt.Sprintf("%s_attempt%d", sanitize(operation), attempt))
}

// CaptureFailed records the final failure of an operation.
func (r *Recorder) CaptureFailed(operation string) string {
	return r.capture(sanitize(operation) + "_failed")
}

func (r *Recorder) capture(prefix string) string {
	r.mu.Lock()
	page := r.page
	r.mu.Unlock()

	if page == nil {
		r.log.Debug("No page attached, skipping screenshot %s", prefix)
		return ""
	}

	path := filepath.Join(r.Dir(), fmt.Sprintf("%s_%s.png", prefix, r.now().Format(stampLayout)))
	if err := page.Screenshot(path); err != nil {
		r.log.Warn("Failed to capture screenshot %s: %v", path, err)
		return ""
	}

	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()

	r.log.Info("Screenshot saved: %s", path)
	return path
}

func (r *Recorder) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func sanitize(name string) string {
	s := unsafeName.ReplaceAllString(name, "_")
	if s == "" {
		return "operation"
	}
	return s
}
