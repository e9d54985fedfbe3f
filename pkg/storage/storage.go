package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/logbook-automation/pkg/config"
	"github.com/logbook-automation/pkg/logbook"
	"github.com/logbook-automation/pkg/logger"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type Storage struct {
	config *config.StorageConfig
	log    *logger.Logger
	mu     sync.RWMutex
	// txMu serialises load-modify-save sequences across workers.
	txMu sync.Mutex
	now  func() time.Time
}

// Record is one logbook entry and where it is in the export lifecycle.
type Record struct {
	Entry      logbook.Entry  `json:"entry"`
	Status     logbook.Status `json:"status"`
	Attempts   int            `json:"attempts"`
	Dispatched bool           `json:"dispatched"`
	LastError  string         `json:"last_error,omitempty"`
	Tentative  bool           `json:"tentative,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type Run struct {
	EntryID    string          `json:"entry_id"`
	Attempt    int             `json:"attempt"`
	Outcome    logbook.Outcome `json:"outcome"`
	FinishedAt time.Time       `json:"finished_at"`
}

type DailyStats struct {
	Date      string `json:"date"`
	Submitted int    `json:"submitted"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

var transitions = map[logbook.Status][]logbook.Status{
	logbook.StatusQueued:  {logbook.StatusRunning},
	logbook.StatusRunning: {logbook.StatusQueued, logbook.StatusSuccess, logbook.StatusFailed},
	logbook.StatusFailed:  {logbook.StatusQueued},
}

func canTransition(from, to logbook.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func New(cfg *config.StorageConfig) (*Storage, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &Storage{
		config: cfg,
		log:    logger.WithComponent("storage"),
		now:    time.Now,
	}, nil
}

func (s *Storage) filepath(filename string) string {
	return filepath.Join(s.config.DataDir, filename)
}

func (s *Storage) load(filename string, v interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.filepath(filename))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	return nil
}

// save writes through a temp file so a crash never leaves a truncated store.
func (s *Storage) save(filename string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	path := s.filepath(filename)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}

	return nil
}

func (s *Storage) LoadRecords() ([]Record, error) {
	var records []Record
	if err := s.load(s.config.EntriesFile, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func (s *Storage) SaveRecords(records []Record) error {
	return s.save(s.config.EntriesFile, records)
}

// AddRecord stores entry as queued. An entry that already exists is reset to
// queued unless it has succeeded.
func (s *Storage) AddRecord(entry logbook.Entry) (*Record, error) {
	if entry.ID == "" {
		return nil, fmt.Errorf("entry id is required")
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	records, err := s.LoadRecords()
	if err != nil {
		return nil, err
	}

	now := s.now()
	for i, existing := range records {
		if existing.Entry.ID != entry.ID {
			continue
		}
		if existing.Status == logbook.StatusSuccess {
			return nil, fmt.Errorf("%w: entry %s already submitted", ErrInvalidTransition, entry.ID)
		}
		records[i].Entry = entry
		records[i].Status = logbook.StatusQueued
		records[i].Dispatched = false
		records[i].Attempts = 0
		records[i].LastError = ""
		records[i].UpdatedAt = now
		rec := records[i]
		return &rec, s.SaveRecords(records)
	}

	rec := Record{
		Entry:     entry,
		Status:    logbook.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	records = append(records, rec)
	s.log.Debug("Stored entry %s for %s", entry.ID, entry.Date)
	return &rec, s.SaveRecords(records)
}

func (s *Storage) GetRecord(id string) (*Record, error) {
	records, err := s.LoadRecords()
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if rec.Entry.ID == id {
			return &rec, nil
		}
	}

	return nil, nil
}

// UpdateRecord applies update to the record under the store lock.
func (s *Storage) UpdateRecord(id string, update func(*Record) error) (*Record, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	records, err := s.LoadRecords()
	if err != nil {
		return nil, err
	}

	for i := range records {
		if records[i].Entry.ID != id {
			continue
		}
		if err := update(&records[i]); err != nil {
			return nil, err
		}
		records[i].UpdatedAt = s.now()
		rec := records[i]
		return &rec, s.SaveRecords(records)
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Transition moves a record to status, rejecting moves the lifecycle forbids.
func (s *Storage) Transition(id string, to logbook.Status, reason string) (*Record, error) {
	return s.UpdateRecord(id, func(r *Record) error {
		return s.apply(r, to, reason)
	})
}

// Requeue moves a record back to queued with its next job already handed to
// the job queue, so a sweep never sees it undispatched.
func (s *Storage) Requeue(id string, reason string) (*Record, error) {
	return s.UpdateRecord(id, func(r *Record) error {
		if err := s.apply(r, logbook.StatusQueued, reason); err != nil {
			return err
		}
		r.Dispatched = true
		return nil
	})
}

func (s *Storage) apply(r *Record, to logbook.Status, reason string) error {
	if !canTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s for %s", ErrInvalidTransition, r.Status, to, r.Entry.ID)
	}
	s.log.Debug("Entry %s: %s -> %s", r.Entry.ID, r.Status, to)
	r.Status = to
	switch to {
	case logbook.StatusRunning:
		r.Attempts++
	case logbook.StatusQueued:
		r.LastError = reason
		r.Dispatched = false
	case logbook.StatusFailed:
		r.LastError = reason
	case logbook.StatusSuccess:
		r.LastError = ""
	}
	return nil
}

func (s *Storage) MarkDispatched(id string) error {
	_, err := s.UpdateRecord(id, func(r *Record) error {
		r.Dispatched = true
		return nil
	})
	return err
}

// GetUndispatched lists queued records not yet handed to the job queue,
// oldest first.
func (s *Storage) GetUndispatched(limit int) ([]Record, error) {
	records, err := s.LoadRecords()
	if err != nil {
		return nil, err
	}

	var pending []Record
	for _, r := range records {
		if r.Status == logbook.StatusQueued && !r.Dispatched {
			pending = append(pending, r)
			if limit > 0 && len(pending) >= limit {
				break
			}
		}
	}

	return pending, nil
}

func (s *Storage) CountByStatus() (map[logbook.Status]int, error) {
	records, err := s.LoadRecords()
	if err != nil {
		return nil, err
	}

	counts := make(map[logbook.Status]int)
	for _, r := range records {
		counts[r.Status]++
	}
	return counts, nil
}

func (s *Storage) LoadRuns() ([]Run, error) {
	var runs []Run
	if err := s.load(s.config.RunsFile, &runs); err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []Run{}
	}
	return runs, nil
}

func (s *Storage) AddRun(run Run) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	runs, err := s.LoadRuns()
	if err != nil {
		return err
	}

	if run.FinishedAt.IsZero() {
		run.FinishedAt = s.now()
	}
	runs = append(runs, run)
	return s.save(s.config.RunsFile, runs)
}

func (s *Storage) RunsFor(entryID string) ([]Run, error) {
	runs, err := s.LoadRuns()
	if err != nil {
		return nil, err
	}

	var out []Run
	for _, r := range runs {
		if r.EntryID == entryID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Storage) today() string {
	return s.now().Format("2006-01-02")
}

func (s *Storage) GetTodayStats() (*DailyStats, error) {
	today := s.today()

	var allStats []DailyStats
	if err := s.load(s.config.StatsFile, &allStats); err != nil {
		return nil, err
	}

	for _, stat := range allStats {
		if stat.Date == today {
			return &stat, nil
		}
	}

	return &DailyStats{Date: today}, nil
}

func (s *Storage) UpdateTodayStats(update func(*DailyStats)) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	today := s.today()

	var allStats []DailyStats
	if err := s.load(s.config.StatsFile, &allStats); err != nil {
		return err
	}

	found := false
	for i, stat := range allStats {
		if stat.Date == today {
			update(&allStats[i])
			found = true
			break
		}
	}

	if !found {
		newStats := DailyStats{Date: today}
		update(&newStats)
		allStats = append(allStats, newStats)
	}

	return s.save(s.config.StatsFile, allStats)
}
