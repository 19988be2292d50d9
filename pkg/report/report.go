package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"igfollow/pkg/logger"
	"igfollow/pkg/reconcile"
)

// Report is the persisted form of a cycle
type Report struct {
	Version   int                   `json:"version"`
	Cycle     reconcile.CycleResult `json:"cycle"`
	NextRun   time.Time             `json:"next_run,omitempty"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Manager reads and writes the report of one account
type Manager struct {
	path   string
	logger logger.Logger
	now    func() time.Time
}

// NewManager creates a Manager storing reports under dir
func NewManager(dir, account string, log logger.Logger) (*Manager, error) {
	reports := filepath.Join(dir, "reports")
	if err := os.MkdirAll(reports, 0755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{
		path:   filepath.Join(reports, account+".last_run.json"),
		logger: log,
		now:    time.Now,
	}, nil
}

// Path is the report file location
func (m *Manager) Path() string { return m.path }

// Save replaces the stored report with the given cycle
func (m *Manager) Save(cycle reconcile.CycleResult, nextRun time.Time) error {
	r := Report{Version: 1, Cycle: cycle, NextRun: nextRun, UpdatedAt: m.now()}

	tmp := m.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create temporary report: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync report: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close report: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace report: %w", err)
	}

	m.logger.DebugWithFields("Run report saved", map[string]interface{}{
		"run_id": cycle.RunID,
		"path":   m.path,
	})
	return nil
}

// Load returns the stored report, or nil when none was written yet
func (m *Manager) Load() (*Report, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}

// Delete removes the stored report
func (m *Manager) Delete() error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}
