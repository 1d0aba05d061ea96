package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"niftybacktest/internal/models"
)

// Compile-time interface check.
var _ Store = (*JSONStore)(nil)

// JSONStore keeps one JSON file per run under a directory. Writes go to a
// temp file followed by an atomic rename, so a crash mid-write never leaves a
// truncated document behind.
type JSONStore struct {
	mu  sync.RWMutex
	dir string
}

// NewJSONStore creates the directory if needed and returns a store over it.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage dir: %w", err)
	}
	return &JSONStore{dir: dir}, nil
}

func (s *JSONStore) runPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// SaveRun writes the run document, replacing any previous version.
func (s *JSONStore) SaveRun(run *models.BacktestRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run %s: %w", run.ID, err)
	}

	path := s.runPath(run.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing run %s: %w", run.ID, err)
	}
	return os.Rename(tmp, path)
}

// GetRun loads the run with the given ID.
func (s *JSONStore) GetRun(id string) (*models.BacktestRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.runPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("reading run %s: %w", id, err)
	}
	var run models.BacktestRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parsing run %s: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns summaries of all stored runs, newest first.
func (s *JSONStore) ListRuns() ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing storage dir: %w", err)
	}

	var runs []*models.BacktestRun
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		var run models.BacktestRun
		if err := json.Unmarshal(data, &run); err != nil {
			continue // skip foreign files
		}
		runs = append(runs, &run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	out := make([]RunSummary, 0, len(runs))
	for _, r := range runs {
		out = append(out, RunSummary{
			ID:           r.ID,
			Symbol:       r.Symbol,
			Status:       r.Status,
			TotalTrades:  r.TotalTrades,
			WinRate:      r.WinRate,
			FinalCapital: r.FinalCapital.String(),
		})
	}
	return out, nil
}

// DeleteRun removes the run with the given ID.
func (s *JSONStore) DeleteRun(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.runPath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrRunNotFound
		}
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	return nil
}
