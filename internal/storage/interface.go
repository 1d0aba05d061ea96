// Package storage persists completed backtest runs as JSON documents, one
// file per run.
package storage

import (
	"errors"

	"niftybacktest/internal/models"
)

// ErrRunNotFound is returned when no run exists for the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Store persists and retrieves backtest run documents.
type Store interface {
	// SaveRun writes the run document, replacing any previous version.
	SaveRun(run *models.BacktestRun) error

	// GetRun loads the run with the given ID, or ErrRunNotFound.
	GetRun(id string) (*models.BacktestRun, error)

	// ListRuns returns summaries of all stored runs, newest first.
	ListRuns() ([]RunSummary, error)

	// DeleteRun removes the run with the given ID, or ErrRunNotFound.
	DeleteRun(id string) error
}

// RunSummary is the listing view of a stored run.
type RunSummary struct {
	ID           string           `json:"run_id"`
	Symbol       string           `json:"symbol"`
	Status       models.RunStatus `json:"status"`
	TotalTrades  int              `json:"total_trades"`
	WinRate      float64          `json:"win_rate"`
	FinalCapital string           `json:"final_capital"`
}
