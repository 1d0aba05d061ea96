package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"niftybacktest/internal/models"
)

const reportTimeLayout = "2006-01-02T15:04:05Z07:00"

// WriteTradesCSV exports a run's trade log as CSV for spreadsheet analysis.
func WriteTradesCSV(run *models.BacktestRun, path string) error {
	f, err := os.Create(path) // #nosec G304 -- path is a user-provided report destination
	if err != nil {
		return fmt.Errorf("creating trade report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	_ = w.Write([]string{
		"trade_id", "signal", "direction", "week_start", "trigger_time",
		"entry_time", "exit_time", "index_at_entry", "index_at_exit",
		"stop_loss", "outcome", "exit_reason", "total_pnl",
	})
	for _, t := range run.Trades {
		_ = w.Write([]string{
			t.ID, string(t.Signal), string(t.Direction),
			t.WeekStart.Format("2006-01-02"),
			t.TriggerTime.Format(reportTimeLayout),
			formatTime(t.EntryTime), formatTime(t.ExitTime),
			formatF(t.IndexAtEntry), formatF(t.IndexAtExit),
			formatF(t.StopLoss), string(t.Outcome), t.ExitReason,
			t.TotalPnL.String(),
		})
	}
	w.Flush()
	return w.Error()
}

// WriteDailyCSV exports a run's daily capital ledger as CSV.
func WriteDailyCSV(run *models.BacktestRun, path string) error {
	f, err := os.Create(path) // #nosec G304 -- path is a user-provided report destination
	if err != nil {
		return fmt.Errorf("creating daily report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	_ = w.Write([]string{
		"date", "starting_capital", "ending_capital", "daily_pnl",
		"trades_opened", "trades_closed", "open_positions",
	})
	for _, d := range run.DailyResults {
		_ = w.Write([]string{
			d.Date.Format("2006-01-02"),
			d.StartingCapital.String(), d.EndingCapital.String(), d.DailyPnL.String(),
			strconv.Itoa(d.TradesOpened), strconv.Itoa(d.TradesClosed), strconv.Itoa(d.OpenPositions),
		})
	}
	w.Flush()
	return w.Error()
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(reportTimeLayout)
}
