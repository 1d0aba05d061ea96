package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func closedTrade(pnl decimal.Decimal, outcome Outcome) *Trade {
	return &Trade{
		ID:       "t",
		State:    StateClosed,
		Outcome:  outcome,
		TotalPnL: pnl,
	}
}

func TestComputeMetrics(t *testing.T) {
	run := &BacktestRun{
		InitialCapital: d(500000),
		Trades: []*Trade{
			closedTrade(d(30000), OutcomeWin),
			closedTrade(d(-10000), OutcomeLoss),
			closedTrade(d(0), OutcomeExpired),
			{ID: "open", State: StateOpen, Outcome: OutcomeOpen, TotalPnL: d(999)}, // ignored
		},
		DailyResults: []DailyResult{
			{EndingCapital: d(530000)},
			{EndingCapital: d(520000)},
		},
	}

	run.ComputeMetrics()

	if run.TotalTrades != 4 {
		t.Errorf("total trades = %d, want 4", run.TotalTrades)
	}
	if run.WinningTrades != 1 || run.LosingTrades != 1 {
		t.Errorf("wins/losses = %d/%d, want 1/1", run.WinningTrades, run.LosingTrades)
	}
	if !run.TotalPnL.Equal(d(20000)) {
		t.Errorf("total pnl = %s, want 20000", run.TotalPnL)
	}
	if !run.FinalCapital.Equal(d(520000)) {
		t.Errorf("final capital = %s, want 520000", run.FinalCapital)
	}
	if run.WinRate != 25 {
		t.Errorf("win rate = %v, want 25", run.WinRate)
	}
	if run.TotalReturnPct != 4 {
		t.Errorf("return = %v%%, want 4", run.TotalReturnPct)
	}
	// Peak 530000 to trough 520000.
	if !run.MaxDrawdown.Equal(d(10000)) {
		t.Errorf("max drawdown = %s, want 10000", run.MaxDrawdown)
	}
}

func TestComputeMetricsIdempotent(t *testing.T) {
	run := &BacktestRun{
		InitialCapital: d(500000),
		Trades:         []*Trade{closedTrade(d(12345), OutcomeWin)},
		DailyResults:   []DailyResult{{EndingCapital: d(512345)}},
	}
	run.ComputeMetrics()
	first := *run
	run.ComputeMetrics()

	if run.TotalTrades != first.TotalTrades ||
		!run.FinalCapital.Equal(first.FinalCapital) ||
		run.WinRate != first.WinRate ||
		!run.MaxDrawdown.Equal(first.MaxDrawdown) {
		t.Error("recomputing metrics over unchanged inputs must be a no-op")
	}
}

func TestMaxDrawdown(t *testing.T) {
	curve := func(vals ...float64) []decimal.Decimal {
		out := make([]decimal.Decimal, len(vals))
		for i, v := range vals {
			out[i] = d(v)
		}
		return out
	}

	tests := []struct {
		name    string
		curve   []decimal.Decimal
		wantAbs float64
		wantPct float64
	}{
		{"empty", nil, 0, 0},
		{"monotonic up", curve(100, 110, 120), 0, 0},
		{"single dip", curve(100, 120, 90, 130), 30, 25},
		{"deepest later", curve(100, 80, 150, 90), 60, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			abs, pct := MaxDrawdown(tt.curve)
			if !abs.Equal(d(tt.wantAbs)) {
				t.Errorf("abs = %s, want %v", abs, tt.wantAbs)
			}
			if pct != tt.wantPct {
				t.Errorf("pct = %v, want %v", pct, tt.wantPct)
			}
		})
	}
}

func TestDailyLedgerContinuity(t *testing.T) {
	start := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	results := []DailyResult{
		{Date: start, StartingCapital: d(500000), DailyPnL: d(1000), EndingCapital: d(501000)},
		{Date: start.AddDate(0, 0, 1), StartingCapital: d(501000), DailyPnL: d(-500), EndingCapital: d(500500)},
	}
	for i := 1; i < len(results); i++ {
		if !results[i].StartingCapital.Equal(results[i-1].EndingCapital) {
			t.Errorf("day %d starting capital %s != previous ending %s",
				i, results[i].StartingCapital, results[i-1].EndingCapital)
		}
	}
}
