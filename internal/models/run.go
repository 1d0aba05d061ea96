package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunStatus is the lifecycle status of a backtest run.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCanceled  RunStatus = "canceled"
)

// DailyResult is one append-only ledger entry, closed at each day boundary.
// EndingCapital of day N equals StartingCapital of day N+1.
type DailyResult struct {
	Date            time.Time       `json:"date"`
	StartingCapital decimal.Decimal `json:"starting_capital"`
	EndingCapital   decimal.Decimal `json:"ending_capital"`
	DailyPnL        decimal.Decimal `json:"daily_pnl"`
	TradesOpened    int             `json:"trades_opened"`
	TradesClosed    int             `json:"trades_closed"`
	OpenPositions   int             `json:"open_positions"`
}

// BacktestRun is the root aggregate owning all trades and daily results of one
// simulation. Capital and metrics are derived, never independently mutated.
type BacktestRun struct {
	ID     string    `json:"run_id"`
	Symbol string    `json:"symbol"`
	From   time.Time `json:"from_date"`
	To     time.Time `json:"to_date"`

	InitialCapital   decimal.Decimal `json:"initial_capital"`
	LotSize          int             `json:"lot_size"`
	LotsToTrade      int             `json:"lots_to_trade"`
	Signals          []SignalType    `json:"signals_to_test"`
	UseHedging       bool            `json:"use_hedging"`
	HedgeOffset      float64         `json:"hedge_offset"`
	CommissionPerLot decimal.Decimal `json:"commission_per_lot"`
	SlippagePercent  float64         `json:"slippage_percent"`

	Status       RunStatus `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	StartedAt    time.Time `json:"started_at,omitempty"`
	CompletedAt  time.Time `json:"completed_at,omitempty"`

	Trades       []*Trade      `json:"trades"`
	DailyResults []DailyResult `json:"daily_results"`

	TotalTrades      int             `json:"total_trades"`
	WinningTrades    int             `json:"winning_trades"`
	LosingTrades     int             `json:"losing_trades"`
	WinRate          float64         `json:"win_rate"`
	FinalCapital     decimal.Decimal `json:"final_capital"`
	TotalPnL         decimal.Decimal `json:"total_pnl"`
	TotalReturnPct   float64         `json:"total_return_percent"`
	MaxDrawdown      decimal.Decimal `json:"max_drawdown"`
	MaxDrawdownPct   float64         `json:"max_drawdown_percent"`
}

// ComputeMetrics derives the run-level aggregates from Trades and
// DailyResults. It is idempotent: recomputing over unchanged inputs yields
// identical values.
func (r *BacktestRun) ComputeMetrics() {
	r.TotalTrades = len(r.Trades)
	r.WinningTrades = 0
	r.LosingTrades = 0
	closedPnL := decimal.Zero
	for _, t := range r.Trades {
		if !t.IsClosed() {
			continue
		}
		closedPnL = closedPnL.Add(t.TotalPnL)
		switch t.Outcome {
		case OutcomeWin:
			r.WinningTrades++
		case OutcomeLoss:
			r.LosingTrades++
		}
	}

	r.TotalPnL = closedPnL
	r.FinalCapital = r.InitialCapital.Add(closedPnL)
	r.WinRate = 0
	if r.TotalTrades > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades) * 100
	}
	r.TotalReturnPct = 0
	if r.InitialCapital.IsPositive() {
		ret, _ := r.TotalPnL.Div(r.InitialCapital).Mul(decimal.NewFromInt(100)).Float64()
		r.TotalReturnPct = ret
	}

	curve := make([]decimal.Decimal, 0, len(r.DailyResults)+1)
	curve = append(curve, r.InitialCapital)
	for _, d := range r.DailyResults {
		curve = append(curve, d.EndingCapital)
	}
	r.MaxDrawdown, r.MaxDrawdownPct = MaxDrawdown(curve)
}

// MaxDrawdown returns the largest peak-to-trough decline of the equity curve,
// in absolute terms and as a percentage of the peak.
func MaxDrawdown(curve []decimal.Decimal) (decimal.Decimal, float64) {
	maxDD := decimal.Zero
	maxDDPct := 0.0
	if len(curve) == 0 {
		return maxDD, maxDDPct
	}
	peak := curve[0]
	for _, v := range curve {
		if v.GreaterThan(peak) {
			peak = v
		}
		dd := peak.Sub(v)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
			if peak.IsPositive() {
				pct, _ := dd.Div(peak).Mul(decimal.NewFromInt(100)).Float64()
				maxDDPct = pct
			}
		}
	}
	return maxDD, maxDDPct
}
