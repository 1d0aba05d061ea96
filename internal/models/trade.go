package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SignalType identifies one rule of the fixed S1..S8 catalog.
type SignalType string

const (
	SignalS1 SignalType = "S1" // Bear trap (bullish)
	SignalS2 SignalType = "S2" // Support hold (bullish)
	SignalS3 SignalType = "S3" // Resistance hold (bearish)
	SignalS4 SignalType = "S4" // Bias failure bull (bullish)
	SignalS5 SignalType = "S5" // Bias failure bear (bearish)
	SignalS6 SignalType = "S6" // Weakness confirmed (bearish)
	SignalS7 SignalType = "S7" // Breakout confirmed (bullish)
	SignalS8 SignalType = "S8" // Breakdown confirmed (bearish)
)

// AllSignals lists the catalog in evaluation priority order.
var AllSignals = []SignalType{
	SignalS1, SignalS2, SignalS3, SignalS4,
	SignalS5, SignalS6, SignalS7, SignalS8,
}

// Valid returns true if s is one of the catalog signals.
func (s SignalType) Valid() bool {
	for _, k := range AllSignals {
		if s == k {
			return true
		}
	}
	return false
}

// Direction is the implied trade direction of a triggered signal.
type Direction string

const (
	DirectionBullish Direction = "bullish"
	DirectionBearish Direction = "bearish"
)

// Direction returns the fixed direction the signal implies.
func (s SignalType) Direction() Direction {
	switch s {
	case SignalS1, SignalS2, SignalS4, SignalS7:
		return DirectionBullish
	default:
		return DirectionBearish
	}
}

// OptionType is the option leg kind, NSE convention (CE call, PE put).
type OptionType string

const (
	OptionCall OptionType = "CE"
	OptionPut  OptionType = "PE"
)

// OptionTypeFor returns the option type sold for a direction: bullish signals
// sell puts, bearish signals sell calls.
func OptionTypeFor(d Direction) OptionType {
	if d == DirectionBullish {
		return OptionPut
	}
	return OptionCall
}

// IntrinsicValue returns the option's settlement value at the given spot.
func (o OptionType) IntrinsicValue(spot, strike float64) float64 {
	switch o {
	case OptionCall:
		if spot > strike {
			return spot - strike
		}
	case OptionPut:
		if strike > spot {
			return strike - spot
		}
	}
	return 0
}

// PositionType distinguishes the short main leg from the long hedge leg.
type PositionType string

const (
	PositionMain  PositionType = "main"
	PositionHedge PositionType = "hedge"
)

// Outcome is the terminal classification of a trade.
type Outcome string

const (
	OutcomeOpen    Outcome = "open"
	OutcomeWin     Outcome = "win"
	OutcomeLoss    Outcome = "loss"
	OutcomeExpired Outcome = "expired"
)

// SignalTrigger is the ephemeral result of a matched signal rule. It is
// consumed immediately by the trade state machine or discarded when a trade
// for that signal/week already exists.
type SignalTrigger struct {
	Signal       SignalType `json:"signal"`
	Direction    Direction  `json:"direction"`
	TriggerTime  time.Time  `json:"trigger_time"`
	TriggerPrice float64    `json:"trigger_price"`
	CandleIndex  int        `json:"candle_index"`
}

// Position is one option leg of a trade. Quantity is signed in units
// (short = negative). Monetary fields are decimal so the ledger is exact.
type Position struct {
	ID         string          `json:"id"`
	TradeID    string          `json:"trade_id"`
	Type       PositionType    `json:"position_type"`
	OptionType OptionType      `json:"option_type"`
	Strike     float64         `json:"strike_price"`
	Expiry     time.Time       `json:"expiry_date"`
	EntryTime  time.Time       `json:"entry_time"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	Quantity   int             `json:"quantity"`
	ExitTime   time.Time       `json:"exit_time,omitempty"`
	ExitPrice  decimal.Decimal `json:"exit_price"`
	GrossPnL   decimal.Decimal `json:"gross_pnl"`
	Commission decimal.Decimal `json:"commission"`
	NetPnL     decimal.Decimal `json:"net_pnl"`
}

// IsShort reports whether the leg is a sold option.
func (p *Position) IsShort() bool { return p.Quantity < 0 }

// Lots returns the number of lots the leg spans.
func (p *Position) Lots(lotSize int) int {
	if lotSize <= 0 {
		return 0
	}
	q := p.Quantity
	if q < 0 {
		q = -q
	}
	return q / lotSize
}

// Close settles the leg at exitPrice and computes gross, commission and net
// P&L. Selling receives premium, so a price decline is profit on short legs.
// Commission is charged per lot at entry and again at exit.
func (p *Position) Close(exitTime time.Time, exitPrice decimal.Decimal, lotSize int, commissionPerLot decimal.Decimal) {
	p.ExitTime = exitTime
	p.ExitPrice = exitPrice

	qty := decimal.NewFromInt(int64(p.Quantity))
	if p.IsShort() {
		p.GrossPnL = p.EntryPrice.Sub(exitPrice).Mul(qty.Neg())
	} else {
		p.GrossPnL = exitPrice.Sub(p.EntryPrice).Mul(qty)
	}
	p.Commission = commissionPerLot.Mul(decimal.NewFromInt(int64(p.Lots(lotSize)))).Mul(decimal.NewFromInt(2))
	p.NetPnL = p.GrossPnL.Sub(p.Commission)
}

// Trade owns the lifecycle of one confirmed signal: a main short leg and, when
// hedging is enabled, one hedge leg. Mutated only by its state machine;
// immutable once closed.
type Trade struct {
	ID           string          `json:"id"`
	WeekStart    time.Time       `json:"week_start_date"`
	Signal       SignalType      `json:"signal_type"`
	Direction    Direction       `json:"direction"`
	TriggerTime  time.Time       `json:"trigger_time"`
	TriggerPrice float64         `json:"trigger_price"`
	EntryTime    time.Time       `json:"entry_time,omitempty"`
	IndexAtEntry float64         `json:"index_price_at_entry"`
	StopLoss     float64         `json:"stop_loss_price"`
	Expiry       time.Time       `json:"expiry_date"`
	ExitTime     time.Time       `json:"exit_time,omitempty"`
	IndexAtExit  float64         `json:"index_price_at_exit"`
	Outcome      Outcome         `json:"outcome"`
	ExitReason   string          `json:"exit_reason,omitempty"`
	TotalPnL     decimal.Decimal `json:"total_pnl"`
	Positions    []*Position     `json:"positions"`

	State        TradeState    `json:"state"`
	StateMachine *StateMachine `json:"-"`
}

// NewTrade creates a trade in the Triggered state from a signal trigger.
func NewTrade(id string, weekStart time.Time, trig *SignalTrigger, expiry time.Time) *Trade {
	return &Trade{
		ID:           id,
		WeekStart:    weekStart,
		Signal:       trig.Signal,
		Direction:    trig.Direction,
		TriggerTime:  trig.TriggerTime,
		TriggerPrice: trig.TriggerPrice,
		Expiry:       expiry,
		Outcome:      OutcomeOpen,
		State:        StateTriggered,
		StateMachine: NewStateMachine(),
	}
}

// TransitionState moves the trade to a new lifecycle state.
func (t *Trade) TransitionState(to TradeState, condition string) error {
	if err := t.ensureMachine().Transition(to, condition); err != nil {
		return fmt.Errorf("trade %s state transition failed: %w", t.ID, err)
	}
	t.State = to
	return nil
}

func (t *Trade) ensureMachine() *StateMachine {
	if t.StateMachine == nil {
		t.StateMachine = NewStateMachineFromState(t.State)
	}
	return t.StateMachine
}

// IsClosed reports whether the trade reached a terminal state.
func (t *Trade) IsClosed() bool { return t.State == StateClosed }

// MainPosition returns the main leg, or nil before entry.
func (t *Trade) MainPosition() *Position {
	for _, p := range t.Positions {
		if p.Type == PositionMain {
			return p
		}
	}
	return nil
}

// HedgePosition returns the hedge leg, or nil when hedging is off.
func (t *Trade) HedgePosition() *Position {
	for _, p := range t.Positions {
		if p.Type == PositionHedge {
			return p
		}
	}
	return nil
}

// SumPositionPnL returns the sum of all legs' net P&L.
func (t *Trade) SumPositionPnL() decimal.Decimal {
	total := decimal.Zero
	for _, p := range t.Positions {
		total = total.Add(p.NetPnL)
	}
	return total
}

// Validate checks trade data consistency against its state.
func (t *Trade) Validate() error {
	switch t.State {
	case StateTriggered:
		if len(t.Positions) != 0 {
			return fmt.Errorf("trade %s in state %s: positions must be empty before entry", t.ID, t.State)
		}
	case StateOpen:
		if t.EntryTime.IsZero() {
			return fmt.Errorf("trade %s in state %s: entry time must be set", t.ID, t.State)
		}
		if t.MainPosition() == nil {
			return fmt.Errorf("trade %s in state %s: main position must exist", t.ID, t.State)
		}
	case StateClosed:
		if t.ExitTime.IsZero() {
			return fmt.Errorf("trade %s in state %s: exit time must be set", t.ID, t.State)
		}
		if t.Outcome == OutcomeOpen {
			return fmt.Errorf("trade %s in state %s: outcome must be terminal", t.ID, t.State)
		}
		if len(t.Positions) > 0 && !t.TotalPnL.Equal(t.SumPositionPnL()) {
			return fmt.Errorf("trade %s in state %s: total pnl %s != sum of position pnl %s",
				t.ID, t.State, t.TotalPnL, t.SumPositionPnL())
		}
	}
	return nil
}
