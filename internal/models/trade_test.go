package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func TestPositionCloseShortLeg(t *testing.T) {
	p := &Position{
		Type:       PositionMain,
		OptionType: OptionPut,
		Quantity:   -750, // 10 lots of 75, sold
		EntryPrice: d(150),
	}
	p.Close(time.Now(), d(100), 75, d(40))

	if !p.GrossPnL.Equal(d(37500)) {
		t.Errorf("gross = %s, want 37500", p.GrossPnL)
	}
	// 10 lots x 40 per lot, charged at entry and exit.
	if !p.Commission.Equal(d(800)) {
		t.Errorf("commission = %s, want 800", p.Commission)
	}
	if !p.NetPnL.Equal(d(36700)) {
		t.Errorf("net = %s, want 36700", p.NetPnL)
	}
}

func TestPositionCloseShortLegLoss(t *testing.T) {
	p := &Position{
		Type:       PositionMain,
		OptionType: OptionCall,
		Quantity:   -750,
		EntryPrice: d(100),
	}
	p.Close(time.Now(), d(180), 75, d(40))

	if !p.GrossPnL.Equal(d(-60000)) {
		t.Errorf("gross = %s, want -60000", p.GrossPnL)
	}
	if !p.NetPnL.Equal(d(-60800)) {
		t.Errorf("net = %s, want -60800", p.NetPnL)
	}
}

func TestPositionCloseLongLeg(t *testing.T) {
	p := &Position{
		Type:       PositionHedge,
		OptionType: OptionPut,
		Quantity:   750,
		EntryPrice: d(50),
	}
	p.Close(time.Now(), d(80), 75, d(40))

	if !p.GrossPnL.Equal(d(22500)) {
		t.Errorf("gross = %s, want 22500", p.GrossPnL)
	}
	if !p.NetPnL.Equal(d(21700)) {
		t.Errorf("net = %s, want 21700", p.NetPnL)
	}
}

func TestOptionTypeForDirection(t *testing.T) {
	if OptionTypeFor(DirectionBullish) != OptionPut {
		t.Error("bullish trades sell puts")
	}
	if OptionTypeFor(DirectionBearish) != OptionCall {
		t.Error("bearish trades sell calls")
	}
}

func TestIntrinsicValue(t *testing.T) {
	tests := []struct {
		opt    OptionType
		spot   float64
		strike float64
		want   float64
	}{
		{OptionCall, 21100, 21000, 100},
		{OptionCall, 20900, 21000, 0},
		{OptionPut, 20900, 21000, 100},
		{OptionPut, 21100, 21000, 0},
	}
	for _, tt := range tests {
		if got := tt.opt.IntrinsicValue(tt.spot, tt.strike); got != tt.want {
			t.Errorf("%s intrinsic(%v, %v) = %v, want %v", tt.opt, tt.spot, tt.strike, got, tt.want)
		}
	}
}

func TestSignalDirections(t *testing.T) {
	bullish := map[SignalType]bool{SignalS1: true, SignalS2: true, SignalS4: true, SignalS7: true}
	for _, s := range AllSignals {
		want := DirectionBearish
		if bullish[s] {
			want = DirectionBullish
		}
		if s.Direction() != want {
			t.Errorf("%s direction = %s, want %s", s, s.Direction(), want)
		}
	}
}

func TestTradeLifecycleValidation(t *testing.T) {
	trig := &SignalTrigger{
		Signal:       SignalS1,
		Direction:    DirectionBullish,
		TriggerTime:  time.Date(2024, 1, 9, 10, 15, 0, 0, time.UTC),
		TriggerPrice: 21000,
	}
	weekStart := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	trade := NewTrade("t1", weekStart, trig, WeeklyExpiryOf(weekStart))

	if trade.State != StateTriggered {
		t.Fatalf("new trade state = %s, want %s", trade.State, StateTriggered)
	}
	if err := trade.Validate(); err != nil {
		t.Fatalf("triggered trade should validate: %v", err)
	}

	if err := trade.TransitionState(StateEntered, "confirmation_elapsed"); err != nil {
		t.Fatal(err)
	}
	main := &Position{Type: PositionMain, OptionType: OptionPut, Quantity: -750, EntryPrice: d(150)}
	trade.Positions = []*Position{main}
	trade.EntryTime = trig.TriggerTime.Add(2 * time.Hour)
	if err := trade.TransitionState(StateOpen, "positions_opened"); err != nil {
		t.Fatal(err)
	}
	if err := trade.Validate(); err != nil {
		t.Fatalf("open trade should validate: %v", err)
	}

	main.Close(trade.EntryTime.Add(time.Hour), d(100), 75, d(40))
	if err := trade.TransitionState(StateClosed, "stop_loss"); err != nil {
		t.Fatal(err)
	}
	trade.ExitTime = trade.EntryTime.Add(time.Hour)
	trade.Outcome = OutcomeWin
	trade.TotalPnL = trade.SumPositionPnL()
	if err := trade.Validate(); err != nil {
		t.Fatalf("closed trade should validate: %v", err)
	}

	// A tampered total must fail the invariant check.
	trade.TotalPnL = trade.TotalPnL.Add(d(1))
	if err := trade.Validate(); err == nil {
		t.Error("mismatched total pnl must fail validation")
	}
}
