package signals

import (
	"errors"
	"math"
	"testing"
	"time"

	"niftybacktest/internal/models"
)

func refWeek(n int, open, high, low, closePx float64) []models.Candle {
	start := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      open, High: open, Low: open, Close: open,
		}
	}
	out[0].Open = open
	out[0].High = high
	out[n-1].Low = low
	out[n-1].Close = closePx
	return out
}

func TestDeriveZonesFromPrevWeekRange(t *testing.T) {
	m := NewContextManager(5)
	weekStart := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	ctx, err := m.Derive(weekStart, refWeek(10, 20500, 21000, 20000, 20800))
	if err != nil {
		t.Fatal(err)
	}

	// Range 1000 points, zone width 2.5% of it.
	if ctx.Zones.Width != 25 {
		t.Errorf("width = %v, want 25", ctx.Zones.Width)
	}
	if ctx.Zones.SupportBottom != 20000 || ctx.Zones.SupportTop != 20025 {
		t.Errorf("support band = [%v, %v], want [20000, 20025]", ctx.Zones.SupportBottom, ctx.Zones.SupportTop)
	}
	if ctx.Zones.ResistanceBottom != 20975 || ctx.Zones.ResistanceTop != 21000 {
		t.Errorf("resistance band = [%v, %v], want [20975, 21000]", ctx.Zones.ResistanceBottom, ctx.Zones.ResistanceTop)
	}
	if ctx.PrevWeekHigh != 21000 || ctx.PrevWeekLow != 20000 {
		t.Errorf("prev week range = [%v, %v]", ctx.PrevWeekLow, ctx.PrevWeekHigh)
	}
	if !ctx.Expiry.Equal(time.Date(2024, 1, 11, 15, 30, 0, 0, time.UTC)) {
		t.Errorf("expiry = %s, want Thursday 15:30", ctx.Expiry)
	}
}

func TestDeriveBiasClassification(t *testing.T) {
	m := NewContextManager(5)
	weekStart := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		open  float64
		close float64
		want  models.BiasDirection
	}{
		{"bullish", 20500, 20800, models.BiasBullish},
		{"bearish", 20800, 20500, models.BiasBearish},
		{"flat is neutral", 20500, 20505, models.BiasNeutral},
		{"exactly flat", 20500, 20500, models.BiasNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, err := m.Derive(weekStart, refWeek(10, tt.open, 21000, 20000, tt.close))
			if err != nil {
				t.Fatal(err)
			}
			if ctx.Bias.Direction != tt.want {
				t.Errorf("bias = %s, want %s", ctx.Bias.Direction, tt.want)
			}
			wantStrength := math.Abs((tt.close - tt.open) / tt.open * 100)
			if math.Abs(ctx.Bias.Strength-wantStrength) > 1e-9 {
				t.Errorf("strength = %v, want %v", ctx.Bias.Strength, wantStrength)
			}
		})
	}
}

func TestDeriveInsufficientData(t *testing.T) {
	m := NewContextManager(20)
	weekStart := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

	_, err := m.Derive(weekStart, refWeek(5, 20500, 21000, 20000, 20800))
	var insufficient *models.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if insufficient.Have != 5 || insufficient.Need != 20 {
		t.Errorf("have/need = %d/%d, want 5/20", insufficient.Have, insufficient.Need)
	}
}
