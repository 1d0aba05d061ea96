package models

import (
	"math"
	"time"
)

// BiasDirection classifies the weekly directional bias.
type BiasDirection string

const (
	BiasBullish BiasDirection = "bullish"
	BiasBearish BiasDirection = "bearish"
	BiasNeutral BiasDirection = "neutral"
)

// Zones are the structural support/resistance bands derived from the previous
// week's range.
type Zones struct {
	SupportBottom    float64 `json:"support_bottom"`
	SupportTop       float64 `json:"support_top"`
	ResistanceBottom float64 `json:"resistance_bottom"`
	ResistanceTop    float64 `json:"resistance_top"`
	Width            float64 `json:"width"`
}

// IsNearSupport reports whether price sits within one zone-width of the
// support band.
func (z Zones) IsNearSupport(price float64) bool {
	return price >= z.SupportBottom-z.Width && price <= z.SupportTop+z.Width
}

// IsNearResistance reports whether price sits within one zone-width of the
// resistance band.
func (z Zones) IsNearResistance(price float64) bool {
	return price >= z.ResistanceBottom-z.Width && price <= z.ResistanceTop+z.Width
}

// Bias is the weekly directional classification.
type Bias struct {
	Direction BiasDirection `json:"direction"`
	// Strength is the absolute percent move of the previous week (close vs open).
	Strength float64 `json:"strength"`
}

// IsBullish reports a bullish weekly bias.
func (b Bias) IsBullish() bool { return b.Direction == BiasBullish }

// IsBearish reports a bearish weekly bias.
func (b Bias) IsBearish() bool { return b.Direction == BiasBearish }

// WeeklyContext carries the structural reference levels for one simulated
// week. It is derived once, from the previous week's completed candles, and is
// immutable for the week's duration. Current-week running state (first bar,
// accumulated bars) is passed alongside it, never stored here.
type WeeklyContext struct {
	WeekStart     time.Time `json:"week_start"`
	Expiry        time.Time `json:"expiry"`
	Zones         Zones     `json:"zones"`
	Bias          Bias      `json:"bias"`
	PrevWeekOpen  float64   `json:"prev_week_open"`
	PrevWeekHigh  float64   `json:"prev_week_high"`
	PrevWeekLow   float64   `json:"prev_week_low"`
	PrevWeekClose float64   `json:"prev_week_close"`
}

// DistanceToResistance returns the percent gap from price up to the
// resistance band bottom. Negative when price is inside or above the band.
func (w *WeeklyContext) DistanceToResistance(price float64) float64 {
	if price == 0 {
		return math.Inf(1)
	}
	return (w.Zones.ResistanceBottom - price) / price * 100
}

// DistanceToSupport returns the percent gap from price down to the support
// band top. Negative when price is inside or below the band.
func (w *WeeklyContext) DistanceToSupport(price float64) float64 {
	if price == 0 {
		return math.Inf(1)
	}
	return (price - w.Zones.SupportTop) / price * 100
}
