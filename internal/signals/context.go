// Package signals derives weekly structural context and evaluates the fixed
// S1..S8 signal catalog against it.
package signals

import (
	"math"
	"time"

	"niftybacktest/internal/models"
)

// Zone width as a fraction of the previous week's high-low range.
const zoneWidthFraction = 0.025

// Weekly moves inside this band classify as neutral bias.
const neutralBiasPct = 0.1

// ContextManager derives one WeeklyContext per simulated week from the prior
// week's completed candles. It holds configuration only; derivation is a pure
// function of its input.
type ContextManager struct {
	minWeekCandles int
}

// NewContextManager creates a manager requiring at least minWeekCandles
// candles in the reference week.
func NewContextManager(minWeekCandles int) *ContextManager {
	return &ContextManager{minWeekCandles: minWeekCandles}
}

// Derive computes the context for the week starting at weekStart from the
// previous week's candles. Returns InsufficientDataError when the reference
// week is too thin; callers skip the week and continue the run.
func (m *ContextManager) Derive(weekStart time.Time, prevWeek []models.Candle) (*models.WeeklyContext, error) {
	if len(prevWeek) < m.minWeekCandles {
		return nil, &models.InsufficientDataError{
			WeekStart: weekStart,
			Have:      len(prevWeek),
			Need:      m.minWeekCandles,
		}
	}

	open := prevWeek[0].Open
	closePx := prevWeek[len(prevWeek)-1].Close
	high := prevWeek[0].High
	low := prevWeek[0].Low
	for _, c := range prevWeek[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}

	width := (high - low) * zoneWidthFraction
	zones := models.Zones{
		SupportBottom:    low,
		SupportTop:       low + width,
		ResistanceBottom: high - width,
		ResistanceTop:    high,
		Width:            width,
	}

	return &models.WeeklyContext{
		WeekStart:     weekStart,
		Expiry:        models.WeeklyExpiryOf(weekStart),
		Zones:         zones,
		Bias:          classifyBias(open, closePx),
		PrevWeekOpen:  open,
		PrevWeekHigh:  high,
		PrevWeekLow:   low,
		PrevWeekClose: closePx,
	}, nil
}

func classifyBias(open, closePx float64) models.Bias {
	if open == 0 {
		return models.Bias{Direction: models.BiasNeutral}
	}
	movePct := (closePx - open) / open * 100
	strength := math.Abs(movePct)
	switch {
	case movePct > neutralBiasPct:
		return models.Bias{Direction: models.BiasBullish, Strength: strength}
	case movePct < -neutralBiasPct:
		return models.Bias{Direction: models.BiasBearish, Strength: strength}
	default:
		return models.Bias{Direction: models.BiasNeutral, Strength: strength}
	}
}
