// Package util provides common utility functions for price calculations.
package util

import "math"

// RoundToTick rounds x to the nearest tick increment.
// For example, with tick=0.05, 101.327 becomes 101.35.
func RoundToTick(x, tick float64) float64 {
	if tick <= 0 {
		return x
	}
	return math.Round(x/tick) * tick
}

// NearestStrike rounds a spot price to the nearest tradable strike.
// NIFTY strikes trade on a 50-point grid.
func NearestStrike(spot float64, interval int) float64 {
	if interval <= 0 {
		return spot
	}
	step := float64(interval)
	return math.Round(spot/step) * step
}
