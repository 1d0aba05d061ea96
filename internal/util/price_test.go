package util

import "testing"

func TestRoundToTick(t *testing.T) {
	tests := []struct {
		name string
		x    float64
		tick float64
		want float64
	}{
		{"round down", 101.32, 0.05, 101.30},
		{"round up", 101.33, 0.05, 101.35},
		{"exact", 101.35, 0.05, 101.35},
		{"zero tick passthrough", 101.32, 0, 101.32},
		{"negative tick passthrough", 101.32, -1, 101.32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundToTick(tt.x, tt.tick)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("RoundToTick(%v, %v) = %v, want %v", tt.x, tt.tick, got, tt.want)
			}
		})
	}
}

func TestNearestStrike(t *testing.T) {
	tests := []struct {
		name     string
		spot     float64
		interval int
		want     float64
	}{
		{"round down", 25012.0, 50, 25000},
		{"round up", 25048.5, 50, 25050},
		{"midpoint rounds up", 25025.0, 50, 25050},
		{"exact strike", 25000.0, 50, 25000},
		{"zero interval passthrough", 25012.0, 0, 25012.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NearestStrike(tt.spot, tt.interval); got != tt.want {
				t.Errorf("NearestStrike(%v, %d) = %v, want %v", tt.spot, tt.interval, got, tt.want)
			}
		})
	}
}
