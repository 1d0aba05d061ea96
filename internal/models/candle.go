package models

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Candle is one OHLCV bar of the index series. Immutable once ingested.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// BodyRange returns the absolute open-to-close distance.
func (c Candle) BodyRange() float64 {
	return math.Abs(c.Open - c.Close)
}

// IsBullish reports whether the candle closed above its open.
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// SortCandles orders candles by timestamp ascending.
func SortCandles(candles []Candle) {
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
}

// ValidateSeries checks that the series is strictly time-ordered and that no
// candle is missing from the expected intra-day grid. A hole inside a trading
// day is a DataGapError; day and week boundaries are not gaps.
func ValidateSeries(candles []Candle, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}
	for i := 1; i < len(candles); i++ {
		prev, cur := candles[i-1], candles[i]
		if !cur.Timestamp.After(prev.Timestamp) {
			return fmt.Errorf("candle series not strictly ordered at %s",
				cur.Timestamp.Format(time.RFC3339))
		}
		if !sameDay(prev.Timestamp, cur.Timestamp) {
			continue
		}
		expected := prev.Timestamp.Add(interval)
		if !cur.Timestamp.Equal(expected) {
			return &DataGapError{Expected: expected, Got: cur.Timestamp}
		}
	}
	return nil
}

// AggregateHourly folds 5-minute candles into hourly bars anchored at each
// day's session open (NSE sessions open at 09:15, so hourly bars land on
// 09:15, 10:15, ...). The partial bucket at session close is kept.
func AggregateHourly(candles []Candle) []Candle {
	if len(candles) == 0 {
		return nil
	}
	var out []Candle
	var bucket *Candle
	var bucketStart time.Time
	for _, c := range candles {
		newDay := bucket != nil && !sameDay(bucketStart, c.Timestamp)
		if bucket == nil || newDay || !c.Timestamp.Before(bucketStart.Add(time.Hour)) {
			if bucket != nil {
				out = append(out, *bucket)
			}
			b := c
			bucket = &b
			bucketStart = c.Timestamp
			continue
		}
		if c.High > bucket.High {
			bucket.High = c.High
		}
		if c.Low < bucket.Low {
			bucket.Low = c.Low
		}
		bucket.Close = c.Close
		bucket.Volume += c.Volume
	}
	out = append(out, *bucket)
	return out
}

// WeekStartOf returns midnight on the Monday of t's calendar week.
func WeekStartOf(t time.Time) time.Time {
	days := int(t.Weekday()) - int(time.Monday)
	if days < 0 {
		days += 7
	}
	d := t.AddDate(0, 0, -days)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}

// WeeklyExpiryOf returns the weekly option expiry for the week containing t:
// Thursday at 15:30 local market time.
func WeeklyExpiryOf(t time.Time) time.Time {
	ws := WeekStartOf(t)
	return ws.AddDate(0, 0, 3).Add(15*time.Hour + 30*time.Minute)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
