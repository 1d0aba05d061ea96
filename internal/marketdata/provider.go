// Package marketdata supplies historical candles and option quotes to the
// simulation core. Providers return already-materialized data; acquisition
// from brokers lives outside this module.
package marketdata

import (
	"context"
	"time"

	"niftybacktest/internal/models"
)

// OptionQuote is one historical option price observation.
type OptionQuote struct {
	Symbol     string            `json:"symbol"`
	Timestamp  time.Time         `json:"timestamp"`
	Strike     float64           `json:"strike"`
	OptionType models.OptionType `json:"option_type"`
	Expiry     time.Time         `json:"expiry"`
	Bid        float64           `json:"bid"`
	Ask        float64           `json:"ask"`
	Last       float64           `json:"last"`
}

// Mid returns the bid/ask midpoint, falling back to last when either side is
// missing.
func (q OptionQuote) Mid() float64 {
	if q.Bid > 0 && q.Ask > 0 {
		return (q.Bid + q.Ask) / 2
	}
	return q.Last
}

// Provider serves historical market data for one or more symbols.
//
// Implementations must be safe for concurrent use: independent backtest runs
// share a provider and read from it concurrently.
type Provider interface {
	// Candles returns the ordered candle series for symbol in [from, to].
	Candles(ctx context.Context, symbol string, from, to time.Time) ([]models.Candle, error)

	// OptionQuote returns the quote for (strike, optType, expiry) at the given
	// timestamp, or (nil, nil) when no observation exists. Quote data may be
	// sparse; absence is not an error, callers fall back to theoretical
	// pricing.
	OptionQuote(ctx context.Context, symbol string, at time.Time, strike float64, optType models.OptionType, expiry time.Time) (*OptionQuote, error)
}
