package marketdata

import (
	"context"
	"fmt"
	"time"

	"niftybacktest/internal/models"
)

// Compile-time interface check.
var _ Provider = (*MemoryProvider)(nil)

// MemoryProvider serves candles and option quotes from in-memory maps. Used
// for tests and for series loaded from flat files. Reads are lock-free: the
// data is immutable after construction.
type MemoryProvider struct {
	candles map[string][]models.Candle
	quotes  map[string]OptionQuote
}

// NewMemoryProvider creates an empty provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		candles: make(map[string][]models.Candle),
		quotes:  make(map[string]OptionQuote),
	}
}

// AddCandles registers the candle series for a symbol, sorted by time.
func (m *MemoryProvider) AddCandles(symbol string, candles []models.Candle) {
	cp := make([]models.Candle, len(candles))
	copy(cp, candles)
	models.SortCandles(cp)
	m.candles[symbol] = cp
}

// AddQuote registers one option quote observation.
func (m *MemoryProvider) AddQuote(q OptionQuote) {
	m.quotes[quoteKey(q.Symbol, q.Timestamp, q.Strike, q.OptionType, q.Expiry)] = q
}

// Candles returns the series for symbol restricted to [from, to].
func (m *MemoryProvider) Candles(_ context.Context, symbol string, from, to time.Time) ([]models.Candle, error) {
	all, ok := m.candles[symbol]
	if !ok {
		return nil, fmt.Errorf("no candle data for symbol %q", symbol)
	}
	var out []models.Candle
	for _, c := range all {
		if c.Timestamp.Before(from) || c.Timestamp.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// OptionQuote returns the registered quote or (nil, nil) when absent.
func (m *MemoryProvider) OptionQuote(_ context.Context, symbol string, at time.Time, strike float64, optType models.OptionType, expiry time.Time) (*OptionQuote, error) {
	q, ok := m.quotes[quoteKey(symbol, at, strike, optType, expiry)]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func quoteKey(symbol string, at time.Time, strike float64, optType models.OptionType, expiry time.Time) string {
	return fmt.Sprintf("%s|%d|%.2f|%s|%s", symbol, at.Unix(), strike, optType, expiry.Format("2006-01-02"))
}
