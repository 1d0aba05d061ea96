package marketdata

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker"

	"niftybacktest/internal/models"
)

// Compile-time interface check.
var _ Provider = (*BreakerProvider)(nil)

// BreakerProvider wraps a Provider with a circuit breaker. Useful when the
// backing store is remote or flaky; repeated failures fail fast instead of
// stalling a long backtest on every candle.
type BreakerProvider struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
}

// BreakerSettings configures circuit breaker behavior.
type BreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// NewBreakerProvider wraps provider with default breaker settings.
func NewBreakerProvider(provider Provider) *BreakerProvider {
	return NewBreakerProviderWithSettings(provider, BreakerSettings{
		MaxRequests:  3,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	})
}

// NewBreakerProviderWithSettings wraps provider with custom breaker settings.
func NewBreakerProviderWithSettings(provider Provider, settings BreakerSettings) *BreakerProvider {
	gbSettings := gobreaker.Settings{
		Name:        "MarketDataCircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s state changed from %s to %s", name, from, to)
		},
	}
	return &BreakerProvider{
		provider: provider,
		breaker:  gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// execBreaker wraps a provider call in the circuit breaker, preserving types.
func execBreaker[T any](breaker *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

func (b *BreakerProvider) Candles(ctx context.Context, symbol string, from, to time.Time) ([]models.Candle, error) {
	return execBreaker(b.breaker, func() ([]models.Candle, error) {
		return b.provider.Candles(ctx, symbol, from, to)
	})
}

func (b *BreakerProvider) OptionQuote(ctx context.Context, symbol string, at time.Time, strike float64, optType models.OptionType, expiry time.Time) (*OptionQuote, error) {
	return execBreaker(b.breaker, func() (*OptionQuote, error) {
		return b.provider.OptionQuote(ctx, symbol, at, strike, optType, expiry)
	})
}
