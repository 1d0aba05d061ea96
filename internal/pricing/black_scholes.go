// Package pricing provides theoretical option pricing used when historical
// option quotes are unavailable for a strike/time.
package pricing

import (
	"math"
	"time"

	"niftybacktest/internal/models"
)

const (
	// Annualized risk-free rate used for discounting.
	defaultRiskFreeRate = 0.065
	// Base implied volatility for ATM strikes; adjusted by moneyness.
	defaultBaseIV = 0.15

	yearSeconds = 365 * 24 * 3600
)

// Greeks holds the option sensitivities alongside a theoretical price.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// Service prices options with Black-Scholes. It is stateless and safe for
// concurrent use.
type Service struct {
	riskFreeRate float64
	baseIV       float64
}

// NewService creates a pricing service with the default rate and IV base.
func NewService() *Service {
	return &Service{riskFreeRate: defaultRiskFreeRate, baseIV: defaultBaseIV}
}

// Price returns the theoretical option price. The result never falls below
// intrinsic value. Invalid inputs fail with PricingError.
func (s *Service) Price(spot, strike float64, optType models.OptionType, timeToExpiry, sigma float64) (float64, error) {
	price, _, err := s.PriceWithGreeks(spot, strike, optType, timeToExpiry, sigma)
	return price, err
}

// PriceWithGreeks returns the theoretical price and Greeks.
func (s *Service) PriceWithGreeks(spot, strike float64, optType models.OptionType, timeToExpiry, sigma float64) (float64, Greeks, error) {
	if spot <= 0 {
		return 0, Greeks{}, &models.PricingError{Reason: "spot must be positive"}
	}
	if strike <= 0 {
		return 0, Greeks{}, &models.PricingError{Reason: "strike must be positive"}
	}
	if timeToExpiry <= 0 {
		return 0, Greeks{}, &models.PricingError{Reason: "time to expiry must be positive"}
	}
	if sigma < 0 {
		return 0, Greeks{}, &models.PricingError{Reason: "volatility must be non-negative"}
	}
	if optType != models.OptionCall && optType != models.OptionPut {
		return 0, Greeks{}, &models.PricingError{Reason: "unknown option type"}
	}

	intrinsic := optType.IntrinsicValue(spot, strike)
	if sigma == 0 {
		return intrinsic, Greeks{}, nil
	}

	sqrtT := math.Sqrt(timeToExpiry)
	d1 := (math.Log(spot/strike) + (s.riskFreeRate+0.5*sigma*sigma)*timeToExpiry) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	discount := math.Exp(-s.riskFreeRate * timeToExpiry)

	var price, delta float64
	if optType == models.OptionCall {
		price = spot*normCDF(d1) - strike*discount*normCDF(d2)
		delta = normCDF(d1)
	} else {
		price = strike*discount*normCDF(-d2) - spot*normCDF(-d1)
		delta = normCDF(d1) - 1
	}
	if price < intrinsic {
		price = intrinsic
	}

	pdf := normPDF(d1)
	greeks := Greeks{
		Delta: delta,
		Gamma: pdf / (spot * sigma * sqrtT),
		Vega:  spot * pdf * sqrtT / 100,
	}
	if optType == models.OptionCall {
		greeks.Theta = (-spot*pdf*sigma/(2*sqrtT) - s.riskFreeRate*strike*discount*normCDF(d2)) / 365
	} else {
		greeks.Theta = (-spot*pdf*sigma/(2*sqrtT) + s.riskFreeRate*strike*discount*normCDF(-d2)) / 365
	}

	return price, greeks, nil
}

// PriceAt prices the option for a wall-clock timestamp and expiry, estimating
// IV from moneyness.
func (s *Service) PriceAt(spot, strike float64, optType models.OptionType, now, expiry time.Time) (float64, error) {
	timeToExpiry := expiry.Sub(now).Seconds() / yearSeconds
	return s.Price(spot, strike, optType, timeToExpiry, s.EstimateIV(spot, strike, optType))
}

// EstimateIV estimates implied volatility from moneyness: ATM strikes get the
// base IV, in-the-money strikes trade tighter, out-of-the-money wider.
func (s *Service) EstimateIV(spot, strike float64, optType models.OptionType) float64 {
	if strike <= 0 {
		return s.baseIV
	}
	moneyness := spot / strike
	switch {
	case moneyness >= 0.95 && moneyness <= 1.05:
		return s.baseIV
	case moneyness > 1.05:
		if optType == models.OptionCall {
			return s.baseIV * 0.8
		}
		return s.baseIV * 1.2
	default:
		if optType == models.OptionCall {
			return s.baseIV * 1.2
		}
		return s.baseIV * 0.8
	}
}

func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
