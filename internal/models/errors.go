package models

import (
	"fmt"
	"time"
)

// InsufficientDataError reports that a week cannot derive its context because
// too few prior-week candles exist. The week is skipped; the run continues.
type InsufficientDataError struct {
	WeekStart time.Time
	Have      int
	Need      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for week starting %s: have %d candles, need %d",
		e.WeekStart.Format("2006-01-02"), e.Have, e.Need)
}

// PricingError reports invalid inputs to the option pricing service. The
// affected position construction is aborted and the trade marked Expired.
type PricingError struct {
	Reason string
}

func (e *PricingError) Error() string {
	return fmt.Sprintf("pricing error: %s", e.Reason)
}

// DataGapError reports a missing candle inside the requested window. This is a
// run-level integrity failure: the run is marked Failed, never partially
// computed.
type DataGapError struct {
	Expected time.Time
	Got      time.Time
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("candle stream gap: expected %s, got %s",
		e.Expected.Format(time.RFC3339), e.Got.Format(time.RFC3339))
}

// ConfigurationError reports an invalid parameter combination. Rejected before
// the simulation starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}
