// Package config provides configuration management for the backtester.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	yaml "gopkg.in/yaml.v3"

	"niftybacktest/internal/models"
)

const dateLayout = "2006-01-02"

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Backtest    BacktestConfig    `yaml:"backtest"`
	Data        DataConfig        `yaml:"data"`
	Storage     StorageConfig     `yaml:"storage"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// BacktestConfig is the single fully-validated parameter set for one run.
// Defaults live in config.yaml, the one authoritative source.
type BacktestConfig struct {
	Symbol           string   `yaml:"symbol"`
	FromDate         string   `yaml:"from_date"` // YYYY-MM-DD
	ToDate           string   `yaml:"to_date"`   // YYYY-MM-DD
	Interval         string   `yaml:"interval"`  // 5m | 1h
	InitialCapital   float64  `yaml:"initial_capital"`
	LotSize          int      `yaml:"lot_size"`
	LotsToTrade      int      `yaml:"lots_to_trade"`
	SignalsToTest    []string `yaml:"signals_to_test"` // empty = all of S1..S8
	UseHedging       bool     `yaml:"use_hedging"`
	HedgeOffset      float64  `yaml:"hedge_offset"`
	CommissionPerLot float64  `yaml:"commission_per_lot"`
	SlippagePercent  float64  `yaml:"slippage_percent"`
	StrikeInterval   int      `yaml:"strike_interval"`
	MinWeekCandles   int      `yaml:"min_week_candles"`
}

// DataConfig selects the historical data source.
type DataConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
	CandlesCSV string `yaml:"candles_csv"`
}

// StorageConfig defines where completed runs are persisted.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks that all configuration values are valid and consistent.
// Violations surface as ConfigurationError before any simulation starts.
func (c *Config) Validate() error {
	b := &c.Backtest

	if b.Symbol == "" {
		return &models.ConfigurationError{Field: "backtest.symbol", Reason: "required"}
	}
	from, err := time.Parse(dateLayout, b.FromDate)
	if err != nil {
		return &models.ConfigurationError{Field: "backtest.from_date", Reason: "must be YYYY-MM-DD"}
	}
	to, err := time.Parse(dateLayout, b.ToDate)
	if err != nil {
		return &models.ConfigurationError{Field: "backtest.to_date", Reason: "must be YYYY-MM-DD"}
	}
	if !from.Before(to) {
		return &models.ConfigurationError{Field: "backtest.from_date", Reason: "must precede to_date"}
	}
	if b.Interval != "5m" && b.Interval != "1h" {
		return &models.ConfigurationError{Field: "backtest.interval", Reason: "must be 5m or 1h"}
	}
	if b.InitialCapital <= 0 {
		return &models.ConfigurationError{Field: "backtest.initial_capital", Reason: "must be > 0"}
	}
	if b.LotSize <= 0 {
		return &models.ConfigurationError{Field: "backtest.lot_size", Reason: "must be > 0"}
	}
	if b.LotsToTrade <= 0 {
		return &models.ConfigurationError{Field: "backtest.lots_to_trade", Reason: "must be > 0"}
	}
	for _, s := range b.SignalsToTest {
		if !models.SignalType(s).Valid() {
			return &models.ConfigurationError{
				Field:  "backtest.signals_to_test",
				Reason: fmt.Sprintf("unknown signal %q", s),
			}
		}
	}
	if b.UseHedging && b.HedgeOffset <= 0 {
		return &models.ConfigurationError{Field: "backtest.hedge_offset", Reason: "must be > 0 when hedging"}
	}
	if b.CommissionPerLot < 0 {
		return &models.ConfigurationError{Field: "backtest.commission_per_lot", Reason: "must be >= 0"}
	}
	if b.SlippagePercent < 0 {
		return &models.ConfigurationError{Field: "backtest.slippage_percent", Reason: "must be >= 0"}
	}
	if b.StrikeInterval <= 0 {
		return &models.ConfigurationError{Field: "backtest.strike_interval", Reason: "must be > 0"}
	}
	if b.MinWeekCandles <= 0 {
		return &models.ConfigurationError{Field: "backtest.min_week_candles", Reason: "must be > 0"}
	}

	if c.Data.SQLitePath == "" && c.Data.CandlesCSV == "" {
		return &models.ConfigurationError{Field: "data", Reason: "one of sqlite_path or candles_csv is required"}
	}
	if c.Storage.Path == "" {
		return &models.ConfigurationError{Field: "storage.path", Reason: "required"}
	}

	return nil
}

// Range returns the parsed simulation window. Validate must have passed.
func (b *BacktestConfig) Range() (time.Time, time.Time) {
	from, _ := time.Parse(dateLayout, b.FromDate)
	to, _ := time.Parse(dateLayout, b.ToDate)
	// Include the final calendar day.
	return from, to.Add(24*time.Hour - time.Nanosecond)
}

// IntervalDuration returns the candle interval as a duration.
func (b *BacktestConfig) IntervalDuration() time.Duration {
	if b.Interval == "5m" {
		return 5 * time.Minute
	}
	return time.Hour
}

// EnabledSignals returns the signal set under test, defaulting to the full
// catalog when signals_to_test is empty.
func (b *BacktestConfig) EnabledSignals() map[models.SignalType]bool {
	enabled := make(map[models.SignalType]bool, len(models.AllSignals))
	if len(b.SignalsToTest) == 0 {
		for _, s := range models.AllSignals {
			enabled[s] = true
		}
		return enabled
	}
	for _, s := range b.SignalsToTest {
		enabled[models.SignalType(s)] = true
	}
	return enabled
}

// InitialCapitalDecimal returns the starting capital as an exact decimal.
func (b *BacktestConfig) InitialCapitalDecimal() decimal.Decimal {
	return decimal.NewFromFloat(b.InitialCapital)
}

// CommissionPerLotDecimal returns the per-lot commission as an exact decimal.
func (b *BacktestConfig) CommissionPerLotDecimal() decimal.Decimal {
	return decimal.NewFromFloat(b.CommissionPerLot)
}
