package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"niftybacktest/internal/models"
)

func validConfig() *Config {
	return &Config{
		Environment: EnvironmentConfig{LogLevel: "info"},
		Backtest: BacktestConfig{
			Symbol:           "NIFTY",
			FromDate:         "2024-01-01",
			ToDate:           "2024-06-30",
			Interval:         "1h",
			InitialCapital:   500000,
			LotSize:          75,
			LotsToTrade:      10,
			UseHedging:       true,
			HedgeOffset:      200,
			CommissionPerLot: 40,
			SlippagePercent:  0.001,
			StrikeInterval:   50,
			MinWeekCandles:   20,
		},
		Data:    DataConfig{CandlesCSV: "candles.csv"},
		Storage: StorageConfig{Path: "results"},
	}
}

func TestValidateAcceptsValidConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing symbol", func(c *Config) { c.Backtest.Symbol = "" }, "backtest.symbol"},
		{"bad from date", func(c *Config) { c.Backtest.FromDate = "01/01/2024" }, "backtest.from_date"},
		{"bad to date", func(c *Config) { c.Backtest.ToDate = "junk" }, "backtest.to_date"},
		{"inverted range", func(c *Config) { c.Backtest.FromDate = "2024-07-01" }, "backtest.from_date"},
		{"bad interval", func(c *Config) { c.Backtest.Interval = "15m" }, "backtest.interval"},
		{"zero capital", func(c *Config) { c.Backtest.InitialCapital = 0 }, "backtest.initial_capital"},
		{"zero lot size", func(c *Config) { c.Backtest.LotSize = 0 }, "backtest.lot_size"},
		{"zero lots", func(c *Config) { c.Backtest.LotsToTrade = 0 }, "backtest.lots_to_trade"},
		{"unknown signal", func(c *Config) { c.Backtest.SignalsToTest = []string{"S9"} }, "backtest.signals_to_test"},
		{"hedging without offset", func(c *Config) { c.Backtest.HedgeOffset = 0 }, "backtest.hedge_offset"},
		{"negative commission", func(c *Config) { c.Backtest.CommissionPerLot = -1 }, "backtest.commission_per_lot"},
		{"negative slippage", func(c *Config) { c.Backtest.SlippagePercent = -0.1 }, "backtest.slippage_percent"},
		{"zero strike interval", func(c *Config) { c.Backtest.StrikeInterval = 0 }, "backtest.strike_interval"},
		{"zero min week candles", func(c *Config) { c.Backtest.MinWeekCandles = 0 }, "backtest.min_week_candles"},
		{"no data source", func(c *Config) { c.Data = DataConfig{} }, "data"},
		{"no storage path", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var cerr *models.ConfigurationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestLoadParsesYAMLAndExpandsEnv(t *testing.T) {
	t.Setenv("RESULTS_DIR", "run-output")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
environment:
  log_level: debug
backtest:
  symbol: NIFTY
  from_date: "2024-01-01"
  to_date: "2024-03-31"
  interval: 1h
  initial_capital: 500000
  lot_size: 75
  lots_to_trade: 10
  signals_to_test: [S1, S7]
  use_hedging: true
  hedge_offset: 200
  commission_per_lot: 40
  slippage_percent: 0.001
  strike_interval: 50
  min_week_candles: 20
data:
  candles_csv: candles.csv
storage:
  path: ${RESULTS_DIR}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "run-output", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Environment.LogLevel)

	enabled := cfg.Backtest.EnabledSignals()
	assert.True(t, enabled[models.SignalS1])
	assert.True(t, enabled[models.SignalS7])
	assert.False(t, enabled[models.SignalS3])
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backtest:\n  bogus_field: 1\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestRangeCoversFinalDay(t *testing.T) {
	b := validConfig().Backtest
	from, to := b.Range()
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.True(t, to.After(time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)))
}

func TestEnabledSignalsDefaultsToAll(t *testing.T) {
	b := validConfig().Backtest
	enabled := b.EnabledSignals()
	for _, s := range models.AllSignals {
		assert.True(t, enabled[s], "signal %s should default to enabled", s)
	}
}

func TestIntervalDuration(t *testing.T) {
	b := validConfig().Backtest
	assert.Equal(t, time.Hour, b.IntervalDuration())
	b.Interval = "5m"
	assert.Equal(t, 5*time.Minute, b.IntervalDuration())
}
