package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"niftybacktest/internal/config"
	"niftybacktest/internal/engine"
	"niftybacktest/internal/marketdata"
	"niftybacktest/internal/models"
	"niftybacktest/internal/pricing"
	"niftybacktest/internal/storage"
)

func main() {
	var configPath, tradesCSV, dailyCSV string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&tradesCSV, "trades-csv", "", "Optional path for a trade log CSV export")
	flag.StringVar(&dailyCSV, "daily-csv", "", "Optional path for a daily ledger CSV export")
	flag.Parse()

	log := logrus.New()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Environment.LogLevel); err == nil {
		log.SetLevel(level)
	}

	provider, cleanup, err := buildProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to set up market data: %v", err)
	}
	defer cleanup()

	store, err := storage.NewJSONStore(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to set up storage: %v", err)
	}

	// Cancellation is honored at day boundaries, so Ctrl-C keeps a partial
	// run document.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn("Shutdown signal received, canceling run...")
		cancel()
	}()

	eng := engine.New(cfg.Backtest, provider, pricing.NewService(), log)
	run, runErr := eng.Run(ctx)

	if run != nil {
		if err := store.SaveRun(run); err != nil {
			log.Errorf("Failed to persist run: %v", err)
		}
		if tradesCSV != "" {
			if err := storage.WriteTradesCSV(run, tradesCSV); err != nil {
				log.Errorf("Failed to write trade CSV: %v", err)
			}
		}
		if dailyCSV != "" {
			if err := storage.WriteDailyCSV(run, dailyCSV); err != nil {
				log.Errorf("Failed to write daily CSV: %v", err)
			}
		}
		printSummary(run)
	}
	if runErr != nil {
		os.Exit(1)
	}
}

// buildProvider wires the configured data source: SQLite when a path is set,
// otherwise an in-memory provider fed from the candle CSV. Either source is
// wrapped in a circuit breaker.
func buildProvider(cfg *config.Config) (marketdata.Provider, func(), error) {
	if cfg.Data.SQLitePath != "" {
		p, err := marketdata.NewSQLiteProvider(cfg.Data.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return marketdata.NewBreakerProvider(p), func() { _ = p.Close() }, nil
	}
	p, err := marketdata.NewCSVProvider(cfg.Backtest.Symbol, cfg.Data.CandlesCSV)
	if err != nil {
		return nil, nil, err
	}
	return marketdata.NewBreakerProvider(p), func() {}, nil
}

func printSummary(run *models.BacktestRun) {
	fmt.Printf("\nRun %s (%s)\n", run.ID, run.Status)
	if run.ErrorMessage != "" {
		fmt.Printf("  Error:          %s\n", run.ErrorMessage)
	}
	fmt.Printf("  Symbol:         %s\n", run.Symbol)
	fmt.Printf("  Period:         %s to %s\n",
		run.From.Format("2006-01-02"), run.To.Format("2006-01-02"))
	fmt.Printf("  Total trades:   %d (%d wins / %d losses)\n",
		run.TotalTrades, run.WinningTrades, run.LosingTrades)
	fmt.Printf("  Win rate:       %.1f%%\n", run.WinRate)
	fmt.Printf("  Total P&L:      %s\n", run.TotalPnL.StringFixed(2))
	fmt.Printf("  Final capital:  %s (%.2f%%)\n",
		run.FinalCapital.StringFixed(2), run.TotalReturnPct)
	fmt.Printf("  Max drawdown:   %s (%.2f%%)\n",
		run.MaxDrawdown.StringFixed(2), run.MaxDrawdownPct)
}
