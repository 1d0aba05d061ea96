package engine

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"niftybacktest/internal/config"
	"niftybacktest/internal/marketdata"
	"niftybacktest/internal/models"
	"niftybacktest/internal/pricing"
)

// RunBatch executes independent backtest configurations concurrently over a
// shared provider. Results land at the index of their configuration. A failed
// run cancels the remaining ones; completed run documents are still returned.
func RunBatch(ctx context.Context, cfgs []config.BacktestConfig, provider marketdata.Provider, log *logrus.Logger, parallelism int) ([]*models.BacktestRun, error) {
	if parallelism <= 0 {
		parallelism = len(cfgs)
	}

	pricer := pricing.NewService()
	results := make([]*models.BacktestRun, len(cfgs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i := range cfgs {
		i := i
		g.Go(func() error {
			run, err := New(cfgs[i], provider, pricer, log).Run(gctx)
			results[i] = run
			return err
		})
	}
	err := g.Wait()
	return results, err
}
