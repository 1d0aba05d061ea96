// Package engine runs the backtest simulation: a single chronological pass
// over the candle series driving context derivation, signal evaluation, the
// trade lifecycle and the daily capital ledger.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"niftybacktest/internal/config"
	"niftybacktest/internal/marketdata"
	"niftybacktest/internal/models"
	"niftybacktest/internal/pricing"
	"niftybacktest/internal/signals"
	"niftybacktest/internal/util"
)

// Candles between a trigger and its entry. Entry fills at the close of the
// second candle after the trigger candle.
const entryConfirmationCandles = 2

// Engine executes one backtest run. It is stateless between runs, so a single
// engine can serve concurrent runs over a shared provider.
type Engine struct {
	cfg      config.BacktestConfig
	provider marketdata.Provider
	pricer   *pricing.Service
	log      *logrus.Logger
}

// New creates an engine from a validated configuration.
func New(cfg config.BacktestConfig, provider marketdata.Provider, pricer *pricing.Service, log *logrus.Logger) *Engine {
	if pricer == nil {
		pricer = pricing.NewService()
	}
	if log == nil {
		log = logrus.New()
	}
	return &Engine{cfg: cfg, provider: provider, pricer: pricer, log: log}
}

// pendingEntry is a triggered trade counting down to its entry candle.
type pendingEntry struct {
	trade     *models.Trade
	remaining int
}

// runState is the mutable per-run simulation state.
type runState struct {
	run *models.BacktestRun

	weekStart    time.Time
	weekCtx      *models.WeeklyContext
	weekCandles  []models.Candle
	prevWeek     []models.Candle
	tradedInWeek map[models.SignalType]bool

	pending []*pendingEntry
	open    []*models.Trade

	day          time.Time
	dayCapital   decimal.Decimal
	dayPnL       decimal.Decimal
	dayOpened    int
	dayClosed    int
	lastCandle   models.Candle
	sawAnyCandle bool
}

// Run executes the configured backtest and returns the completed run. The run
// document is always returned, including on failure, with Status and
// ErrorMessage describing the outcome. Cancellation is honored at day
// boundaries; a canceled run keeps its partial results.
func (e *Engine) Run(ctx context.Context) (*models.BacktestRun, error) {
	run := e.newRun()
	run.Status = models.StatusRunning
	run.StartedAt = time.Now()

	e.log.WithFields(logrus.Fields{
		"run_id": run.ID,
		"symbol": run.Symbol,
		"from":   run.From.Format("2006-01-02"),
		"to":     run.To.Format("2006-01-02"),
	}).Info("backtest starting")

	candles, err := e.loadCandles(ctx)
	if err != nil {
		return e.fail(run, err)
	}
	if len(candles) == 0 {
		return e.fail(run, fmt.Errorf("no candles for %s in range", run.Symbol))
	}

	st := &runState{
		run:        run,
		dayCapital: run.InitialCapital,
	}

	ctxMgr := signals.NewContextManager(e.cfg.MinWeekCandles)
	eval := signals.NewEvaluator(e.cfg.EnabledSignals(), e.log)

	for i := range candles {
		c := candles[i]

		if st.sawAnyCandle && !sameDay(st.day, c.Timestamp) {
			st.flushDay()
			if err := ctx.Err(); err != nil {
				return e.cancel(st, err)
			}
		}
		if !st.sawAnyCandle || !sameDay(st.day, c.Timestamp) {
			st.day = dateOf(c.Timestamp)
		}
		st.sawAnyCandle = true
		st.lastCandle = c

		ws := models.WeekStartOf(c.Timestamp)
		if !ws.Equal(st.weekStart) {
			e.rollWeek(st, ctxMgr, ws)
		}
		st.weekCandles = append(st.weekCandles, c)

		e.checkExits(ctx, st, c)
		e.advancePending(ctx, st, c)

		if st.weekCtx != nil {
			if trig := eval.Evaluate(st.weekCandles, st.weekCtx, i); trig != nil {
				e.handleTrigger(st, trig)
			}
		}
	}

	e.forceClose(ctx, st)
	st.flushDay()

	run.Status = models.StatusCompleted
	run.CompletedAt = time.Now()
	run.ComputeMetrics()

	e.log.WithFields(logrus.Fields{
		"run_id":        run.ID,
		"total_trades":  run.TotalTrades,
		"win_rate":      run.WinRate,
		"final_capital": run.FinalCapital,
	}).Info("backtest completed")

	return run, nil
}

func (e *Engine) newRun() *models.BacktestRun {
	from, to := e.cfg.Range()
	enabled := e.cfg.EnabledSignals()
	sigs := make([]models.SignalType, 0, len(enabled))
	for _, s := range models.AllSignals {
		if enabled[s] {
			sigs = append(sigs, s)
		}
	}
	return &models.BacktestRun{
		ID:               uuid.NewString(),
		Symbol:           e.cfg.Symbol,
		From:             from,
		To:               to,
		InitialCapital:   e.cfg.InitialCapitalDecimal(),
		LotSize:          e.cfg.LotSize,
		LotsToTrade:      e.cfg.LotsToTrade,
		Signals:          sigs,
		UseHedging:       e.cfg.UseHedging,
		HedgeOffset:      e.cfg.HedgeOffset,
		CommissionPerLot: e.cfg.CommissionPerLotDecimal(),
		SlippagePercent:  e.cfg.SlippagePercent,
		Status:           models.StatusPending,
	}
}

// loadCandles fetches the series, validates its intra-day grid, and folds it
// to hourly bars when the source interval is 5m. Signal rules and exit checks
// always operate on hourly bars.
func (e *Engine) loadCandles(ctx context.Context) ([]models.Candle, error) {
	from, to := e.cfg.Range()
	candles, err := e.provider.Candles(ctx, e.cfg.Symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading candles: %w", err)
	}
	if err := models.ValidateSeries(candles, e.cfg.IntervalDuration()); err != nil {
		return nil, err
	}
	if e.cfg.Interval == "5m" {
		candles = models.AggregateHourly(candles)
	}
	return candles, nil
}

func (e *Engine) fail(run *models.BacktestRun, err error) (*models.BacktestRun, error) {
	run.Status = models.StatusFailed
	run.ErrorMessage = err.Error()
	run.CompletedAt = time.Now()
	run.ComputeMetrics()
	e.log.WithField("run_id", run.ID).WithError(err).Error("backtest failed")
	return run, err
}

func (e *Engine) cancel(st *runState, err error) (*models.BacktestRun, error) {
	run := st.run
	run.Status = models.StatusCanceled
	run.ErrorMessage = err.Error()
	run.CompletedAt = time.Now()
	run.ComputeMetrics()
	e.log.WithField("run_id", run.ID).Warn("backtest canceled, partial results kept")
	return run, err
}

// rollWeek closes out the previous week's candles as the new reference week
// and derives the context for the week starting at ws. A thin reference week
// disables trading for the new week; the pass continues.
func (e *Engine) rollWeek(st *runState, ctxMgr *signals.ContextManager, ws time.Time) {
	st.prevWeek = st.weekCandles
	st.weekCandles = nil
	st.weekStart = ws
	st.tradedInWeek = make(map[models.SignalType]bool)
	st.pending = nil

	wc, err := ctxMgr.Derive(ws, st.prevWeek)
	if err != nil {
		var insufficient *models.InsufficientDataError
		if errors.As(err, &insufficient) {
			e.log.WithFields(logrus.Fields{
				"week_start": ws.Format("2006-01-02"),
				"have":       insufficient.Have,
				"need":       insufficient.Need,
			}).Warn("insufficient reference data, skipping week")
			st.weekCtx = nil
			return
		}
		st.weekCtx = nil
		return
	}
	st.weekCtx = wc
}

// handleTrigger opens a trade for the trigger unless this signal already
// traded this week.
func (e *Engine) handleTrigger(st *runState, trig *models.SignalTrigger) {
	if st.tradedInWeek[trig.Signal] {
		return
	}
	st.tradedInWeek[trig.Signal] = true

	trade := models.NewTrade(uuid.NewString(), st.weekStart, trig, st.weekCtx.Expiry)
	st.pending = append(st.pending, &pendingEntry{trade: trade, remaining: entryConfirmationCandles})
}

// advancePending counts pending trades down and enters those whose
// confirmation window elapsed at this candle's close.
func (e *Engine) advancePending(ctx context.Context, st *runState, c models.Candle) {
	var still []*pendingEntry
	for _, p := range st.pending {
		p.remaining--
		if p.remaining > 0 {
			still = append(still, p)
			continue
		}
		e.enterTrade(ctx, st, p.trade, c)
	}
	st.pending = still
}

// enterTrade builds and prices the trade's legs at the candle close. A
// pricing failure aborts the trade as Expired; nothing was filled.
func (e *Engine) enterTrade(ctx context.Context, st *runState, trade *models.Trade, c models.Candle) {
	if err := trade.TransitionState(models.StateEntered, "confirmation_elapsed"); err != nil {
		e.log.WithError(err).Error("entry transition rejected")
		return
	}

	// The strike is anchored at the trigger price, not the entry fill.
	optType := models.OptionTypeFor(trade.Direction)
	mainStrike := util.NearestStrike(trade.TriggerPrice, e.cfg.StrikeInterval)
	qty := e.cfg.LotSize * e.cfg.LotsToTrade

	legs := []*models.Position{{
		ID:         uuid.NewString(),
		TradeID:    trade.ID,
		Type:       models.PositionMain,
		OptionType: optType,
		Strike:     mainStrike,
		Expiry:     trade.Expiry,
		EntryTime:  c.Timestamp,
		Quantity:   -qty,
	}}
	if e.cfg.UseHedging {
		hedgeStrike := mainStrike + e.cfg.HedgeOffset
		if trade.Direction == models.DirectionBullish {
			hedgeStrike = mainStrike - e.cfg.HedgeOffset
		}
		legs = append(legs, &models.Position{
			ID:         uuid.NewString(),
			TradeID:    trade.ID,
			Type:       models.PositionHedge,
			OptionType: optType,
			Strike:     hedgeStrike,
			Expiry:     trade.Expiry,
			EntryTime:  c.Timestamp,
			Quantity:   qty,
		})
	}

	for _, leg := range legs {
		price, err := e.optionPrice(ctx, c, leg.Strike, leg.OptionType, leg.Expiry)
		if err != nil {
			e.abortPricing(st, trade, c, err)
			return
		}
		leg.EntryPrice = e.fillPrice(price, leg.IsShort(), true)
	}

	trade.Positions = legs
	trade.EntryTime = c.Timestamp
	trade.IndexAtEntry = c.Close
	trade.StopLoss = mainStrike
	if err := trade.TransitionState(models.StateOpen, "positions_opened"); err != nil {
		e.log.WithError(err).Error("open transition rejected")
		return
	}

	st.open = append(st.open, trade)
	st.run.Trades = append(st.run.Trades, trade)
	st.dayOpened++

	e.log.WithFields(logrus.Fields{
		"trade_id":    trade.ID,
		"signal":      trade.Signal,
		"direction":   trade.Direction,
		"main_strike": mainStrike,
		"entry_time":  c.Timestamp,
	}).Info("trade entered")
}

// abortPricing closes a trade that could not be priced at entry. No fill
// happened, so the trade carries no positions and settles as Expired.
func (e *Engine) abortPricing(st *runState, trade *models.Trade, c models.Candle, err error) {
	trade.Positions = nil
	if terr := trade.TransitionState(models.StateClosed, "pricing_failed"); terr != nil {
		e.log.WithError(terr).Error("abort transition rejected")
		return
	}
	trade.Outcome = models.OutcomeExpired
	trade.ExitReason = "pricing_failed"
	trade.ExitTime = c.Timestamp
	trade.IndexAtExit = c.Close
	trade.TotalPnL = decimal.Zero

	st.run.Trades = append(st.run.Trades, trade)
	st.dayClosed++

	e.log.WithFields(logrus.Fields{
		"trade_id": trade.ID,
		"signal":   trade.Signal,
	}).WithError(err).Warn("trade aborted, pricing failed")
}

// checkExits settles open trades at expiry and applies the stop-loss rule. The
// stop level is the main strike: a bullish trade (short put) stops when the
// index closes at or below it, a bearish trade (short call) at or above it.
func (e *Engine) checkExits(ctx context.Context, st *runState, c models.Candle) {
	var still []*models.Trade
	for _, t := range st.open {
		switch {
		case !c.Timestamp.Before(t.Expiry):
			e.settleAtExpiry(st, t, c)
		case e.stopHit(t, c):
			e.exitTrade(ctx, st, t, c, "stop_loss")
		default:
			still = append(still, t)
		}
	}
	st.open = still
}

func (e *Engine) stopHit(t *models.Trade, c models.Candle) bool {
	if t.Direction == models.DirectionBullish {
		return c.Close <= t.StopLoss
	}
	return c.Close >= t.StopLoss
}

// settleAtExpiry closes every leg at intrinsic value against the expiry
// candle's close.
func (e *Engine) settleAtExpiry(st *runState, t *models.Trade, c models.Candle) {
	for _, leg := range t.Positions {
		intrinsic := leg.OptionType.IntrinsicValue(c.Close, leg.Strike)
		leg.Close(c.Timestamp, decimal.NewFromFloat(intrinsic), e.cfg.LotSize, e.cfg.CommissionPerLotDecimal())
	}
	e.finalizeClose(st, t, c, "expiry")
}

// exitTrade closes every leg at its market price on the exit candle.
func (e *Engine) exitTrade(ctx context.Context, st *runState, t *models.Trade, c models.Candle, reason string) {
	for _, leg := range t.Positions {
		price, err := e.optionPrice(ctx, c, leg.Strike, leg.OptionType, leg.Expiry)
		if err != nil {
			// Exit pricing failure falls back to intrinsic so the trade
			// still closes deterministically.
			price = leg.OptionType.IntrinsicValue(c.Close, leg.Strike)
		}
		exit := e.fillPrice(price, leg.IsShort(), false)
		leg.Close(c.Timestamp, exit, e.cfg.LotSize, e.cfg.CommissionPerLotDecimal())
	}
	e.finalizeClose(st, t, c, reason)
}

func (e *Engine) finalizeClose(st *runState, t *models.Trade, c models.Candle, reason string) {
	if err := t.TransitionState(models.StateClosed, reason); err != nil {
		e.log.WithError(err).Error("close transition rejected")
		return
	}
	t.ExitTime = c.Timestamp
	t.IndexAtExit = c.Close
	t.ExitReason = reason
	t.TotalPnL = t.SumPositionPnL()
	if reason == "forced_close" {
		t.Outcome = models.OutcomeExpired
	} else if t.TotalPnL.IsPositive() {
		t.Outcome = models.OutcomeWin
	} else {
		t.Outcome = models.OutcomeLoss
	}

	st.dayPnL = st.dayPnL.Add(t.TotalPnL)
	st.dayClosed++

	e.log.WithFields(logrus.Fields{
		"trade_id": t.ID,
		"signal":   t.Signal,
		"reason":   reason,
		"outcome":  t.Outcome,
		"pnl":      t.TotalPnL,
	}).Info("trade closed")
}

// forceClose settles whatever is still open when the data runs out. Trades
// never entered are dropped; they held no positions.
func (e *Engine) forceClose(ctx context.Context, st *runState) {
	for _, p := range st.pending {
		e.log.WithFields(logrus.Fields{
			"trade_id": p.trade.ID,
			"signal":   p.trade.Signal,
		}).Debug("trigger expired unfilled at end of data")
	}
	st.pending = nil

	if len(st.open) == 0 {
		return
	}
	c := st.lastCandle
	for _, t := range st.open {
		e.exitTrade(ctx, st, t, c, "forced_close")
	}
	st.open = nil
}

// optionPrice returns the option price at the candle close: the historical
// quote when one exists, the theoretical price otherwise.
func (e *Engine) optionPrice(ctx context.Context, c models.Candle, strike float64, optType models.OptionType, expiry time.Time) (float64, error) {
	q, err := e.provider.OptionQuote(ctx, e.cfg.Symbol, c.Timestamp, strike, optType, expiry)
	if err == nil && q != nil {
		if mid := q.Mid(); mid > 0 {
			return mid, nil
		}
	}
	return e.pricer.PriceAt(c.Close, strike, optType, c.Timestamp, expiry)
}

// fillPrice applies slippage against the trade: shorts receive less premium
// and pay more to buy back, longs the reverse.
func (e *Engine) fillPrice(price float64, short, entry bool) decimal.Decimal {
	s := e.cfg.SlippagePercent
	sell := short == entry // short entry and long exit are sells
	if sell {
		price *= 1 - s
	} else {
		price *= 1 + s
	}
	return decimal.NewFromFloat(util.RoundToTick(price, 0.05))
}

// flushDay appends the finished day's ledger entry and resets the day
// accumulators.
func (st *runState) flushDay() {
	if !st.sawAnyCandle {
		return
	}
	ending := st.dayCapital.Add(st.dayPnL)
	st.run.DailyResults = append(st.run.DailyResults, models.DailyResult{
		Date:            st.day,
		StartingCapital: st.dayCapital,
		EndingCapital:   ending,
		DailyPnL:        st.dayPnL,
		TradesOpened:    st.dayOpened,
		TradesClosed:    st.dayClosed,
		OpenPositions:   len(st.open),
	})
	st.dayCapital = ending
	st.dayPnL = decimal.Zero
	st.dayOpened = 0
	st.dayClosed = 0
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
