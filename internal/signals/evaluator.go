package signals

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"niftybacktest/internal/models"
)

// S7 skips breakouts that stall within this percent gap below the previous
// week's high.
const minBreakoutGapPct = 0.40

// Evaluator applies the fixed S1..S8 catalog in priority order. Each rule is a
// pure predicate over (current candle, current-week history, weekly context);
// the first match wins, so a candle triggers at most one signal.
type Evaluator struct {
	enabled map[models.SignalType]bool
	log     *logrus.Logger
}

// NewEvaluator creates an evaluator restricted to the enabled signal set.
func NewEvaluator(enabled map[models.SignalType]bool, log *logrus.Logger) *Evaluator {
	if log == nil {
		log = logrus.New()
	}
	return &Evaluator{enabled: enabled, log: log}
}

type rule func(cur models.Candle, week []models.Candle, ctx *models.WeeklyContext) bool

// Evaluate checks the catalog against the latest candle of the week's running
// history (week must be ordered, current candle last). Returns nil when no
// rule matches; a rule short on in-week history skips silently.
func (e *Evaluator) Evaluate(week []models.Candle, ctx *models.WeeklyContext, candleIndex int) *models.SignalTrigger {
	if len(week) == 0 || ctx == nil {
		return nil
	}
	cur := week[len(week)-1]

	catalog := []struct {
		signal models.SignalType
		match  rule
	}{
		{models.SignalS1, e.evaluateS1},
		{models.SignalS2, e.evaluateS2},
		{models.SignalS3, e.evaluateS3},
		{models.SignalS4, e.evaluateS4},
		{models.SignalS5, e.evaluateS5},
		{models.SignalS6, e.evaluateS6},
		{models.SignalS7, e.evaluateS7},
		{models.SignalS8, e.evaluateS8},
	}

	for _, entry := range catalog {
		if !e.enabled[entry.signal] {
			continue
		}
		if !entry.match(cur, week, ctx) {
			continue
		}
		e.log.WithFields(logrus.Fields{
			"signal":    entry.signal,
			"direction": entry.signal.Direction(),
			"time":      cur.Timestamp,
			"close":     cur.Close,
		}).Info("signal triggered")
		return &models.SignalTrigger{
			Signal:       entry.signal,
			Direction:    entry.signal.Direction(),
			TriggerTime:  cur.Timestamp,
			TriggerPrice: cur.Close,
			CandleIndex:  candleIndex,
		}
	}
	return nil
}

// S1: bear trap. A fake breakdown below support on the week's first candle
// that recovers on the second.
func (e *Evaluator) evaluateS1(cur models.Candle, week []models.Candle, ctx *models.WeeklyContext) bool {
	if len(week) != 2 {
		return false
	}
	first := week[0]
	z := ctx.Zones
	return first.Open >= z.SupportBottom &&
		first.Close < z.SupportBottom &&
		cur.Close > first.Low
}

// S2: support hold with bullish bias, second candle only.
func (e *Evaluator) evaluateS2(cur models.Candle, week []models.Candle, ctx *models.WeeklyContext) bool {
	if len(week) != 2 || !ctx.Bias.IsBullish() {
		return false
	}
	first := week[0]
	z := ctx.Zones
	return first.Open > ctx.PrevWeekLow &&
		z.IsNearSupport(ctx.PrevWeekClose) &&
		z.IsNearSupport(first.Open) &&
		first.Close >= z.SupportBottom &&
		first.Close >= ctx.PrevWeekClose &&
		cur.Close >= first.Low &&
		cur.Close > ctx.PrevWeekClose &&
		cur.Close > z.SupportBottom
}

// S3: resistance hold with bearish bias. Scenario A is a second-candle
// rejection at the resistance band; scenario B a breakdown below the week's
// prior lows.
func (e *Evaluator) evaluateS3(cur models.Candle, week []models.Candle, ctx *models.WeeklyContext) bool {
	if !ctx.Bias.IsBearish() {
		return false
	}
	first := week[0]
	z := ctx.Zones
	if !z.IsNearResistance(ctx.PrevWeekClose) ||
		!z.IsNearResistance(first.Open) ||
		first.Close > ctx.PrevWeekHigh {
		return false
	}

	if len(week) == 2 {
		touchedZone := first.High >= z.ResistanceBottom || cur.High >= z.ResistanceBottom
		if touchedZone && cur.Close < first.High && cur.Close < z.ResistanceBottom {
			return true
		}
	}

	if len(week) > 1 {
		lo, loClose := weekMins(week[:len(week)-1])
		if cur.Close < first.Low &&
			cur.Close < z.ResistanceBottom &&
			cur.Close < lo && cur.Close < loClose {
			return true
		}
	}
	return false
}

// S4: bearish bias failure. The week opens above resistance and the breakout
// progression confirms on this candle.
func (e *Evaluator) evaluateS4(cur models.Candle, week []models.Candle, ctx *models.WeeklyContext) bool {
	if !ctx.Bias.IsBearish() {
		return false
	}
	if week[0].Open <= ctx.Zones.ResistanceTop {
		return false
	}
	return breakoutJustFired(week)
}

// S5: bullish bias failure. The week opens below support and breaks under the
// first hour's low.
func (e *Evaluator) evaluateS5(cur models.Candle, week []models.Candle, ctx *models.WeeklyContext) bool {
	if !ctx.Bias.IsBullish() {
		return false
	}
	first := week[0]
	z := ctx.Zones
	return first.Open < z.SupportBottom &&
		first.Close < z.SupportBottom &&
		first.Close < ctx.PrevWeekLow &&
		cur.Close < first.Low
}

// S6: weakness confirmed. S3's trigger scenarios with a looser resistance
// precondition.
func (e *Evaluator) evaluateS6(cur models.Candle, week []models.Candle, ctx *models.WeeklyContext) bool {
	if !ctx.Bias.IsBearish() {
		return false
	}
	first := week[0]
	z := ctx.Zones
	if first.High < z.ResistanceBottom ||
		first.Close > z.ResistanceTop ||
		first.Close > ctx.PrevWeekHigh {
		return false
	}

	if len(week) == 2 {
		if cur.Close < first.High && cur.Close < z.ResistanceBottom {
			return true
		}
	}

	if len(week) > 1 {
		lo, loClose := weekMins(week[:len(week)-1])
		if cur.Close < first.Low &&
			cur.Close < z.ResistanceBottom &&
			cur.Close < lo && cur.Close < loClose {
			return true
		}
	}
	return false
}

// S7: strongest breakout. The breakout progression confirms and the close
// clears every prior high and close of the week.
func (e *Evaluator) evaluateS7(cur models.Candle, week []models.Candle, ctx *models.WeeklyContext) bool {
	if !breakoutJustFired(week) {
		return false
	}
	if cur.Close < ctx.PrevWeekHigh {
		gapPct := (ctx.PrevWeekHigh - cur.Close) / cur.Close * 100
		if gapPct < minBreakoutGapPct {
			return false
		}
	}
	if len(week) < 2 {
		return false
	}
	hi, hiClose := weekMaxes(week[:len(week)-1])
	return cur.Close > hi && cur.Close > hiClose
}

// S8: strongest breakdown, mirror of S7. Requires the week to have touched the
// resistance band first.
func (e *Evaluator) evaluateS8(cur models.Candle, week []models.Candle, ctx *models.WeeklyContext) bool {
	if !breakdownJustFired(week) {
		return false
	}
	z := ctx.Zones
	touched := false
	for _, c := range week {
		if c.High >= z.ResistanceBottom {
			touched = true
			break
		}
	}
	if !touched || cur.Close >= z.ResistanceBottom {
		return false
	}
	if len(week) < 2 {
		return false
	}
	lo, loClose := weekMins(week[:len(week)-1])
	return cur.Close < lo && cur.Close < loClose
}

// breakoutProgression folds over the week's candles tracking the two-stage
// breakout: same-day closes above the first hour's high fire directly; on
// later days a breakout candle must form first, then a close above its high
// fires.
func breakoutProgression(week []models.Candle) bool {
	if len(week) == 0 {
		return false
	}
	firstHour := week[0]
	firstHourDay := dateOf(firstHour.Timestamp)

	highestHigh := 0.0
	breakoutHigh := math.NaN()
	for _, c := range week {
		highestHighBefore := highestHigh
		if c.High > highestHigh {
			highestHigh = c.High
		}
		if dateOf(c.Timestamp).Equal(firstHourDay) {
			if c.Close > firstHour.High {
				return true
			}
			continue
		}
		if math.IsNaN(breakoutHigh) {
			if c.IsBullish() && c.Close > firstHour.High && c.High >= highestHighBefore {
				breakoutHigh = c.High
			}
			continue
		}
		if c.Close > breakoutHigh {
			return true
		}
	}
	return false
}

// breakoutJustFired reports whether the progression confirms on the latest
// candle and not on any earlier one.
func breakoutJustFired(week []models.Candle) bool {
	if !breakoutProgression(week) {
		return false
	}
	if len(week) < 2 {
		return true
	}
	firstHourHigh := week[0].High
	for _, c := range week[:len(week)-1] {
		if c.Close > firstHourHigh {
			return false
		}
	}
	return true
}

func breakdownProgression(week []models.Candle) bool {
	if len(week) == 0 {
		return false
	}
	firstHour := week[0]
	firstHourDay := dateOf(firstHour.Timestamp)

	lowestLow := math.Inf(1)
	breakdownLow := math.NaN()
	for _, c := range week {
		lowestLowBefore := lowestLow
		if c.Low < lowestLow {
			lowestLow = c.Low
		}
		if dateOf(c.Timestamp).Equal(firstHourDay) {
			if c.Close < firstHour.Low {
				return true
			}
			continue
		}
		if math.IsNaN(breakdownLow) {
			if !c.IsBullish() && c.Close < firstHour.Low && c.Low <= lowestLowBefore {
				breakdownLow = c.Low
			}
			continue
		}
		if c.Close < breakdownLow {
			return true
		}
	}
	return false
}

func breakdownJustFired(week []models.Candle) bool {
	if !breakdownProgression(week) {
		return false
	}
	if len(week) < 2 {
		return true
	}
	firstHourLow := week[0].Low
	for _, c := range week[:len(week)-1] {
		if c.Close < firstHourLow {
			return false
		}
	}
	return true
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func weekMins(bars []models.Candle) (low, closeLow float64) {
	low, closeLow = math.Inf(1), math.Inf(1)
	for _, c := range bars {
		if c.Low < low {
			low = c.Low
		}
		if c.Close < closeLow {
			closeLow = c.Close
		}
	}
	return low, closeLow
}

func weekMaxes(bars []models.Candle) (high, closeHigh float64) {
	high, closeHigh = math.Inf(-1), math.Inf(-1)
	for _, c := range bars {
		if c.High > high {
			high = c.High
		}
		if c.Close > closeHigh {
			closeHigh = c.Close
		}
	}
	return high, closeHigh
}
