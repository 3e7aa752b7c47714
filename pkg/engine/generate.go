package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/simforge/tradesim/pkg/common"
	"github.com/simforge/tradesim/pkg/contract"
	"github.com/simforge/tradesim/pkg/utility/fixed"
)

const (
	// warmupMinCount is the floor on generated warm-up candles; the slow
	// contract window plus headroom.
	warmupMinCount = 60

	warmupMaxAttempts = 5
	entryMaxAttempts  = 5

	// entryDeadline bounds entry-candle generation in wall time.
	entryDeadline = 30 * time.Second

	// baseSlopePct is the per-candle drift of the warm-up trend, relative to
	// the base price, before phase and attempt multipliers.
	baseSlopePct = 0.0003

	// counterEvery spaces the counter-moves confined to the most recent
	// oscillator window; counterMagnitude sizes them against the local trend
	// step so the oscillator settles inside its band without reversing the
	// longer-window trend.
	counterEvery     = 3
	counterMagnitude = 1.2

	maxConsolidation = 3
)

// phaseMultiplier makes the warm-up progression non-linear: slow start,
// moderate middle, fast tail, so the recent fast window clearly diverges
// from the slow one.
func phaseMultiplier(i, n int) float64 {
	switch {
	case i < n/2:
		return 0.4
	case i < n*8/10:
		return 1.0
	default:
		return 2.0
	}
}

// GenerateWarmupHistory synthesizes a trend history of max(count, 60)
// candles ending at the current simulated time and commits it, replacing any
// earlier history on the timeframe. Each attempt regenerates with a slope
// multiplier escalated by x1.5; after five failed attempts the call fails
// loudly with ErrContractUnsatisfied. On success the latest close is
// republished as the current tick.
func (e *Engine) GenerateWarmupHistory(ctx context.Context, symbol string, direction common.Side, count int, basePrice fixed.Point) error {
	st, ok := e.symbol(symbol)
	if !ok {
		return ErrUnknownSymbol
	}

	lastClose, err := e.generateWarmup(ctx, st, symbol, direction, count, basePrice)
	if err != nil {
		return err
	}
	// Republished after genMu is released; subscriber callbacks never run
	// under an engine lock.
	return e.SetPrice(ctx, symbol, lastClose, fixed.Zero)
}

func (e *Engine) generateWarmup(ctx context.Context, st *symbolState, symbol string, direction common.Side, count int, basePrice fixed.Point) (fixed.Point, error) {
	e.genMu.Lock()
	defer e.genMu.Unlock()

	st.mu.Lock()
	frozen := st.isFrozen
	spec := st.spec
	st.mu.Unlock()
	if frozen {
		return fixed.Zero, ErrSymbolFrozen
	}

	n := count
	if n < warmupMinCount {
		n = warmupMinCount
	}
	end := e.Now().Truncate(e.tf.Duration())

	var lastRes contract.Result
	for attempt := 1; attempt <= warmupMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fixed.Zero, err
		}

		slopeMul := math.Pow(1.5, float64(attempt-1))
		candles := e.buildTrend(spec, direction, n, basePrice, slopeMul, end)

		lastRes = contract.Validate(candles, direction)
		if lastRes.Satisfied {
			st.mu.Lock()
			st.candles[e.tf] = candles
			st.mu.Unlock()

			last := candles[len(candles)-1]
			slog.Debug("warm-up history committed",
				"symbol", symbol, "direction", direction.String(),
				"candles", len(candles), "attempt", attempt,
				"separation", lastRes.SeparationPct, "oscillator", lastRes.Oscillator)
			return last.Close, nil
		}

		slog.Debug("warm-up attempt missed contract",
			"symbol", symbol, "attempt", attempt,
			"separation", lastRes.SeparationPct, "oscillator", lastRes.Oscillator)
	}

	return fixed.Zero, fmt.Errorf("warm-up for %s after %d attempts (separation %s, oscillator %s): %w",
		symbol, warmupMaxAttempts, lastRes.SeparationPct, lastRes.Oscillator, ErrContractUnsatisfied)
}

// buildTrend lays out n candles with a three-phase progression and periodic
// counter-moves confined to the most recent oscillator window.
func (e *Engine) buildTrend(spec common.SymbolSpec, direction common.Side, n int, basePrice fixed.Point, slopeMul float64, end time.Time) []common.Candle {
	dir := 1.0
	if direction == common.SideSell {
		dir = -1.0
	}

	base := mustFloat(basePrice)
	slope := base * baseSlopePct * slopeMul

	candles := make([]common.Candle, 0, n)
	price := basePrice
	tf := e.tf.Duration()

	for i := 0; i < n; i++ {
		step := dir * slope * phaseMultiplier(i, n)

		// Counter-moves live only in the most recent oscillator window,
		// keeping the oscillator off its extreme without touching the
		// longer-window trend.
		if i >= n-contract.OscPeriod && (n-1-i)%counterEvery == counterEvery-1 {
			step = -step * counterMagnitude
		}

		step *= e.randRange(0.9, 1.1)

		open := price
		closeP := clampPrice(open.Add(fixed.FromFloat64(step)), spec)
		candles = append(candles, e.assemble(spec, open, closeP, math.Abs(step), end.Add(time.Duration(i-n+1)*tf)))
		price = closeP
	}
	return candles
}

// GenerateEntryCandle appends one candle continuing the trend with an
// above-average range closing near its high (Buy) or low (Sell). When the
// prospective oscillator window would leave its band, up to three small
// consolidation candles precondition it first, each re-validated so
// corrective candles never erase the average separation. Attempts escalate
// (entry magnitude -10%, consolidation slope +20% per attempt) under a
// 30-second wall deadline; on failure everything is rolled back and the
// deadline, when hit, is reported as the cause. Success freezes the symbol.
func (e *Engine) GenerateEntryCandle(ctx context.Context, symbol string, direction common.Side) error {
	st, ok := e.symbol(symbol)
	if !ok {
		return ErrUnknownSymbol
	}

	entryClose, err := e.generateEntry(ctx, st, symbol, direction)
	if err != nil {
		return err
	}
	// Republished after genMu is released; subscriber callbacks never run
	// under an engine lock.
	return e.SetPrice(ctx, symbol, entryClose, fixed.Zero)
}

func (e *Engine) generateEntry(ctx context.Context, st *symbolState, symbol string, direction common.Side) (fixed.Point, error) {
	e.genMu.Lock()
	defer e.genMu.Unlock()

	st.mu.Lock()
	if st.isFrozen {
		st.mu.Unlock()
		return fixed.Zero, ErrSymbolFrozen
	}
	spec := st.spec
	history := append([]common.Candle(nil), st.candles[e.tf]...)
	st.mu.Unlock()

	if len(history) < contract.SlowPeriod {
		return fixed.Zero, ErrInsufficientHistory
	}

	deadline := time.Now().Add(entryDeadline)
	avgRange := trailingAvgRange(history, contract.FastPeriod)

	var lastRes contract.Result
	for attempt := 1; attempt <= entryMaxAttempts; attempt++ {
		if time.Now().After(deadline) {
			return fixed.Zero, fmt.Errorf("entry candle for %s rolled back at attempt %d: %w",
				symbol, attempt, ErrGenerationDeadline)
		}
		if err := ctx.Err(); err != nil {
			return fixed.Zero, err
		}

		entryRange := avgRange * e.randRange(0.70, 0.80) * math.Pow(0.9, float64(attempt-1))
		slopeMul := math.Pow(1.2, float64(attempt-1))

		working := append([]common.Candle(nil), history...)

		// Pre-condition the oscillator window with small consolidation
		// candles until the prospective entry lands in band.
		ok := true
		for c := 0; c < maxConsolidation; c++ {
			probe := e.entryCandle(spec, direction, lastCandle(working), entryRange)
			if contract.OscillatorInBand(oscWith(working, probe), direction) {
				break
			}

			working = append(working, e.consolidationCandle(spec, direction, lastCandle(working), avgRange*0.35*slopeMul, oscWith(working, probe)))
			if !contract.Validate(working, direction).Satisfied {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}

		candidate := e.entryCandle(spec, direction, lastCandle(working), entryRange)
		final := append(working, candidate)

		lastRes = contract.Validate(final, direction)
		if !lastRes.Satisfied || !contract.OscillatorInBand(lastRes.Oscillator, direction) {
			continue
		}

		st.mu.Lock()
		st.candles[e.tf] = final
		st.frozen = make(map[common.Timeframe][]common.Candle, len(st.candles))
		for tf, cs := range st.candles {
			st.frozen[tf] = append([]common.Candle(nil), cs...)
		}
		st.isFrozen = true
		st.mu.Unlock()

		slog.Debug("entry candle committed, symbol frozen",
			"symbol", symbol, "direction", direction.String(), "attempt", attempt,
			"consolidations", len(final)-len(history)-1,
			"separation", lastRes.SeparationPct, "oscillator", lastRes.Oscillator)
		return candidate.Close, nil
	}

	if time.Now().After(deadline) {
		return fixed.Zero, fmt.Errorf("entry candle for %s rolled back after %d attempts: %w",
			symbol, entryMaxAttempts, ErrGenerationDeadline)
	}
	return fixed.Zero, fmt.Errorf("entry candle for %s after %d attempts (separation %s, oscillator %s): %w",
		symbol, entryMaxAttempts, lastRes.SeparationPct, lastRes.Oscillator, ErrContractUnsatisfied)
}

// entryCandle builds the decision candle: body covering most of the target
// range, closing near the trend-side extreme.
func (e *Engine) entryCandle(spec common.SymbolSpec, direction common.Side, prev common.Candle, targetRange float64) common.Candle {
	dir := 1.0
	if direction == common.SideSell {
		dir = -1.0
	}

	open := prev.Close
	closeP := clampPrice(open.Add(fixed.FromFloat64(dir*targetRange*0.8)), spec)
	return e.assemble(spec, open, closeP, targetRange*0.2, prev.TimeStamp.Add(e.tf.Duration()))
}

// consolidationCandle builds a small candle nudging the oscillator back
// toward its band: against the trend when momentum is overextended past the
// band's extreme, with it when momentum is too weak.
func (e *Engine) consolidationCandle(spec common.SymbolSpec, direction common.Side, prev common.Candle, targetRange float64, osc fixed.Point) common.Candle {
	drift := 1.0
	if direction == common.SideBuy && osc.Gt(contract.BuyBandHigh) {
		drift = -1.0
	}
	if direction == common.SideSell {
		// Mirrored: a sell trend is overextended when the oscillator drops
		// below its band, too weak when it sits above.
		drift = -1.0
		if osc.Lt(contract.SellBandLow) {
			drift = 1.0
		}
	}

	open := prev.Close
	closeP := clampPrice(open.Add(fixed.FromFloat64(drift*targetRange*0.6*e.randRange(0.9, 1.1))), spec)
	return e.assemble(spec, open, closeP, targetRange*0.2, prev.TimeStamp.Add(e.tf.Duration()))
}

// assemble builds one candle with wicks around the body, rounded to the
// symbol's digits with the high/low envelope invariants enforced.
func (e *Engine) assemble(spec common.SymbolSpec, open, closeP fixed.Point, wickSize float64, ts time.Time) common.Candle {
	upper := fixed.Max(open, closeP)
	lower := fixed.Min(open, closeP)

	high := clampPrice(upper.Add(fixed.FromFloat64(wickSize*e.randRange(0.2, 0.5))), spec)
	low := clampPrice(lower.Sub(fixed.FromFloat64(wickSize*e.randRange(0.2, 0.5))), spec)

	// Rounding must never break the envelope.
	high = fixed.Max(high, upper)
	low = fixed.Min(low, lower)

	return common.Candle{
		TimeStamp: ts,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closeP,
		Volume:    fixed.FromInt(80+e.rng.Intn(40), 0),
		Spread:    spec.SpreadPrice(),
	}
}

func (e *Engine) randRange(lo, hi float64) float64 {
	return lo + e.rng.Float64()*(hi-lo)
}

func lastCandle(candles []common.Candle) common.Candle {
	return candles[len(candles)-1]
}

func oscWith(candles []common.Candle, next common.Candle) fixed.Point {
	tmp := append(append([]common.Candle(nil), candles...), next)
	return contract.Oscillator(tmp)
}

func trailingAvgRange(candles []common.Candle, period int) float64 {
	if len(candles) < period {
		period = len(candles)
	}
	ranges := make([]fixed.Point, 0, period)
	for _, c := range candles[len(candles)-period:] {
		ranges = append(ranges, c.Range())
	}
	return mustFloat(fixed.Mean(ranges))
}

func clampPrice(p fixed.Point, spec common.SymbolSpec) fixed.Point {
	return p.Rescale(spec.Digits)
}

func mustFloat(p fixed.Point) float64 {
	f, ok := p.Float64()
	if !ok {
		panic("fixed point out of float64 range")
	}
	return f
}
