// Package contract recomputes the statistical trend preconditions the
// trading logic demands from a candle window: moving-average separation
// between a fast and a slow window, and a momentum oscillator over the most
// recent candles. Validation is a pure function of its input, deterministic
// given identical candles.
package contract

import (
	"github.com/simforge/tradesim/pkg/common"
	"github.com/simforge/tradesim/pkg/utility/fixed"
)

const (
	// FastPeriod and SlowPeriod are the rolling-average windows the trend
	// contract compares.
	FastPeriod = 20
	SlowPeriod = 50

	// OscPeriod is the oscillator lookback.
	OscPeriod = 14
)

// MinSeparation is the required relative distance between the fast and slow
// averages, 0.05%.
var MinSeparation = fixed.FromFloat64(0.0005)

// Oscillator target bands used by candle generation. A trending-up window
// should read strong but not pinned at the top; mirrored for down.
var (
	BuyBandLow   = fixed.FromInt(55, 0)
	BuyBandHigh  = fixed.FromInt(75, 0)
	SellBandLow  = fixed.FromInt(25, 0)
	SellBandHigh = fixed.FromInt(45, 0)
)

// Result reports pass/fail plus the raw figures so generation retry loops
// can log what they were short of.
type Result struct {
	Satisfied     bool
	FastAvg       fixed.Point
	SlowAvg       fixed.Point
	SeparationPct fixed.Point
	Oscillator    fixed.Point
}

// Validate recomputes the trend contract over the tail of the window.
// For Buy the fast average must exceed the slow one by at least
// MinSeparation relative to the slow; for Sell the inequality is mirrored.
func Validate(candles []common.Candle, direction common.Side) Result {
	res := Result{}
	if len(candles) < SlowPeriod {
		return res
	}

	res.FastAvg = closeMean(candles, FastPeriod)
	res.SlowAvg = closeMean(candles, SlowPeriod)
	res.Oscillator = Oscillator(candles)

	if res.SlowAvg.IsZero() {
		return res
	}
	res.SeparationPct = res.FastAvg.Sub(res.SlowAvg).Div(res.SlowAvg)

	switch direction {
	case common.SideBuy:
		res.Satisfied = res.FastAvg.Gt(res.SlowAvg) && res.SeparationPct.Gte(MinSeparation)
	case common.SideSell:
		res.Satisfied = res.SlowAvg.Gt(res.FastAvg) && res.SeparationPct.Neg().Gte(MinSeparation)
	}
	return res
}

// Oscillator computes an RSI-style momentum value over the most recent
// OscPeriod deltas. 50 means flat, 100 straight up, 0 straight down.
func Oscillator(candles []common.Candle) fixed.Point {
	if len(candles) < OscPeriod+1 {
		return fixed.FromInt(50, 0)
	}

	tail := candles[len(candles)-OscPeriod-1:]
	gains := fixed.Zero
	losses := fixed.Zero

	for i := 1; i < len(tail); i++ {
		delta := tail[i].Close.Sub(tail[i-1].Close)
		if delta.IsPositive() {
			gains = gains.Add(delta)
		} else {
			losses = losses.Add(delta.Abs())
		}
	}

	if losses.IsZero() {
		if gains.IsZero() {
			return fixed.FromInt(50, 0)
		}
		return fixed.Hundred
	}

	avgGain := gains.DivInt(OscPeriod)
	avgLoss := losses.DivInt(OscPeriod)
	rs := avgGain.Div(avgLoss)

	return fixed.Hundred.Sub(fixed.Hundred.Div(fixed.One.Add(rs)))
}

// OscillatorInBand reports whether the oscillator value sits inside the
// generation target band for the direction.
func OscillatorInBand(osc fixed.Point, direction common.Side) bool {
	if direction == common.SideSell {
		return osc.Gte(SellBandLow) && osc.Lte(SellBandHigh)
	}
	return osc.Gte(BuyBandLow) && osc.Lte(BuyBandHigh)
}

func closeMean(candles []common.Candle, period int) fixed.Point {
	tail := candles[len(candles)-period:]
	sum := fixed.Zero
	for _, c := range tail {
		sum = sum.Add(c.Close)
	}
	return sum.DivInt(period)
}
