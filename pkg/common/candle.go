package common

import (
	"time"

	"github.com/simforge/tradesim/pkg/utility/fixed"
)

type Timeframe time.Duration

const (
	TimeframeM1  = Timeframe(time.Minute)
	TimeframeM5  = Timeframe(5 * time.Minute)
	TimeframeM15 = Timeframe(15 * time.Minute)
	TimeframeM30 = Timeframe(30 * time.Minute)
	TimeframeH1  = Timeframe(time.Hour)
)

func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf)
}

// Candle summarizes price action over one timeframe bucket. Within one
// symbol/timeframe candle timestamps are strictly increasing, and
// High >= max(Open, Close), Low <= min(Open, Close) always hold.
type Candle struct {
	TimeStamp time.Time   `json:"ts"`
	Open      fixed.Point `json:"open"`
	High      fixed.Point `json:"high"`
	Low       fixed.Point `json:"low"`
	Close     fixed.Point `json:"close"`
	Volume    fixed.Point `json:"volume"`
	Spread    fixed.Point `json:"spread"`
}

// Range is the high-low extent of the candle.
func (c Candle) Range() fixed.Point {
	return c.High.Sub(c.Low)
}

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool {
	return c.Close.Gt(c.Open)
}
