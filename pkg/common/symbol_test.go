package common

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/simforge/tradesim/pkg/utility/fixed"
)

func eurUsd() SymbolSpec {
	return SymbolSpec{
		Symbol:       "EURUSD",
		Point:        fixed.FromFloat64(0.00001),
		Digits:       5,
		SpreadPips:   fixed.One,
		ContractSize: fixed.FromInt(100000, 0),
	}
}

func TestSymbolSpec_PipConversions(t *testing.T) {
	spec := eurUsd()

	assert.True(t, spec.PipSize().Eq(fixed.FromFloat64(0.0001)))
	assert.True(t, spec.SpreadPrice().Eq(fixed.FromFloat64(0.0001)))
}

func TestCandle_RangeAndDirection(t *testing.T) {
	c := Candle{
		Open:  fixed.FromFloat64(1.1000),
		High:  fixed.FromFloat64(1.1010),
		Low:   fixed.FromFloat64(1.0995),
		Close: fixed.FromFloat64(1.1008),
	}

	assert.True(t, c.Range().Eq(fixed.FromFloat64(0.0015)))
	assert.True(t, c.Bullish())

	c.Close = fixed.FromFloat64(1.0998)
	assert.False(t, c.Bullish())
}

func TestTick_Mid(t *testing.T) {
	tick := Tick{Bid: fixed.FromFloat64(1.1000), Ask: fixed.FromFloat64(1.1002)}
	assert.True(t, tick.Mid().Eq(fixed.FromFloat64(1.1001)))
}

func TestSide_String(t *testing.T) {
	assert.Equal(t, "buy", SideBuy.String())
	assert.Equal(t, "sell", SideSell.String())
}
