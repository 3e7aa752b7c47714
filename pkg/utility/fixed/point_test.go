package fixed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoint_Arithmetic(t *testing.T) {
	tests := []struct {
		name     string
		actual   func() Point
		expected Point
	}{
		{"One + One", func() Point { return One.Add(One) }, FromInt(2, 0)},
		{"Ten - One", func() Point { return Ten.Sub(One) }, FromInt(9, 0)},
		{"Ten * Ten", func() Point { return Ten.Mul(Ten) }, Hundred},
		{"One / Ten", func() Point { return One.Div(Ten) }, FromFloat64(0.1)},
		{"Hundred / 4", func() Point { return Hundred.DivInt(4) }, FromInt(25, 0)},
		{"0.1 * 3", func() Point { return FromFloat64(0.1).MulInt(3) }, FromFloat64(0.3)},
		{"neg abs", func() Point { return FromInt(-5, 0).Abs() }, FromInt(5, 0)},
		{"neg", func() Point { return One.Neg() }, FromInt(-1, 0)},
		{"sqrt", func() Point { return FromInt(9, 0).Sqrt() }, FromInt(3, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.actual()
			assert.True(t, got.Eq(tt.expected), "got %s, want %s", got, tt.expected)
		})
	}
}

func TestPoint_ExactPipArithmetic(t *testing.T) {
	// 5-digit forex arithmetic must stay exact, binary floats would drift here.
	entry := FromFloat64(1.10010)
	mark := FromFloat64(1.10060)
	volume := FromFloat64(0.01)
	contract := FromInt(100000, 0)

	profit := mark.Sub(entry).Mul(volume).Mul(contract)
	assert.True(t, profit.Eq(FromFloat64(0.5)), "got %s", profit)

	f, ok := profit.Float64()
	require.True(t, ok)
	assert.InDelta(t, 0.5, f, 1e-9)
}

func TestPoint_Comparisons(t *testing.T) {
	assert.True(t, Zero.IsZero())
	assert.False(t, One.IsZero())
	assert.True(t, One.IsPositive())
	assert.True(t, One.Neg().IsNegative())
	assert.True(t, One.Gt(Zero))
	assert.True(t, Zero.Lt(One))
	assert.True(t, One.Gte(One))
	assert.True(t, One.Lte(One))
	assert.True(t, One.Eq(FromFloat64(1.0)))
}

func TestPoint_MinMax(t *testing.T) {
	assert.True(t, Min(One, Ten).Eq(One))
	assert.True(t, Max(One, Ten).Eq(Ten))
}

func TestPoint_TextRoundTrip(t *testing.T) {
	in := FromFloat64(1.23456)

	data, err := in.MarshalText()
	require.NoError(t, err)

	var out Point
	require.NoError(t, out.UnmarshalText(data))
	assert.True(t, in.Eq(out))

	parsed, err := Parse("1.23456")
	require.NoError(t, err)
	assert.True(t, in.Eq(parsed))
}

func TestMath_MeanStdDev(t *testing.T) {
	points := []Point{FromInt(2, 0), FromInt(4, 0), FromInt(4, 0), FromInt(4, 0), FromInt(5, 0), FromInt(5, 0), FromInt(7, 0), FromInt(9, 0)}

	mean := Mean(points)
	assert.True(t, mean.Eq(FromInt(5, 0)))
	assert.True(t, StdDev(points, mean).Eq(FromInt(2, 0)))

	assert.True(t, Mean(nil).IsZero())
	assert.True(t, StdDev([]Point{One}, One).IsZero())
}
