package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSimulated_RejectsNonPositiveAcceleration(t *testing.T) {
	for _, accel := range []float64{0, -1, -0.5} {
		_, err := NewSimulated(time.Now(), accel)
		assert.ErrorIs(t, err, ErrInvalidAcceleration)
	}
}

func TestSimulated_NowAdvancesAccelerated(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c, err := NewSimulated(start, 100)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	elapsed := c.Now().Sub(start)
	// 20ms wall at x100 is 2s simulated, allow generous scheduler slack.
	assert.GreaterOrEqual(t, elapsed, 2*time.Second)
	assert.Less(t, elapsed, 30*time.Second)
}

func TestSimulated_Scale(t *testing.T) {
	c, err := NewSimulated(time.Now(), 60)
	require.NoError(t, err)

	assert.Equal(t, time.Second, c.Scale(time.Minute))
	assert.Equal(t, time.Duration(0), c.Scale(0))
	assert.Equal(t, time.Duration(0), c.Scale(-time.Second))
	assert.Equal(t, 60.0, c.Acceleration())
	assert.Equal(t, c.Start(), c.Start())
}
