// Package clock provides the authoritative simulated time of a run. Wall
// clock elapsed time is converted into simulated time through a fixed
// acceleration factor, so a multi-hour trading session can be replayed in
// seconds while sleeps and timeouts keep their scripted proportions.
package clock

import (
	"errors"
	"time"
)

var ErrInvalidAcceleration = errors.New("clock: acceleration factor must be > 0")

// Simulated converts wall time into simulated time. The acceleration factor
// is fixed at construction, changing it mid-run is unsupported.
type Simulated struct {
	start     time.Time
	wallStart time.Time
	accel     float64
}

func NewSimulated(start time.Time, acceleration float64) (*Simulated, error) {
	if acceleration <= 0 {
		return nil, ErrInvalidAcceleration
	}
	return &Simulated{
		start:     start,
		wallStart: time.Now(),
		accel:     acceleration,
	}, nil
}

// Now returns start + elapsed_wall * acceleration. No side effects, no
// blocking.
func (c *Simulated) Now() time.Time {
	elapsed := time.Since(c.wallStart)
	return c.start.Add(time.Duration(float64(elapsed) * c.accel))
}

// Start returns the simulated time the run began at.
func (c *Simulated) Start() time.Time {
	return c.start
}

func (c *Simulated) Acceleration() float64 {
	return c.accel
}

// Scale converts a simulated duration into the wall duration it takes to
// pass. Used for pacing sleeps between scripted price sub-steps.
func (c *Simulated) Scale(simulated time.Duration) time.Duration {
	if simulated <= 0 {
		return 0
	}
	return time.Duration(float64(simulated) / c.accel)
}
