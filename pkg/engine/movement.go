package engine

import (
	"context"
	"time"

	"github.com/simforge/tradesim/pkg/utility/fixed"
)

// stepsPerSecond fixes the sub-step resolution of interpolated moves. Ten
// notifications per simulated second is also the notification rate limit.
const stepsPerSecond = 10

// MovePrice shifts the current quote by the given deltas. A zero deltaAsk
// follows deltaBid so the spread is preserved. With zero duration the delta
// is applied atomically and notified once; otherwise the move is split into
// max(1, seconds*10) equal sub-steps, each notified and paced with a wall
// sleep of duration/steps/acceleration. No lock is held across the sleeps.
func (e *Engine) MovePrice(ctx context.Context, symbol string, deltaBid, deltaAsk fixed.Point, duration time.Duration) error {
	st, ok := e.symbol(symbol)
	if !ok {
		return ErrUnknownSymbol
	}
	if deltaAsk.IsZero() {
		deltaAsk = deltaBid
	}

	st.mu.Lock()
	if !st.hasTick {
		st.mu.Unlock()
		return ErrNoQuote
	}
	startBid := st.tick.Bid
	startAsk := st.tick.Ask
	st.mu.Unlock()

	if startBid.Add(deltaBid).Gte(startAsk.Add(deltaAsk)) {
		return ErrCrossedQuote
	}

	if duration <= 0 {
		tick := e.newTick(symbol, startBid.Add(deltaBid), startAsk.Add(deltaAsk), e.Now())
		st.mu.Lock()
		st.tick = tick
		st.mu.Unlock()
		e.bus.Notify(ctx, tick)
		return nil
	}

	steps := int(duration.Seconds() * stepsPerSecond)
	if steps < 1 {
		steps = 1
	}
	simStep := duration / time.Duration(steps)
	wallStep := e.clk.Scale(simStep)
	base := e.Now()

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Interpolate from the start values so decimal rounding of the
		// per-step increment cannot drift the final price off target.
		bid := startBid.Add(deltaBid.MulInt(i).DivInt(steps))
		ask := startAsk.Add(deltaAsk.MulInt(i).DivInt(steps))
		ts := base.Add(time.Duration(i) * simStep)

		tick := e.newTick(symbol, bid, ask, ts)
		st.mu.Lock()
		st.tick = tick
		st.mu.Unlock()

		e.AdvanceTo(ts)
		e.bus.Notify(ctx, tick)

		if i < steps {
			time.Sleep(wallStep)
		}
	}
	return nil
}
