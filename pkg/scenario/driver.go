package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/simforge/tradesim/pkg/clock"
	"github.com/simforge/tradesim/pkg/common"
	"github.com/simforge/tradesim/pkg/contract"
	"github.com/simforge/tradesim/pkg/engine"
)

// Driver replays a script against the market engine. Actions run strictly in
// order from a single goroutine; pacing between actions is a wall sleep of
// the simulated gap divided by the acceleration, while the engine's
// simulated-time cursor is advanced by the scripted offsets themselves.
// The context is the external stop flag, checked between actions.
type Driver struct {
	engine *engine.Engine
	clk    *clock.Simulated
	script *Script
}

func NewDriver(e *engine.Engine, clk *clock.Simulated, script *Script) *Driver {
	return &Driver{engine: e, clk: clk, script: script}
}

// Run executes every action. Generation and verification failures abort the
// run; they indicate a broken fixture, not a recoverable state.
func (d *Driver) Run(ctx context.Context) error {
	start := d.engine.Now()
	slog.Info("scenario started", "name", d.script.Name, "actions", len(d.script.Actions))

	for i, action := range d.script.Actions {
		if err := ctx.Err(); err != nil {
			return err
		}

		target := start.Add(action.At.Std())
		if gap := target.Sub(d.engine.Now()); gap > 0 {
			if err := d.pace(ctx, gap); err != nil {
				return err
			}
			d.engine.AdvanceTo(target)
		}

		if err := d.apply(ctx, action); err != nil {
			return fmt.Errorf("scenario %q: action %d (%s): %w", d.script.Name, i, action.Kind, err)
		}
	}

	slog.Info("scenario finished", "name", d.script.Name)
	return nil
}

func (d *Driver) apply(ctx context.Context, a Action) error {
	switch a.Kind {
	case KindSetPrice:
		return d.engine.SetPrice(ctx, a.Symbol, a.Bid, a.Ask)
	case KindMovePrice:
		return d.engine.MovePrice(ctx, a.Symbol, a.DeltaBid, a.DeltaAsk, a.Duration.Std())
	case KindGenerateWarmup:
		return d.engine.GenerateWarmupHistory(ctx, a.Symbol, a.Side(), a.Count, a.BasePrice)
	case KindGenerateEntryCandle:
		return d.engine.GenerateEntryCandle(ctx, a.Symbol, a.Side())
	case KindWait:
		if err := d.pace(ctx, a.Duration.Std()); err != nil {
			return err
		}
		d.engine.AdvanceTo(d.engine.Now().Add(a.Duration.Std()))
		return nil
	case KindVerify:
		return d.verify(a)
	}
	return fmt.Errorf("unknown kind %q", a.Kind)
}

func (d *Driver) verify(a Action) error {
	switch a.Check {
	case CheckFrozen:
		if !d.engine.Frozen(a.Symbol) {
			return fmt.Errorf("verify: %s is not frozen", a.Symbol)
		}
	case CheckContract:
		candles := d.engine.History(a.Symbol, d.engine.Timeframe(), 0, contract.SlowPeriod+1)
		res := contract.Validate(candles, a.Side())
		if !res.Satisfied {
			return fmt.Errorf("verify: %s %s contract unsatisfied (separation %s)",
				a.Symbol, a.Side().String(), res.SeparationPct)
		}
	}
	return nil
}

// pace sleeps the wall-scaled equivalent of a simulated gap, or returns
// early when the stop flag fires.
func (d *Driver) pace(ctx context.Context, simulated time.Duration) error {
	wall := d.clk.Scale(simulated)
	if wall <= 0 {
		return nil
	}

	timer := time.NewTimer(wall)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TickRecord is the (timestamp, bid, ask) tuple of one tick in printable
// form, used for determinism comparisons between runs.
type TickRecord struct {
	TimeStamp time.Time
	Bid       string
	Ask       string
}

func RecordOf(tick common.Tick) TickRecord {
	return TickRecord{TimeStamp: tick.TimeStamp, Bid: tick.Bid.String(), Ask: tick.Ask.String()}
}
