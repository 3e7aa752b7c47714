// Package engine is the market side of the simulator: per-symbol tick state,
// committed candle history, scripted price movement and the contract-driven
// candle generation the trading logic's preconditions demand.
//
// Locking: one mutex per symbol guards that symbol's tick and candle state,
// and it is never held while a callback runs or a sleep is pending. The
// freeze mechanism makes a symbol's history immutable once a trading
// decision point is reached; the live tick keeps moving even on a frozen
// symbol, so a move interrupted by a freeze simply continues against the
// quote while the decision inputs stay stable.
package engine

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/simforge/tradesim/pkg/bus"
	"github.com/simforge/tradesim/pkg/clock"
	"github.com/simforge/tradesim/pkg/common"
	"github.com/simforge/tradesim/pkg/utility"
	"github.com/simforge/tradesim/pkg/utility/fixed"
)

const engineComponentName = "engine.market"

type symbolState struct {
	mu sync.Mutex

	spec    common.SymbolSpec
	tick    common.Tick
	hasTick bool

	candles map[common.Timeframe][]common.Candle

	frozen   map[common.Timeframe][]common.Candle
	isFrozen bool
}

type Option func(*Engine)

// WithTimeframe sets the timeframe generated candle history is committed to.
func WithTimeframe(tf common.Timeframe) Option {
	return func(e *Engine) {
		e.tf = tf
	}
}

// Engine owns current-tick state and candle history per symbol. It is the
// only writer of "the past"; the broker and the client under test only read.
type Engine struct {
	clk *clock.Simulated
	bus *bus.PriceBus
	tf  common.Timeframe

	// genMu serializes candle generation and guards the rng, keeping
	// scripted runs reproducible under concurrent scenarios.
	genMu sync.Mutex
	rng   *rand.Rand

	mu      sync.RWMutex
	now     time.Time
	symbols map[string]*symbolState
}

func NewEngine(clk *clock.Simulated, priceBus *bus.PriceBus, rng *rand.Rand, options ...Option) *Engine {
	e := &Engine{
		clk:     clk,
		bus:     priceBus,
		tf:      common.TimeframeM5,
		rng:     rng,
		now:     clk.Start(),
		symbols: make(map[string]*symbolState),
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Timeframe is the timeframe generated history is committed to.
func (e *Engine) Timeframe() common.Timeframe {
	return e.tf
}

func (e *Engine) AddSymbol(spec common.SymbolSpec) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.symbols[spec.Symbol] = &symbolState{
		spec:    spec,
		candles: make(map[common.Timeframe][]common.Candle),
	}
}

// Now returns the engine's simulated-time cursor. The cursor is advanced by
// the scenario driver and by interpolated moves, never by the wall clock, so
// replaying the same script yields identical timestamps.
func (e *Engine) Now() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.now
}

// AdvanceTo moves the simulated-time cursor forward. Moving backwards is a
// no-op, time never rewinds inside one run.
func (e *Engine) AdvanceTo(t time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t.After(e.now) {
		e.now = t
	}
}

func (e *Engine) symbol(name string) (*symbolState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, ok := e.symbols[name]
	return st, ok
}

// SetPrice instantly sets the current tick. A zero ask is derived from the
// symbol's configured spread. The update is fanned out after the symbol lock
// is released.
func (e *Engine) SetPrice(ctx context.Context, symbol string, bid, ask fixed.Point) error {
	st, ok := e.symbol(symbol)
	if !ok {
		return ErrUnknownSymbol
	}
	if ask.IsZero() {
		ask = bid.Add(st.spec.SpreadPrice())
	}
	if bid.Gte(ask) {
		return ErrCrossedQuote
	}

	tick := e.newTick(symbol, bid, ask, e.Now())

	st.mu.Lock()
	st.tick = tick
	st.hasTick = true
	st.mu.Unlock()

	e.bus.Notify(ctx, tick)
	return nil
}

// CurrentTick returns the latest quote of the symbol, if any.
func (e *Engine) CurrentTick(symbol string) (common.Tick, bool) {
	st, ok := e.symbol(symbol)
	if !ok {
		return common.Tick{}, false
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.tick, st.hasTick
}

func (e *Engine) SymbolSpec(symbol string) (common.SymbolSpec, bool) {
	st, ok := e.symbol(symbol)
	if !ok {
		return common.SymbolSpec{}, false
	}
	return st.spec, true
}

// History returns up to count committed candles ending offset candles before
// the most recent one, oldest first. Asking for more than is stored returns
// the available prefix; the window is never padded with duplicated candles,
// padding would silently corrupt oscillator calculations downstream.
// After a freeze the result is served from an immutable snapshot, so two
// reads during the freeze window are guaranteed identical.
func (e *Engine) History(symbol string, tf common.Timeframe, offset, count int) []common.Candle {
	st, ok := e.symbol(symbol)
	if !ok || count <= 0 || offset < 0 {
		return nil
	}

	st.mu.Lock()
	src := st.candles[tf]
	if st.isFrozen {
		src = st.frozen[tf]
	}

	end := len(src) - offset
	if end <= 0 {
		st.mu.Unlock()
		return nil
	}
	start := end - count
	if start < 0 {
		start = 0
	}
	out := make([]common.Candle, end-start)
	copy(out, src[start:end])
	st.mu.Unlock()

	return out
}

// Frozen reports whether the symbol's history reached its freeze point.
func (e *Engine) Frozen(symbol string) bool {
	st, ok := e.symbol(symbol)
	if !ok {
		return false
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.isFrozen
}

// WaitTick blocks until the symbol has a quote or the timeout elapses.
// A timeout is a normal, logged outcome resolving to "assume absent".
func (e *Engine) WaitTick(ctx context.Context, symbol string, timeout time.Duration) (common.Tick, bool) {
	deadline := time.Now().Add(timeout)
	for {
		if tick, ok := e.CurrentTick(symbol); ok {
			return tick, true
		}
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			slog.Warn("tick wait timed out, assuming absent",
				"symbol", symbol, "timeout", timeout)
			return common.Tick{}, false
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (e *Engine) newTick(symbol string, bid, ask fixed.Point, ts time.Time) common.Tick {
	return common.Tick{
		Bid:         bid,
		Ask:         ask,
		Source:      engineComponentName,
		Symbol:      symbol,
		ExecutionId: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   ts,
	}
}
