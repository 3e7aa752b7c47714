// Package broker emulates the execution side of a trading terminal: market
// order execution, the open-position book, stop-loss and take-profit
// enforcement on every tick, and the account ledger.
//
// Order-level problems are returned as result values, never as errors, so a
// client's retry and backoff logic behaves exactly as it would against a
// production broker. One mutex guards the book and the ledger; it is never
// held while a close listener runs, and reading the quote source takes no
// broker lock at all.
package broker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/simforge/tradesim/pkg/common"
	"github.com/simforge/tradesim/pkg/utility"
	"github.com/simforge/tradesim/pkg/utility/fixed"
)

const brokerComponentName = "broker.sandbox"

// CloseReason states why a position left the book.
type CloseReason string

const (
	CloseStopLoss   CloseReason = "stop-loss"
	CloseTakeProfit CloseReason = "take-profit"
	CloseManual     CloseReason = "manual"
)

// ClosedPosition is one ledger entry: the final state of a position plus why
// and when it closed. Profit is already realized into the balance.
type ClosedPosition struct {
	Position common.Position `json:"position"`
	Reason   CloseReason     `json:"reason"`
	ClosedAt time.Time       `json:"closed_at"`
}

// CloseListener observes realized closes. Listeners run outside the book
// lock and may call back into the broker.
type CloseListener func(ClosedPosition)

// QuoteSource is the read surface the broker needs from the market side.
type QuoteSource interface {
	CurrentTick(symbol string) (common.Tick, bool)
	SymbolSpec(symbol string) (common.SymbolSpec, bool)
}

// Broker owns the position book and the ledger. It only reads market state,
// never mutates it.
type Broker struct {
	quotes QuoteSource
	now    func() time.Time

	mu          sync.Mutex
	balance     fixed.Point
	nextTicket  common.Ticket
	positions   map[common.Ticket]*common.Position
	closed      map[common.Ticket]ClosedPosition
	history     []ClosedPosition
	minInterval time.Duration
	lastOrder   time.Time

	listenerMu sync.Mutex
	listeners  []CloseListener
}

func NewBroker(quotes QuoteSource, options ...Option) *Broker {
	b := &Broker{
		quotes:    quotes,
		now:       time.Now,
		balance:   fixed.FromInt(10000, 0),
		positions: make(map[common.Ticket]*common.Position),
		closed:    make(map[common.Ticket]ClosedPosition),
	}
	for _, option := range options {
		option(b)
	}
	return b
}

// OnClose registers a listener for realized closes.
func (b *Broker) OnClose(fn CloseListener) {
	if fn == nil {
		panic("broker: nil close listener")
	}
	b.listenerMu.Lock()
	b.listeners = append(b.listeners, fn)
	b.listenerMu.Unlock()
}

// SubmitOrder executes a market order against the current quote. Buys fill
// at the ask, sells at the bid. A stop loss on a new position must sit on
// the protective side of entry; moving it onto the profit side is only
// possible through ModifyOrder.
func (b *Broker) SubmitOrder(ctx context.Context, req common.OrderRequest) common.OrderResult {
	if !req.Volume.IsPositive() {
		return common.OrderResult{Code: common.RejectedInvalidVolume}
	}

	spec, ok := b.quotes.SymbolSpec(req.Symbol)
	if !ok {
		return common.OrderResult{Code: common.NotFound}
	}
	tick, ok := b.quotes.CurrentTick(req.Symbol)
	if !ok {
		// No quote yet reads as a closed market.
		return common.OrderResult{Code: common.RejectedMarketClosed}
	}

	entry := tick.Ask
	current := tick.Bid
	if req.Side == common.SideSell {
		entry = tick.Bid
		current = tick.Ask
	}

	if !stopsValidForEntry(req.Side, entry, req.StopLoss, req.TakeProfit) {
		return common.OrderResult{Code: common.RejectedInvalidStops}
	}

	now := b.now()

	b.mu.Lock()
	if b.minInterval > 0 && !b.lastOrder.IsZero() && now.Sub(b.lastOrder) < b.minInterval {
		b.mu.Unlock()
		return common.OrderResult{Code: common.RejectedRateLimited}
	}
	b.lastOrder = now

	b.nextTicket++
	ticket := b.nextTicket
	pos := &common.Position{
		Ticket:       ticket,
		Side:         req.Side,
		Volume:       req.Volume,
		EntryPrice:   entry,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
		CurrentPrice: current,
		Profit:       profit(req.Side, entry, current, req.Volume, spec.ContractSize),
		Source:       brokerComponentName,
		Symbol:       req.Symbol,
		ExecutionID:  utility.GetExecutionID(),
		TraceID:      req.TraceID,
		OpenedAt:     now,
	}
	b.positions[ticket] = pos
	b.mu.Unlock()

	slog.Debug("order filled",
		"ticket", ticket, "symbol", req.Symbol, "side", req.Side.String(),
		"volume", req.Volume, "entry", entry, "sl", req.StopLoss, "tp", req.TakeProfit)
	return common.OrderResult{Code: common.Done, Ticket: ticket}
}

// ModifyOrder updates the stops of an open position. Unlike order entry a
// modify may move the stop loss onto the profit side of entry, which is how
// trailing and profit locking are expressed. Zero leaves a field unchanged;
// negative values are rejected.
func (b *Broker) ModifyOrder(ticket common.Ticket, stopLoss, takeProfit fixed.Point) common.OrderResult {
	if stopLoss.IsNegative() || takeProfit.IsNegative() {
		return common.OrderResult{Code: common.RejectedInvalidStops}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[ticket]
	if !ok {
		return common.OrderResult{Code: common.NotFound}
	}
	if !stopLoss.IsZero() {
		pos.StopLoss = stopLoss
	}
	if !takeProfit.IsZero() {
		pos.TakeProfit = takeProfit
	}
	return common.OrderResult{Code: common.Done, Ticket: ticket}
}

// OnPriceUpdate is the price-bus subscriber. For every open position on the
// tick's symbol it refreshes the current price and floating profit, then
// enforces stops: a Buy closes when the bid crosses its stop loss or take
// profit, a Sell mirrored on the ask. Realized closes move profit into the
// balance; listeners are invoked after the book lock is released.
func (b *Broker) OnPriceUpdate(ctx context.Context, tick common.Tick) {
	spec, ok := b.quotes.SymbolSpec(tick.Symbol)
	if !ok {
		return
	}

	var realized []ClosedPosition

	b.mu.Lock()
	for ticket, pos := range b.positions {
		if pos.Symbol != tick.Symbol {
			continue
		}

		current := tick.Bid
		if pos.Side == common.SideSell {
			current = tick.Ask
		}
		pos.CurrentPrice = current
		pos.Profit = profit(pos.Side, pos.EntryPrice, current, pos.Volume, spec.ContractSize)

		if reason, hit := stopHit(pos, tick); hit {
			realized = append(realized, b.closeLocked(ticket, reason))
		}
	}
	b.mu.Unlock()

	for _, c := range realized {
		slog.Info("position closed by stop",
			"ticket", c.Position.Ticket, "symbol", c.Position.Symbol,
			"reason", c.Reason, "profit", c.Position.Profit)
		b.notifyClose(c)
	}
}

// ClosePosition closes an open position at its last known price. Returns
// false for unknown or already-closed tickets.
func (b *Broker) ClosePosition(ticket common.Ticket) bool {
	b.mu.Lock()
	if _, ok := b.positions[ticket]; !ok {
		b.mu.Unlock()
		return false
	}
	closed := b.closeLocked(ticket, CloseManual)
	b.mu.Unlock()

	b.notifyClose(closed)
	return true
}

// Positions lists open positions, all of them or those of one symbol. The
// returned copies are detached from the book.
func (b *Broker) Positions(symbol string) []common.Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]common.Position, 0, len(b.positions))
	for _, pos := range b.positions {
		if symbol != "" && pos.Symbol != symbol {
			continue
		}
		out = append(out, *pos)
	}
	return out
}

// Account returns the ledger: balance plus equity, equity being the balance
// with all floating profit applied.
func (b *Broker) Account() common.AccountSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	equity := b.balance
	for _, pos := range b.positions {
		equity = equity.Add(pos.Profit)
	}
	return common.AccountSnapshot{
		Balance:   b.balance,
		Equity:    equity,
		TimeStamp: b.now(),
	}
}

// Ledger returns the realized closes in close order.
func (b *Broker) Ledger() []ClosedPosition {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]ClosedPosition, len(b.history))
	copy(out, b.history)
	return out
}

// WaitClose blocks until the ticket leaves the book or the timeout elapses.
// A timeout resolves to "assume still open" and returns false; an unknown
// ticket returns false immediately.
func (b *Broker) WaitClose(ctx context.Context, ticket common.Ticket, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		b.mu.Lock()
		_, open := b.positions[ticket]
		_, done := b.closed[ticket]
		b.mu.Unlock()

		if done {
			return true
		}
		if !open {
			return false
		}
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			slog.Warn("close wait timed out, assuming still open",
				"ticket", ticket, "timeout", timeout)
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// closeLocked removes the position and realizes its profit. Caller holds the
// book lock.
func (b *Broker) closeLocked(ticket common.Ticket, reason CloseReason) ClosedPosition {
	pos := b.positions[ticket]
	delete(b.positions, ticket)

	b.balance = b.balance.Add(pos.Profit)
	closed := ClosedPosition{
		Position: *pos,
		Reason:   reason,
		ClosedAt: b.now(),
	}
	b.closed[ticket] = closed
	b.history = append(b.history, closed)
	return closed
}

func (b *Broker) notifyClose(closed ClosedPosition) {
	b.listenerMu.Lock()
	snapshot := make([]CloseListener, len(b.listeners))
	copy(snapshot, b.listeners)
	b.listenerMu.Unlock()

	for _, fn := range snapshot {
		fn(closed)
	}
}

func profit(side common.Side, entry, current, volume, contractSize fixed.Point) fixed.Point {
	diff := current.Sub(entry)
	if side == common.SideSell {
		diff = entry.Sub(current)
	}
	return diff.Mul(volume).Mul(contractSize)
}

// stopsValidForEntry enforces the protective-side rule for new positions:
// stop loss below entry and take profit above for a Buy, mirrored for a
// Sell. Zero means not set.
func stopsValidForEntry(side common.Side, entry, stopLoss, takeProfit fixed.Point) bool {
	if stopLoss.IsNegative() || takeProfit.IsNegative() {
		return false
	}

	if side == common.SideBuy {
		if !stopLoss.IsZero() && stopLoss.Gte(entry) {
			return false
		}
		if !takeProfit.IsZero() && takeProfit.Lte(entry) {
			return false
		}
		return true
	}

	if !stopLoss.IsZero() && stopLoss.Lte(entry) {
		return false
	}
	if !takeProfit.IsZero() && takeProfit.Gte(entry) {
		return false
	}
	return true
}

func stopHit(pos *common.Position, tick common.Tick) (CloseReason, bool) {
	if pos.Side == common.SideBuy {
		if !pos.StopLoss.IsZero() && tick.Bid.Lte(pos.StopLoss) {
			return CloseStopLoss, true
		}
		if !pos.TakeProfit.IsZero() && tick.Bid.Gte(pos.TakeProfit) {
			return CloseTakeProfit, true
		}
		return "", false
	}

	if !pos.StopLoss.IsZero() && tick.Ask.Gte(pos.StopLoss) {
		return CloseStopLoss, true
	}
	if !pos.TakeProfit.IsZero() && tick.Ask.Lte(pos.TakeProfit) {
		return CloseTakeProfit, true
	}
	return "", false
}
