// Package terminal composes the market engine and the broker into the single
// read/trade surface a trading client consumes, shaped like the API of a
// real terminal so the client cannot tell the difference.
package terminal

import (
	"context"
	"time"

	"github.com/simforge/tradesim/pkg/broker"
	"github.com/simforge/tradesim/pkg/bus"
	"github.com/simforge/tradesim/pkg/common"
	"github.com/simforge/tradesim/pkg/engine"
	"github.com/simforge/tradesim/pkg/utility/fixed"
)

// Terminal is everything a trading client may do. It deliberately excludes
// the scenario-side mutators (SetPrice, MovePrice, generation); those belong
// to the test harness, not the client under test.
type Terminal interface {
	CurrentTick(symbol string) (common.Tick, bool)
	SymbolSpec(symbol string) (common.SymbolSpec, bool)
	History(symbol string, tf common.Timeframe, offset, count int) []common.Candle
	WaitTick(ctx context.Context, symbol string, timeout time.Duration) (common.Tick, bool)

	SubmitOrder(ctx context.Context, req common.OrderRequest) common.OrderResult
	ModifyOrder(ticket common.Ticket, stopLoss, takeProfit fixed.Point) common.OrderResult
	ClosePosition(ticket common.Ticket) bool
	WaitClose(ctx context.Context, ticket common.Ticket, timeout time.Duration) bool
	Positions(symbol string) []common.Position
	Account() common.AccountSnapshot

	Subscribe(fn bus.PriceHandler) bus.Subscription
	Unsubscribe(id bus.Subscription)
}

// Desk is the concrete terminal: engine reads, broker trades, bus
// subscriptions.
type Desk struct {
	engine *engine.Engine
	broker *broker.Broker
	bus    *bus.PriceBus
}

func NewDesk(e *engine.Engine, b *broker.Broker, priceBus *bus.PriceBus) *Desk {
	return &Desk{engine: e, broker: b, bus: priceBus}
}

var _ Terminal = (*Desk)(nil)

func (d *Desk) CurrentTick(symbol string) (common.Tick, bool) {
	return d.engine.CurrentTick(symbol)
}

func (d *Desk) SymbolSpec(symbol string) (common.SymbolSpec, bool) {
	return d.engine.SymbolSpec(symbol)
}

func (d *Desk) History(symbol string, tf common.Timeframe, offset, count int) []common.Candle {
	return d.engine.History(symbol, tf, offset, count)
}

func (d *Desk) WaitTick(ctx context.Context, symbol string, timeout time.Duration) (common.Tick, bool) {
	return d.engine.WaitTick(ctx, symbol, timeout)
}

func (d *Desk) SubmitOrder(ctx context.Context, req common.OrderRequest) common.OrderResult {
	return d.broker.SubmitOrder(ctx, req)
}

func (d *Desk) ModifyOrder(ticket common.Ticket, stopLoss, takeProfit fixed.Point) common.OrderResult {
	return d.broker.ModifyOrder(ticket, stopLoss, takeProfit)
}

func (d *Desk) ClosePosition(ticket common.Ticket) bool {
	return d.broker.ClosePosition(ticket)
}

func (d *Desk) WaitClose(ctx context.Context, ticket common.Ticket, timeout time.Duration) bool {
	return d.broker.WaitClose(ctx, ticket, timeout)
}

func (d *Desk) Positions(symbol string) []common.Position {
	return d.broker.Positions(symbol)
}

func (d *Desk) Account() common.AccountSnapshot {
	return d.broker.Account()
}

func (d *Desk) Subscribe(fn bus.PriceHandler) bus.Subscription {
	return d.bus.Subscribe(fn)
}

func (d *Desk) Unsubscribe(id bus.Subscription) {
	d.bus.Unsubscribe(id)
}
