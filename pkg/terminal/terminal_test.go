package terminal

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simforge/tradesim/pkg/broker"
	"github.com/simforge/tradesim/pkg/bus"
	"github.com/simforge/tradesim/pkg/clock"
	"github.com/simforge/tradesim/pkg/common"
	"github.com/simforge/tradesim/pkg/engine"
	"github.com/simforge/tradesim/pkg/utility/fixed"
)

func newDesk(t *testing.T) (*engine.Engine, *Desk) {
	t.Helper()

	clk, err := clock.NewSimulated(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), 10000)
	require.NoError(t, err)

	priceBus := bus.NewPriceBus()
	e := engine.NewEngine(clk, priceBus, rand.New(rand.NewSource(3)))
	e.AddSymbol(common.SymbolSpec{
		Symbol:       "EURUSD",
		Point:        fixed.FromFloat64(0.00001),
		Digits:       5,
		SpreadPips:   fixed.One,
		ContractSize: fixed.FromInt(100000, 0),
	})

	b := broker.NewBroker(e)
	priceBus.Subscribe(b.OnPriceUpdate)
	return e, NewDesk(e, b, priceBus)
}

func TestDesk_ClientRoundTrip(t *testing.T) {
	e, desk := newDesk(t)
	ctx := context.Background()

	require.NoError(t, e.GenerateWarmupHistory(ctx, "EURUSD", common.SideBuy, 60, fixed.FromFloat64(1.10000)))

	var ticks int
	sub := desk.Subscribe(func(context.Context, common.Tick) { ticks++ })

	tick, ok := desk.WaitTick(ctx, "EURUSD", time.Second)
	require.True(t, ok)

	candles := desk.History("EURUSD", common.TimeframeM5, 0, 50)
	require.Len(t, candles, 50)
	assert.True(t, candles[len(candles)-1].Close.Eq(tick.Bid))

	res := desk.SubmitOrder(ctx, common.OrderRequest{
		Symbol: "EURUSD", Side: common.SideBuy, Volume: fixed.FromFloat64(0.01),
	})
	require.True(t, res.Ok())
	require.Len(t, desk.Positions("EURUSD"), 1)

	require.NoError(t, e.MovePrice(ctx, "EURUSD", fixed.FromFloat64(0.00050), fixed.Zero, 0))
	assert.Equal(t, 1, ticks)

	assert.True(t, desk.ClosePosition(res.Ticket))
	assert.Empty(t, desk.Positions(""))
	assert.True(t, desk.WaitClose(ctx, res.Ticket, time.Second))

	desk.Unsubscribe(sub)
	require.NoError(t, e.MovePrice(ctx, "EURUSD", fixed.FromFloat64(0.00010), fixed.Zero, 0))
	assert.Equal(t, 1, ticks)
}
