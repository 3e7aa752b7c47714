package scenario

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
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

const sampleScript = `
name: entry-then-ramp
actions:
  - at: 0s
    kind: generate-warmup
    symbol: EURUSD
    direction: buy
    count: 60
    base_price: "1.10000"
  - at: 0s
    kind: set-price
    symbol: GBPUSD
    bid: "1.26000"
  - at: 1s
    kind: generate-entry-candle
    symbol: EURUSD
    direction: buy
  - at: 1s
    kind: verify
    symbol: EURUSD
    check: frozen
  - at: 1s
    kind: verify
    symbol: EURUSD
    direction: buy
    check: contract
  - at: 2s
    kind: move-price
    symbol: GBPUSD
    delta_bid: "0.00150"
    duration: 1s
  - at: 4s
    kind: wait
    duration: 1s
`

func testSpec(symbol string) common.SymbolSpec {
	return common.SymbolSpec{
		Symbol:       symbol,
		Point:        fixed.FromFloat64(0.00001),
		Digits:       5,
		SpreadPips:   fixed.One,
		ContractSize: fixed.FromInt(100000, 0),
	}
}

func TestParse_SampleScript(t *testing.T) {
	script, err := Parse([]byte(sampleScript))
	require.NoError(t, err)

	assert.Equal(t, "entry-then-ramp", script.Name)
	require.Len(t, script.Actions, 7)
	assert.Equal(t, KindGenerateWarmup, script.Actions[0].Kind)
	assert.True(t, script.Actions[0].BasePrice.Eq(fixed.FromFloat64(1.10000)))
	assert.Equal(t, common.SideBuy, script.Actions[0].Side())
	assert.Equal(t, time.Second, script.Actions[5].Duration.Std())
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleScript), 0o644))

	script, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "entry-then-ramp", script.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_Validation(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", "name: x\nactions: []\n"},
		{"unknown kind", "actions:\n  - at: 0s\n    kind: explode\n"},
		{"out of order", "actions:\n  - at: 2s\n    kind: wait\n    duration: 1s\n  - at: 1s\n    kind: wait\n    duration: 1s\n"},
		{"set-price without bid", "actions:\n  - at: 0s\n    kind: set-price\n    symbol: EURUSD\n"},
		{"unknown check", "actions:\n  - at: 0s\n    kind: verify\n    symbol: EURUSD\n    check: sane\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.raw))
			assert.Error(t, err)
		})
	}
}

type runResult struct {
	ticks   []TickRecord
	account common.AccountSnapshot
	closes  []broker.ClosedPosition
}

// One full scripted run plus a scripted trade afterwards, everything
// deterministic given the same seed.
func runOnce(t *testing.T, script *Script) runResult {
	t.Helper()

	clk, err := clock.NewSimulated(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), 50000)
	require.NoError(t, err)

	priceBus := bus.NewPriceBus()
	e := engine.NewEngine(clk, priceBus, rand.New(rand.NewSource(1234)))
	e.AddSymbol(testSpec("EURUSD"))
	e.AddSymbol(testSpec("GBPUSD"))

	b := broker.NewBroker(e, broker.WithTimeSource(e.Now))
	priceBus.Subscribe(b.OnPriceUpdate)

	var ticks []TickRecord
	priceBus.Subscribe(func(_ context.Context, tick common.Tick) {
		ticks = append(ticks, RecordOf(tick))
	})

	ctx := context.Background()
	require.NoError(t, NewDriver(e, clk, script).Run(ctx))

	entry, ok := e.CurrentTick("EURUSD")
	require.True(t, ok)

	res := b.SubmitOrder(ctx, common.OrderRequest{
		Symbol:   "EURUSD",
		Side:     common.SideBuy,
		Volume:   fixed.FromFloat64(0.01),
		StopLoss: entry.Ask.Sub(fixed.FromFloat64(0.00200)),
	})
	require.True(t, res.Ok())
	require.NoError(t, e.MovePrice(ctx, "EURUSD", fixed.FromFloat64(-0.00230), fixed.Zero, 0))

	return runResult{ticks: ticks, account: b.Account(), closes: b.Ledger()}
}

func TestRun_Deterministic(t *testing.T) {
	script, err := Parse([]byte(sampleScript))
	require.NoError(t, err)

	first := runOnce(t, script)
	second := runOnce(t, script)

	require.Equal(t, len(first.ticks), len(second.ticks))
	assert.Equal(t, first.ticks, second.ticks)

	assert.True(t, first.account.Balance.Eq(second.account.Balance))
	assert.True(t, first.account.Equity.Eq(second.account.Equity))

	require.Equal(t, len(first.closes), len(second.closes))
	for i := range first.closes {
		assert.True(t, first.closes[i].Position.Profit.Eq(second.closes[i].Position.Profit))
		assert.Equal(t, first.closes[i].Reason, second.closes[i].Reason)
	}
}

func TestRun_StopFlag(t *testing.T) {
	script, err := Parse([]byte("actions:\n  - at: 0s\n    kind: wait\n    duration: 10s\n"))
	require.NoError(t, err)

	clk, err := clock.NewSimulated(time.Now(), 1)
	require.NoError(t, err)

	priceBus := bus.NewPriceBus()
	e := engine.NewEngine(clk, priceBus, rand.New(rand.NewSource(1)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = NewDriver(e, clk, script).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
