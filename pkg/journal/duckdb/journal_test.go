package duckdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simforge/tradesim/pkg/broker"
	"github.com/simforge/tradesim/pkg/common"
	"github.com/simforge/tradesim/pkg/utility/fixed"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()

	j, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournal_RecordsTicks(t *testing.T) {
	j := openTestJournal(t)
	ts := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		j.OnPriceUpdate(context.Background(), common.Tick{
			Symbol:    "EURUSD",
			Bid:       fixed.FromFloat64(1.10000 + float64(i)*0.00010),
			Ask:       fixed.FromFloat64(1.10010 + float64(i)*0.00010),
			TimeStamp: ts.Add(time.Duration(i) * time.Second),
		})
	}
	j.OnPriceUpdate(context.Background(), common.Tick{
		Symbol:    "GBPUSD",
		Bid:       fixed.FromFloat64(1.26000),
		Ask:       fixed.FromFloat64(1.26010),
		TimeStamp: ts,
	})

	n, err := j.TickCount("EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = j.TickCount("")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestJournal_RecordsCloses(t *testing.T) {
	j := openTestJournal(t)
	ts := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	j.OnClose(broker.ClosedPosition{
		Position: common.Position{
			Ticket:       7,
			Symbol:       "EURUSD",
			Side:         common.SideBuy,
			Volume:       fixed.FromFloat64(0.01),
			EntryPrice:   fixed.FromFloat64(1.10010),
			CurrentPrice: fixed.FromFloat64(1.09810),
			Profit:       fixed.FromInt(-2, 0),
			OpenedAt:     ts,
		},
		Reason:   broker.CloseStopLoss,
		ClosedAt: ts.Add(time.Minute),
	})

	rows, err := j.ClosedTickets()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, common.Ticket(7), rows[0].Ticket)
	assert.Equal(t, string(broker.CloseStopLoss), rows[0].Reason)
	assert.Equal(t, "-2", rows[0].Profit)
}
