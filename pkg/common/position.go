package common

import (
	"time"

	"github.com/simforge/tradesim/pkg/utility"
	"github.com/simforge/tradesim/pkg/utility/fixed"
)

type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideSell {
		return "sell"
	}
	return "buy"
}

type Ticket = int64

// Position is one open trade in the broker's book. CurrentPrice and Profit
// are refreshed on every tick of the symbol; StopLoss/TakeProfit change only
// through an explicit modify.
type Position struct {
	Ticket     Ticket      `json:"ticket"`
	Side       Side        `json:"side"`
	Volume     fixed.Point `json:"volume"`
	EntryPrice fixed.Point `json:"entry_price"`
	StopLoss   fixed.Point `json:"stop_loss"`
	TakeProfit fixed.Point `json:"take_profit"`

	CurrentPrice fixed.Point `json:"current_price"`
	Profit       fixed.Point `json:"profit"`

	Source      string              `json:"src,omitempty"`
	Symbol      string              `json:"symbol,omitempty"`
	ExecutionID utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	OpenedAt    time.Time           `json:"opened_at"`
}
