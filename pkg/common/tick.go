package common

import (
	"time"

	"github.com/simforge/tradesim/pkg/utility"
	"github.com/simforge/tradesim/pkg/utility/fixed"
)

// Tick is the current bid/ask quote of one symbol at a point in simulated
// time. Bid < Ask always, the engine never publishes a crossed or zero-width
// market.
type Tick struct {
	Bid fixed.Point `json:"bid"`
	Ask fixed.Point `json:"ask"`

	Source      string              `json:"src,omitempty"`
	Symbol      string              `json:"symbol,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

func (t Tick) Mid() fixed.Point {
	return t.Bid.Add(t.Ask).DivInt(2)
}
