package common

import (
	"github.com/simforge/tradesim/pkg/utility"
	"github.com/simforge/tradesim/pkg/utility/fixed"
)

type ResultCode string

// Result codes mirror a real broker so client retry logic is exercised
// identically to production.
const (
	Done                  ResultCode = "done"
	RejectedInvalidVolume ResultCode = "rejected-invalid-volume"
	RejectedInvalidStops  ResultCode = "rejected-invalid-stops"
	RejectedMarketClosed  ResultCode = "rejected-market-closed"
	RejectedRateLimited   ResultCode = "rejected-rate-limited"
	NotFound              ResultCode = "not-found"
)

// OrderRequest asks the broker to open a market position. StopLoss and
// TakeProfit are optional, zero meaning not set.
type OrderRequest struct {
	Symbol     string      `json:"symbol"`
	Side       Side        `json:"side"`
	Volume     fixed.Point `json:"volume"`
	StopLoss   fixed.Point `json:"stop_loss"`
	TakeProfit fixed.Point `json:"take_profit"`

	TraceID utility.TraceID `json:"tid,omitempty"`
}

// OrderResult is returned by SubmitOrder and ModifyOrder. Order-level
// problems are values, never errors, so the client under test sees the same
// shape of outcome it would against production.
type OrderResult struct {
	Code   ResultCode `json:"code"`
	Ticket Ticket     `json:"ticket,omitempty"`
}

func (r OrderResult) Ok() bool {
	return r.Code == Done
}
