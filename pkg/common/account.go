package common

import (
	"time"

	"github.com/simforge/tradesim/pkg/utility/fixed"
)

// AccountSnapshot is the broker ledger at one instant.
// Equity = Balance + sum of open position profit.
type AccountSnapshot struct {
	Balance   fixed.Point `json:"balance"`
	Equity    fixed.Point `json:"equity"`
	TimeStamp time.Time   `json:"ts"`
}
