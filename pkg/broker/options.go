package broker

import (
	"time"

	"github.com/simforge/tradesim/pkg/utility/fixed"
)

type Option func(*Broker)

// WithInitialBalance sets the opening account balance.
func WithInitialBalance(balance fixed.Point) Option {
	return func(b *Broker) {
		b.balance = balance
	}
}

// WithOrderThrottle rejects orders submitted closer together than the given
// interval with RejectedRateLimited. Zero disables throttling.
func WithOrderThrottle(minInterval time.Duration) Option {
	return func(b *Broker) {
		b.minInterval = minInterval
	}
}

// WithTimeSource replaces the wall clock used for position and ledger
// timestamps, letting accelerated runs stamp simulated time.
func WithTimeSource(now func() time.Time) Option {
	return func(b *Broker) {
		b.now = now
	}
}
