// Package bus fans price-update events out from the market engine to its
// subscribers. Notify snapshots the subscriber list under the registry lock
// and invokes the handlers only after releasing it: no lock of the caller or
// of the bus is ever held while a handler runs, which is what keeps a
// subscriber free to call back into the engine or the broker.
package bus

import (
	"context"
	"sync"

	"github.com/simforge/tradesim/pkg/common"
)

type PriceHandler func(ctx context.Context, tick common.Tick)

type Subscription int64

type subscriber struct {
	id Subscription
	fn PriceHandler
}

// PriceBus is an observer registry owned by its publisher. It grants no
// ownership of the subscribers; an unsubscribed handler is simply dropped
// from future snapshots.
type PriceBus struct {
	mu     sync.Mutex
	nextID Subscription
	subs   []subscriber
}

func NewPriceBus() *PriceBus {
	return &PriceBus{}
}

func (b *PriceBus) Subscribe(fn PriceHandler) Subscription {
	if fn == nil {
		panic("bus: nil price handler")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs = append(b.subs, subscriber{id: b.nextID, fn: fn})
	return b.nextID
}

func (b *PriceBus) Unsubscribe(id Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Notify delivers the tick to every subscriber in registration order.
// Within one symbol ticks must be notified in the order they are produced;
// the caller guarantees that by notifying from the producing goroutine.
func (b *PriceBus) Notify(ctx context.Context, tick common.Tick) {
	b.mu.Lock()
	snapshot := make([]subscriber, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	for _, s := range snapshot {
		s.fn(ctx, tick)
	}
}

func (b *PriceBus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
