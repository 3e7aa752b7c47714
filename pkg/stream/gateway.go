// Package stream exposes a run to observers: a websocket gateway
// broadcasting ticks and realized closes as JSON frames. It stands in for
// the terminal UI a live deployment would attach to. Strictly read-only, a
// connected client cannot feed anything back into the simulation.
package stream

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/simforge/tradesim/pkg/broker"
	"github.com/simforge/tradesim/pkg/common"
	"github.com/simforge/tradesim/pkg/utility/circular"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
)

// Event is one JSON frame on the wire.
type Event struct {
	Type  string                 `json:"type"`
	Tick  *common.Tick           `json:"tick,omitempty"`
	Close *broker.ClosedPosition `json:"close,omitempty"`
}

const (
	EventTick           = "tick"
	EventPositionClosed = "position-closed"
)

type client struct {
	conn *websocket.Conn
	send chan Event
	done chan struct{}
	once sync.Once
}

func (c *client) drop() {
	c.once.Do(func() {
		close(c.done)
	})
}

// Gateway fans run events out to websocket observers. A newly connected
// observer first receives a replay of the most recent ticks so it does not
// start from a blank chart.
type Gateway struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	recent  *circular.Buffer[common.Tick]
}

func NewGateway(replay int) *Gateway {
	if replay <= 0 {
		replay = 256
	}
	return &Gateway{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*client]struct{}),
		recent:  circular.NewBuffer[common.Tick](uint(replay)),
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stream upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan Event, sendBuffer), done: make(chan struct{})}
	go g.writePump(c)
	go g.readPump(c)

	// Replay before registering for live frames; ticks published in between
	// are lost to this observer, which an observer surface tolerates.
	g.mu.Lock()
	replay := g.recent.Ordered()
	g.mu.Unlock()

	for i := range replay {
		select {
		case c.send <- Event{Type: EventTick, Tick: &replay[i]}:
		case <-c.done:
			return
		}
	}

	g.mu.Lock()
	g.clients[c] = struct{}{}
	g.mu.Unlock()

	slog.Debug("stream observer connected", "remote", r.RemoteAddr, "replayed", len(replay))
}

// OnPriceUpdate is the price-bus subscriber. Slow observers get frames
// dropped rather than stalling the publishing goroutine.
func (g *Gateway) OnPriceUpdate(ctx context.Context, tick common.Tick) {
	g.mu.Lock()
	g.recent.Push(tick)
	targets := g.snapshotLocked()
	g.mu.Unlock()

	g.broadcast(targets, Event{Type: EventTick, Tick: &tick})
}

// OnClose is the broker close listener.
func (g *Gateway) OnClose(closed broker.ClosedPosition) {
	g.mu.Lock()
	targets := g.snapshotLocked()
	g.mu.Unlock()

	g.broadcast(targets, Event{Type: EventPositionClosed, Close: &closed})
}

// Shutdown disconnects every observer.
func (g *Gateway) Shutdown() {
	g.mu.Lock()
	targets := g.snapshotLocked()
	g.clients = make(map[*client]struct{})
	g.mu.Unlock()

	for _, c := range targets {
		c.drop()
	}
}

func (g *Gateway) snapshotLocked() []*client {
	out := make([]*client, 0, len(g.clients))
	for c := range g.clients {
		out = append(out, c)
	}
	return out
}

func (g *Gateway) broadcast(targets []*client, ev Event) {
	for _, c := range targets {
		select {
		case c.send <- ev:
		case <-c.done:
		default:
			slog.Warn("stream observer too slow, dropping frame")
		}
	}
}

func (g *Gateway) unregister(c *client) {
	g.mu.Lock()
	delete(g.clients, c)
	g.mu.Unlock()

	c.drop()
}

func (g *Gateway) writePump(c *client) {
	defer func() {
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(ev); err != nil {
				g.unregister(c)
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump drains the connection so close frames are processed; inbound
// payloads are ignored.
func (g *Gateway) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			g.unregister(c)
			return
		}
	}
}
