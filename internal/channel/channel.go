// Package channel owns the WebSocket connection to the visualization
// client and the outbound command queue.
//
// One viewer is served at a time. The pending queue lives outside any
// connection: commands enqueued while no viewer is attached are delivered,
// in order, once one connects, and survive reconnects. Delivery is
// best-effort; nothing persists across process exit.
package channel

import (
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/skyfence/scenelink/internal/command"
	"github.com/skyfence/scenelink/internal/dispatch"
)

// State is the channel's connection state.
type State int32

const (
	// StateIdle means no viewer is attached; commands queue up.
	StateIdle State = iota

	// StateConnected means one viewer is attached and the merge loop is
	// running.
	StateConnected

	// StateClosed is the terminal state of a finished connection. It is
	// momentary: the channel immediately re-arms to StateIdle for the
	// next viewer.
	StateClosed
)

// conn is the subset of *websocket.Conn the merge loop uses.
type conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Channel multiplexes outbound command delivery with inbound event
// dispatch over a single WebSocket connection.
type Channel struct {
	dispatcher *dispatch.Dispatcher

	mu      sync.Mutex
	pending []command.Command

	// notify is 1-buffered; a send marks the pending queue non-empty.
	// The merge loop drains the whole queue per wakeup, so a full
	// buffer never loses work.
	notify chan struct{}

	connMu sync.Mutex
	stop   func() // stops the active connection's merge loop
	gen    uint64 // connection generation, guards state on replacement

	state atomic.Int32

	done      chan struct{}
	closeOnce sync.Once

	upgrader websocket.Upgrader
}

// New returns an idle channel that routes inbound events through d.
func New(d *dispatch.Dispatcher) *Channel {
	return &Channel{
		dispatcher: d,
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// State reports the current connection state.
func (c *Channel) State() State {
	return State(c.state.Load())
}

// Enqueue appends a command to the pending queue. Safe from any
// goroutine; never blocks.
func (c *Channel) Enqueue(cmd command.Command) {
	c.mu.Lock()
	c.pending = append(c.pending, cmd)
	c.mu.Unlock()
	c.kick()
}

// PendingLen reports how many commands await delivery.
func (c *Channel) PendingLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close shuts the channel down: the active connection (if any) is closed
// and no further connections are served. Pending commands are discarded
// with the process.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.connMu.Lock()
		if c.stop != nil {
			c.stop()
		}
		c.connMu.Unlock()
	})
}

// ServeHTTP upgrades the request and serves the connection until it ends.
// A second viewer connecting replaces the current one.
func (c *Channel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-c.done:
		http.Error(w, "channel closed", http.StatusServiceUnavailable)
		return
	default:
	}
	ws, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("channel: upgrade failed: %v", err)
		return
	}
	c.attach(ws)
}

// attach runs the merge loop for one connection, blocking until the
// connection ends. Any previously attached connection is stopped first.
func (c *Channel) attach(ws conn) {
	stopped := make(chan struct{})
	var stopOnce sync.Once
	stop := func() { stopOnce.Do(func() { close(stopped) }) }

	c.connMu.Lock()
	if c.stop != nil {
		c.stop()
	}
	c.stop = stop
	c.gen++
	myGen := c.gen
	c.connMu.Unlock()

	c.state.Store(int32(StateConnected))
	log.Printf("channel: viewer connected")

	c.run(ws, stopped)
	stop()
	ws.Close()

	c.connMu.Lock()
	if c.gen == myGen {
		c.stop = nil
		c.state.Store(int32(StateClosed))
		c.state.Store(int32(StateIdle))
	}
	c.connMu.Unlock()
	log.Printf("channel: viewer disconnected")
}

// run is the merge loop: it waits on inbound frames, the pending-queue
// signal and the stop signal at once, so neither direction can starve the
// other and there is no polling interval.
func (c *Channel) run(ws conn, stopped <-chan struct{}) {
	inbound := make(chan []byte)
	go func() {
		defer close(inbound)
		for {
			_, msg, err := ws.ReadMessage()
			if err != nil {
				return
			}
			select {
			case inbound <- msg:
			case <-stopped:
				return
			}
		}
	}()

	// Deliver anything queued before this connection arrived.
	c.kick()

	for {
		select {
		case <-stopped:
			return
		case <-c.done:
			return
		case msg, ok := <-inbound:
			if !ok {
				// socket closed or errored
				return
			}
			// Dispatch errors are diagnostics for dropped
			// messages, already logged.
			_ = c.dispatcher.Dispatch(msg)
		case <-c.notify:
			if err := c.flush(ws); err != nil {
				log.Printf("channel: send failed, dropping connection: %v", err)
				return
			}
		}
	}
}

// flush drains the pending queue in FIFO order. On a send failure the
// unsent command is returned to the front of the queue so the next
// connection picks up exactly where this one stopped.
func (c *Channel) flush(ws conn) error {
	for {
		c.mu.Lock()
		if len(c.pending) == 0 {
			c.mu.Unlock()
			return nil
		}
		cmd := c.pending[0]
		c.pending = c.pending[1:]
		c.mu.Unlock()

		data, err := command.Encode(cmd)
		if err != nil {
			// Unencodable commands cannot be retried; drop and move on.
			log.Printf("channel: dropping command: %v", err)
			continue
		}
		if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
			c.mu.Lock()
			c.pending = append([]command.Command{cmd}, c.pending...)
			c.mu.Unlock()
			return err
		}
	}
}

// kick signals the merge loop if work is pending.
func (c *Channel) kick() {
	c.mu.Lock()
	hasWork := len(c.pending) > 0
	c.mu.Unlock()
	if !hasWork {
		return
	}
	select {
	case c.notify <- struct{}{}:
	default:
	}
}
