// Package dispatch routes UI-originated events from the visualization
// client back to backend handlers.
package dispatch

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

// EventDeviceClicked is emitted by the client when a device marker is
// clicked.
const EventDeviceClicked = "deviceClicked"

// Handler receives the raw data object of a recognized event.
type Handler func(data json.RawMessage)

// envelope is the inbound message wrapper.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Dispatcher parses inbound envelopes and invokes registered handlers.
// A malformed message or an unrecognized event is logged and dropped; the
// caller's receive loop never sees an error from dispatching.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewDispatcher returns a dispatcher with no handlers registered.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// Register sets the handler for an event name, replacing any previous one.
// A nil handler unregisters the event.
func (d *Dispatcher) Register(event string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if h == nil {
		delete(d.handlers, event)
		return
	}
	d.handlers[event] = h
}

// Dispatch parses a raw inbound message and invokes the matching handler.
// The returned error reports what was dropped; it is diagnostic only and
// already logged.
func (d *Dispatcher) Dispatch(raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("dispatch: dropping unparseable message (%d bytes): %v", len(raw), err)
		return fmt.Errorf("parse inbound envelope: %w", err)
	}
	if env.Event == "" {
		log.Printf("dispatch: dropping message without event field")
		return fmt.Errorf("inbound envelope missing event")
	}

	d.mu.RLock()
	h := d.handlers[env.Event]
	d.mu.RUnlock()

	if h == nil {
		log.Printf("dispatch: no handler for event %q, dropping", env.Event)
		return nil
	}
	h(env.Data)
	return nil
}
