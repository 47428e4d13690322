// Package realtime provides a lightweight in-process publish/subscribe hub
// used to fan out recorded performance metrics to multiple listeners
// (e.g. WebSocket sessions on the metrics firehose).
//
// Design goals:
//   - Zero external dependencies beyond the standard library.
//   - Best-effort fan-out: slow listeners drop events and never apply
//     backpressure to request handling.
//   - No persistence or replay semantics (ephemeral stream).
package realtime

import (
	"sync"

	"github.com/uniseek/uniseek/pkg/metrics"
)

// Event is the hub's envelope. Type is currently always "metric"; the
// envelope exists so additional kinds (heartbeat, info) can be added without
// changing channel element types.
type Event struct {
	Type   string         `json:"type"`
	Metric metrics.Metric `json:"metric"`
}

// Hub is an in-memory fan-out dispatcher. Each registered listener receives
// events via its own buffered channel. If a listener's buffer is full when an
// event arrives, that event is dropped for that listener only.
//
// The hub is concurrency-safe.
type Hub struct {
	mu        sync.RWMutex
	listeners map[uint64]chan Event
	nextID    uint64
	bufSize   int
}

// NewHub constructs a hub with the given per-listener buffer size.
// If bufSize <= 0, a default of 32 is used.
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 32
	}
	return &Hub{
		listeners: make(map[uint64]chan Event),
		bufSize:   bufSize,
	}
}

// Register adds a new listener and returns (listenerID, receiveOnlyChannel).
// Callers must later Unregister(id) to release resources.
func (h *Hub) Register() (uint64, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.bufSize)
	h.listeners[id] = ch
	return id, ch
}

// Unregister removes the listener with the given id and closes its channel.
// It is safe to call multiple times; unknown ids are ignored.
func (h *Hub) Unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.listeners[id]; ok {
		delete(h.listeners, id)
		close(ch)
	}
}

// Publish delivers a metric to all registered listeners, best effort.
func (h *Hub) Publish(m metrics.Metric) {
	event := Event{Type: "metric", Metric: m}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- event:
		default:
			// Drop for slow listener.
		}
	}
}

// Size returns the current number of active listeners.
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
