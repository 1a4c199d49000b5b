package sim

import (
	"sync"

	"rovops-sim/internal/telemetry"
)

// subscriberBuffer is how many snapshots a subscriber may lag before frames
// are dropped.
const subscriberBuffer = 16

// Hub broadcasts every snapshot to all current subscribers. A subscriber that
// falls behind loses frames; the tick loop never blocks on it.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Subscription receives snapshots on C until Close is called.
type Subscription struct {
	C <-chan telemetry.Snapshot

	ch   chan telemetry.Snapshot
	hub  *Hub
	once sync.Once
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() *Subscription {
	ch := make(chan telemetry.Snapshot, subscriberBuffer)
	sub := &Subscription{C: ch, ch: ch, hub: h}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Close unsubscribes and closes C. It is safe to call more than once.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		h := sub.hub
		h.mu.Lock()
		delete(h.subs, sub)
		close(sub.ch)
		h.mu.Unlock()
	})
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast delivers snap to every subscriber and returns how many were
// skipped because their buffer was full.
func (h *Hub) Broadcast(snap telemetry.Snapshot) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	dropped := 0
	for sub := range h.subs {
		select {
		case sub.ch <- snap:
		default:
			dropped++
		}
	}
	return dropped
}
