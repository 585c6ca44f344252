package selection

import (
	"sync"

	"github.com/eigenfolio/eigenfolio/internal/modules/solvers"
)

// ProgressEvent is what subscribers receive: the solver iteration event plus
// the run it belongs to.
type ProgressEvent struct {
	RunID string `json:"run_id"`
	solvers.IterationEvent
}

// Broadcaster fans solver progress out to any number of subscribers
// (websocket clients). Slow subscribers drop events rather than stalling the
// optimizer, which publishes synchronously from its objective function.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[chan ProgressEvent]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan ProgressEvent]struct{})}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The channel is buffered; events overflowing the
// buffer are dropped for that subscriber.
func (b *Broadcaster) Subscribe() (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, 256)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	once := sync.Once{}
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers an event to all current subscribers without blocking.
func (b *Broadcaster) Publish(ev ProgressEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// subscriber buffer full, drop
		}
	}
}

// SubscriberCount reports the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
