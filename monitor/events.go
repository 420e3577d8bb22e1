package monitor

import (
	"sync"
	"sync/atomic"

	"github.com/fwojciec/sitewatch"
)

// DefaultEventQueueSize is the capacity used when NewEventQueue gets size <= 0.
const DefaultEventQueueSize = 64

// EventQueue is a bounded stream of check events. Publishing never blocks:
// when the queue is full the oldest pending event is discarded to make room.
// Events are best-effort signals, not a durable log.
type EventQueue struct {
	mu      sync.Mutex
	ch      chan sitewatch.Event
	closed  bool
	dropped atomic.Uint64
}

// NewEventQueue returns a queue that buffers up to size events.
func NewEventQueue(size int) *EventQueue {
	if size <= 0 {
		size = DefaultEventQueueSize
	}
	return &EventQueue{ch: make(chan sitewatch.Event, size)}
}

// Publish enqueues ev, dropping the oldest pending event if the queue is full.
// Publishing to a closed queue is a no-op.
func (q *EventQueue) Publish(ev sitewatch.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	for {
		select {
		case q.ch <- ev:
			return
		default:
		}
		select {
		case <-q.ch:
			q.dropped.Add(1)
		default:
		}
	}
}

// Events returns the receive side of the queue. The channel is closed by Close.
func (q *EventQueue) Events() <-chan sitewatch.Event {
	return q.ch
}

// Dropped returns the number of events discarded because the queue was full.
func (q *EventQueue) Dropped() uint64 {
	return q.dropped.Load()
}

// Close closes the event channel. It is safe to call more than once.
func (q *EventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
