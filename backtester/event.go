// Package backtester implements a single-threaded, event-ordered scheduler
// that drives the production core from a historical data store instead of
// live feeds: a priority queue orders events by (timestamp, arrival
// ordinal), logical time advances only at dequeue boundaries, and timers,
// market-data replay and order execution are all expressed as events so
// they interleave in strict, deterministic order.
package backtester

import (
	"container/heap"
	"sync"
	"time"
)

// Event is one unit of scheduled work. Execute may enqueue further events
// on the handler that owns the queue; it always runs with the handler's
// current time already advanced to this event's Timestamp.
type Event interface {
	Timestamp() time.Time
	Execute()
}

type queuedEvent struct {
	event   Event
	arrival uint64
}

type eventQueue []queuedEvent

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	ti, tj := q[i].event.Timestamp(), q[j].event.Timestamp()
	if !ti.Equal(tj) {
		return ti.Before(tj)
	}
	return q[i].arrival < q[j].arrival
}
func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x any)   { *q = append(*q, x.(queuedEvent)) }
func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// EventHandler owns the priority queue and the logical clock every
// scheduled Event advances. It is single-threaded by design: Run drains
// the queue on the calling goroutine, executing one event at a time.
type EventHandler struct {
	mu          sync.Mutex
	cond        *sync.Cond
	queue       eventQueue
	arrival     uint64
	currentTime time.Time
	endTime     time.Time
	closed      bool
}

// NewEventHandler constructs a handler whose logical time starts at
// startTime and which stops once the queue drains past endTime.
func NewEventHandler(startTime, endTime time.Time) *EventHandler {
	h := &EventHandler{currentTime: startTime, endTime: endTime}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// GetTime returns the handler's current logical time.
func (h *EventHandler) GetTime() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentTime
}

// Add enqueues an event, waking Run if it is waiting for work.
func (h *EventHandler) Add(event Event) {
	h.mu.Lock()
	heap.Push(&h.queue, queuedEvent{event: event, arrival: h.arrival})
	h.arrival++
	h.mu.Unlock()
	h.cond.Signal()
}

// Close stops Run once the queue drains; further Add calls after Close are
// rejected by callers that check IsClosed.
func (h *EventHandler) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.cond.Signal()
}

// IsClosed reports whether Close has been called.
func (h *EventHandler) IsClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Run dequeues events in (timestamp, arrival) order, advancing the logical
// clock to each event's timestamp before calling Execute outside the lock
// so Execute is free to Add further events. Run returns once the queue is
// empty and Close has been called, or as soon as the next event's
// timestamp would exceed endTime.
func (h *EventHandler) Run() {
	for {
		h.mu.Lock()
		for h.queue.Len() == 0 && !h.closed {
			h.cond.Wait()
		}
		if h.queue.Len() == 0 {
			h.mu.Unlock()
			return
		}
		if h.queue[0].event.Timestamp().After(h.endTime) {
			h.mu.Unlock()
			return
		}
		next := heap.Pop(&h.queue).(queuedEvent)
		h.currentTime = next.event.Timestamp()
		h.mu.Unlock()
		next.event.Execute()
	}
}

// NegInfinity is the sentinel timestamp a cancel event is scheduled at so
// it always dequeues ahead of the expiry it is meant to suppress,
// regardless of what else is queued.
var NegInfinity = time.Time{}
