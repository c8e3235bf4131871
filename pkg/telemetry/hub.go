package telemetry

import (
	"sync"
	"sync/atomic"
)

// DefaultCapacity is the hub ring size when none is configured.
const DefaultCapacity = 300

// Hub is a fixed-capacity ring buffer of recent records with push
// fan-out. One writer publishes; any number of readers pull snapshots
// or receive pushed records. Publish is O(1) and never blocks on a
// subscriber: a slow subscriber misses records (counted per
// subscription) instead of backlogging the writer. The single mutex
// is held only for the duration of a buffer operation, never across
// I/O.
type Hub struct {
	mu     sync.Mutex
	buf    []Record
	next   int
	filled int
	seq    uint64
	subs   map[*Subscription]struct{}
	closed bool
}

// NewHub creates a Hub. The capacity is fixed for the hub's lifetime;
// non-positive values fall back to DefaultCapacity.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Hub{
		buf:  make([]Record, capacity),
		subs: make(map[*Subscription]struct{}),
	}
}

// Capacity returns the fixed ring size.
func (h *Hub) Capacity() int {
	return len(h.buf)
}

// Publish assigns the next sequence number, appends the record
// (evicting the oldest when full) and fans it out to subscribers
// without blocking. It returns the assigned sequence number.
func (h *Hub) Publish(rec Record) uint64 {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return 0
	}
	h.seq++
	rec.Seq = h.seq
	h.buf[h.next] = rec
	h.next = (h.next + 1) % len(h.buf)
	if h.filled < len(h.buf) {
		h.filled++
	}
	for sub := range h.subs {
		select {
		case sub.ch <- rec:
		default:
			atomic.AddUint64(&sub.dropped, 1)
		}
	}
	h.mu.Unlock()
	return rec.Seq
}

// Snapshot copies the most recent n records in publish order, oldest
// first. Fewer records are returned when fewer have been published.
func (h *Hub) Snapshot(n int) []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n <= 0 || n > h.filled {
		n = h.filled
	}
	out := make([]Record, n)
	start := h.next - n
	if start < 0 {
		start += len(h.buf)
	}
	for i := 0; i < n; i++ {
		out[i] = h.buf[(start+i)%len(h.buf)]
	}
	return out
}

// Latest returns the most recent record, if any.
func (h *Hub) Latest() (Record, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.filled == 0 {
		return Record{}, false
	}
	last := h.next - 1
	if last < 0 {
		last += len(h.buf)
	}
	return h.buf[last], true
}

// Subscribe registers a push subscriber with the given channel buffer
// size. Delivery is best effort: records published while the buffer
// is full are dropped for this subscriber only.
func (h *Hub) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &Subscription{hub: h, ch: make(chan Record, buffer)}
	h.mu.Lock()
	if h.closed {
		close(sub.ch)
	} else {
		h.subs[sub] = struct{}{}
	}
	h.mu.Unlock()
	return sub
}

// Close closes all subscriptions and rejects further publishes.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		close(sub.ch)
	}
	h.subs = nil
}

// Subscription is a capability to receive pushed records.
type Subscription struct {
	hub     *Hub
	ch      chan Record
	dropped uint64
	once    sync.Once
}

// C is the receive channel. It is closed when the subscription or the
// hub is closed.
func (s *Subscription) C() <-chan Record {
	return s.ch
}

// Dropped counts records this subscriber missed.
func (s *Subscription) Dropped() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

// Close unsubscribes and closes the receive channel.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.hub.mu.Lock()
		if !s.hub.closed {
			delete(s.hub.subs, s)
			close(s.ch)
		}
		s.hub.mu.Unlock()
	})
	return nil
}
