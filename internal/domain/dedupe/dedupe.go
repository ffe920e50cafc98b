// Package dedupe remembers idempotency keys for retried clock submissions.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/timeclock/internal/domain/model"
)

// Deduper maps idempotency keys to the event created for them.
type Deduper interface {
	// Recall returns the event recorded under key, if any.
	Recall(ctx context.Context, key string) (model.ClockEvent, bool)

	// Record stores ev under key. Recording an existing key keeps the
	// first event.
	Record(ctx context.Context, key string, ev model.ClockEvent)

	// Forget drops key so a later submission is processed again.
	Forget(ctx context.Context, key string)

	Size() int64
}

// node is one entry of the insertion-ordered list.
type node struct {
	key        string
	event      model.ClockEvent
	prev, next *node
}

// inMemoryDeduper keeps keys in a map plus a doubly linked list ordered by
// insertion. When bounded, the oldest key is evicted first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	entries map[string]*node
	head    *node // newest
	tail    *node // oldest
	maxSize int   // 0 or negative = unbounded
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.entries = make(map[string]*node)
	return d
}

func (d *inMemoryDeduper) Recall(_ context.Context, key string) (model.ClockEvent, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.entries[key]
	if !ok {
		return model.ClockEvent{}, false
	}
	return n.event, true
}

func (d *inMemoryDeduper) Record(_ context.Context, key string, ev model.ClockEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.entries[key]; exists {
		return
	}
	if d.maxSize > 0 && len(d.entries) >= d.maxSize {
		d.evictOldest()
	}

	n := &node{key: key, event: ev, next: d.head}
	if d.head != nil {
		d.head.prev = n
	}
	d.head = n
	if d.tail == nil {
		d.tail = n
	}
	d.entries[key] = n
	d.size.Add(1)
}

func (d *inMemoryDeduper) Forget(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.entries[key]; ok {
		d.unlink(n)
	}
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	if d.tail != nil {
		d.unlink(d.tail)
	}
}

// unlink must be called with d.mu held.
func (d *inMemoryDeduper) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
	n.prev, n.next = nil, nil
	delete(d.entries, n.key)
	d.size.Add(-1)
}

// Size returns the current number of remembered keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
