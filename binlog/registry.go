package binlog

import (
	"sync"
	"sync/atomic"
	"time"
)

// queueWrapper is the backend-owned handle around one producer queue.
// Its lifetime ends only when the queue is orphaned and drained, and
// only the consumer retires it.
type queueWrapper struct {
	queue      *Queue
	createdAt  time.Time
	orphaned   atomic.Bool
	orphanedAt atomic.Int64 // unix nanos, set once when orphaned
}

// queueRegistry publishes the set of live producer queues to the
// consumer. Producers mutate the authoritative current list under
// writerMu; the consumer drains from its own snapshot and refreshes it
// only when a flag says something changed, so the emission path never
// takes the mutex.
//
// Retirement is two-phase: a refresh that removes wrappers from the
// current list parks them in pendingDeletion, and the next refresh
// clears them, by which time no snapshot can reference them. The
// garbage collector does the actual freeing; the structure is kept so
// a wrapper is provably unreachable from any snapshot before it goes.
type queueRegistry struct {
	writerMu sync.Mutex
	current  []*queueWrapper // copy-on-write; never mutated in place

	addFlag    atomic.Bool
	deleteFlag atomic.Bool

	// Consumer-owned; touched only on the consumer goroutine (or after
	// it has been joined).
	snapshot        []*queueWrapper
	pendingDeletion []*queueWrapper
}

// allocate creates a queue for a new producer, publishes its wrapper
// and returns it. The current list is replaced, not appended in place,
// so the consumer's snapshot is undisturbed.
func (r *queueRegistry) allocate(initialCapacity, maxNode int) *queueWrapper {
	w := &queueWrapper{
		queue:     NewQueue(initialCapacity, maxNode),
		createdAt: time.Now(),
	}
	r.writerMu.Lock()
	next := make([]*queueWrapper, len(r.current)+1)
	copy(next, r.current)
	next[len(r.current)] = w
	r.current = next
	r.addFlag.Store(true)
	r.writerMu.Unlock()
	return w
}

// markOrphaned records that the producer is gone. The queue keeps being
// drained; if it is already empty the delete flag is raised so the
// consumer retires the wrapper on its next refresh. Idempotent.
func (r *queueRegistry) markOrphaned(w *queueWrapper) {
	r.writerMu.Lock()
	defer r.writerMu.Unlock()
	if !w.orphaned.CompareAndSwap(false, true) {
		return
	}
	w.orphanedAt.Store(time.Now().UnixNano())
	if w.queue.IsEmpty() {
		r.deleteFlag.Store(true)
	}
}

// refreshAdd adopts the current list as the new snapshot. Consumer only.
func (r *queueRegistry) refreshAdd() {
	r.writerMu.Lock()
	r.pendingDeletion = nil
	r.snapshot = r.current
	r.addFlag.Store(false)
	r.writerMu.Unlock()
}

// refreshDelete removes every orphaned-and-drained wrapper from the
// current list, parks the removed wrappers until the next refresh, and
// adopts the filtered list as the new snapshot. Consumer only.
func (r *queueRegistry) refreshDelete() {
	r.writerMu.Lock()
	r.pendingDeletion = nil
	kept := make([]*queueWrapper, 0, len(r.current))
	var retired []*queueWrapper
	for _, w := range r.current {
		if w.orphaned.Load() && w.queue.IsEmpty() {
			retired = append(retired, w)
		} else {
			kept = append(kept, w)
		}
	}
	r.current = kept
	r.pendingDeletion = retired
	r.snapshot = kept
	r.deleteFlag.Store(false)
	r.writerMu.Unlock()
}
