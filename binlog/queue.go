package binlog

import (
	"sync/atomic"
)

// queueNode is one link in a queue's ring chain. Only the producer
// appends nodes; only the consumer advances past them. The next link is
// published by the producer and acquired by the consumer before its
// first dereference.
type queueNode struct {
	ring *RingBytes
	next atomic.Pointer[queueNode]
}

// Queue is an SPSC byte queue built from a singly linked chain of
// RingBytes. When a reservation does not fit in the tail ring, the
// producer links a new ring of double the capacity (at least as large
// as the reservation), up to the per-node cap; once a full tail ring is
// at the cap, reservations fail and the record is dropped by the
// caller. The consumer drains from the head and advances past a ring
// once it is empty and a later ring exists, letting the old ring be
// reclaimed.
type Queue struct {
	// head is the consumer end. It is advanced only by the consumer,
	// but read by the producer's IsEmpty at orphan time, so it is
	// atomic. Stale readers are safe: a bypassed node still links
	// forward.
	head atomic.Pointer[queueNode]
	_    [cacheLine - 8]byte

	// Producer-owned state.
	tail     *queueNode
	reserved *queueNode // node of the most recent successful reservation

	maxNode int
}

// NewQueue creates a queue whose first ring has initialCapacity bytes
// (rounded up to a power of two) and whose rings never exceed maxNode
// bytes.
func NewQueue(initialCapacity, maxNode int) *Queue {
	if initialCapacity <= 0 {
		initialCapacity = defaultInitialQueueCapacity
	}
	if maxNode <= 0 {
		maxNode = defaultMaxNodeCapacity
	}
	if initialCapacity > maxNode {
		initialCapacity = maxNode
	}
	n := &queueNode{ring: NewRingBytes(initialCapacity)}
	q := &Queue{tail: n, maxNode: maxNode}
	q.head.Store(n)
	return q
}

// ReserveWrite returns a writable slice of n bytes at the queue's tail,
// growing the chain if needed. It returns nil when n exceeds the node
// cap or when the tail ring is full and already at the cap; the caller
// counts the record as dropped. Producer side only.
func (q *Queue) ReserveWrite(n int) []byte {
	if n <= 0 || n > q.maxNode {
		return nil
	}
	t := q.tail
	if buf := t.ring.ReserveWrite(n); buf != nil {
		q.reserved = t
		return buf
	}
	if t.ring.Capacity() >= q.maxNode {
		return nil
	}
	grown := t.ring.Capacity() * 2
	if grown < n {
		grown = n
	}
	c := int(nextPow2(uint64(grown)))
	if c > q.maxNode {
		c = q.maxNode
	}
	node := &queueNode{ring: NewRingBytes(c)}
	buf := node.ring.ReserveWrite(n)
	if buf == nil {
		return nil
	}
	t.next.Store(node)
	q.tail = node
	q.reserved = node
	return buf
}

// CommitWrite publishes the most recent reservation. Producer side only.
func (q *Queue) CommitWrite(n int) {
	q.reserved.ring.CommitWrite(n)
}

// PeekRead returns n contiguous committed bytes from the head of the
// queue, or nil when fewer than n bytes are available there. A drained
// head ring is bypassed (and dropped from the chain) when a later ring
// exists. Consumer side only.
func (q *Queue) PeekRead(n int) []byte {
	h := q.head.Load()
	for {
		if buf := h.ring.PeekRead(n); buf != nil {
			return buf
		}
		next := h.next.Load()
		if next == nil || !h.ring.IsEmpty() {
			return nil
		}
		q.head.Store(next)
		h = next
	}
}

// CommitRead releases n consumed bytes at the head, advancing past the
// head ring if the commit drained it and a later ring exists. Consumer
// side only.
func (q *Queue) CommitRead(n int) {
	h := q.head.Load()
	h.ring.CommitRead(n)
	if h.ring.IsEmpty() {
		if next := h.next.Load(); next != nil {
			q.head.Store(next)
		}
	}
}

// IsEmpty reports whether every ring in the chain has been drained.
func (q *Queue) IsEmpty() bool {
	for n := q.head.Load(); n != nil; n = n.next.Load() {
		if n.ring.AvailableRead() > 0 {
			return false
		}
	}
	return true
}

// NodeCount returns the number of rings currently linked, head to tail.
func (q *Queue) NodeCount() int {
	count := 0
	for n := q.head.Load(); n != nil; n = n.next.Load() {
		count++
	}
	return count
}

// TailCapacity returns the capacity of the current write ring.
func (q *Queue) TailCapacity() int {
	return q.tail.ring.Capacity()
}
