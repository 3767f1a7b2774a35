package binlog

import "runtime"

// Producer is one goroutine's borrowed handle to its log queue. The
// backend owns the queue; the handle only writes to it. A handle must
// never be shared between goroutines — the queue is single-producer.
type Producer struct {
	backend *Backend
	queue   *Queue
	wrapper *queueWrapper
}

// Log enqueues one record for the given statement. The record carries
// the timestamp, the statement's decoder id and the encoded arguments;
// formatting happens later, on the consumer. On a full queue the record
// is dropped and counted, never blocked on.
//
// The argument count must match the statement's placeholders and every
// call through the same statement must use the same argument kinds;
// mismatched calls are dropped.
func (p *Producer) Log(st *Statement, args ...Arg) {
	if st.level < p.backend.cfg.MinLevel {
		return
	}
	// Sample time before reserving so ordering reflects call time, not
	// queue contention.
	ts := nowNanos()

	size := 0
	for i := range args {
		size += argSize(args[i])
	}
	total := metadataSize + size

	buf := p.queue.ReserveWrite(total)
	if buf == nil {
		p.backend.stats.Dropped.Add(1)
		return
	}
	id, ok := st.bind(args)
	if !ok {
		// Arity mismatch; the uncommitted reservation is simply
		// abandoned.
		p.backend.stats.Dropped.Add(1)
		return
	}
	encodeMetadata(buf, ts, id, uint32(size), st.level)
	off := metadataSize
	for i := range args {
		off += encodeArg(buf[off:], args[i])
	}
	p.queue.CommitWrite(total)
}

// Close relinquishes the handle: the wrapper is marked orphaned and the
// backend drains whatever is still queued before retiring it.
// Idempotent.
func (p *Producer) Close() {
	runtime.SetFinalizer(p, nil)
	p.orphan()
}

func (p *Producer) orphan() {
	p.backend.registry.markOrphaned(p.wrapper)
}
