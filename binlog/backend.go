package binlog

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// idleSleep is how long the consumer sleeps after an iteration that did
// no work.
const idleSleep = 100 * time.Microsecond

// Backend owns the consumer goroutine, the queue registry, the output
// stage and the file sink. One long-lived instance serves the whole
// process; producers obtain their queue handles from it.
type Backend struct {
	cfg      Config
	registry queueRegistry
	out      *OutputBuffer
	sink     *FileSink
	diag     *diagnostics
	stats    Statistics

	lifecycle sync.Mutex // serializes Start/Stop
	running   atomic.Bool
	done      chan struct{}
}

// New creates a backend. With a configured directory the file sink is
// opened immediately, so directory or file problems surface here rather
// than on the consumer.
func New(cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	b := &Backend{cfg: cfg, diag: newDiagnostics()}
	if cfg.Dir != "" {
		sink, err := NewFileSink(cfg.Dir, cfg.MaxFileSize, b.diag, &b.stats)
		if err != nil {
			return nil, err
		}
		b.sink = sink
	}
	b.out = NewOutputBuffer(cfg.OutputBufferCapacity, b.sink)
	return b, nil
}

// Producer allocates a queue for one worker goroutine and returns its
// borrowed handle. The handle must be used by a single goroutine and
// closed when that goroutine is done; a finalizer orphans leaked
// handles so an exited worker can never strand its queue.
func (b *Backend) Producer() *Producer {
	w := b.registry.allocate(b.cfg.InitialQueueCapacity, b.cfg.MaxNodeCapacity)
	p := &Producer{backend: b, queue: w.queue, wrapper: w}
	runtime.SetFinalizer(p, (*Producer).orphan)
	return p
}

// Start spawns the consumer goroutine. Idempotent.
func (b *Backend) Start() {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()
	if b.running.Load() {
		return
	}
	b.done = make(chan struct{})
	b.running.Store(true)
	go b.consumeLoop()
}

// Stop signals shutdown and waits for the consumer, which performs any
// pending refresh, drains every queue to empty and flushes the output
// stage. Idempotent; a backend that never started is a no-op.
func (b *Backend) Stop() {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()
	if !b.running.Load() {
		return
	}
	b.running.Store(false)
	<-b.done
}

// Close stops the backend and releases the sink.
func (b *Backend) Close() error {
	b.Stop()
	if b.sink != nil {
		return b.sink.Close()
	}
	return nil
}

// Stats returns a snapshot of the operational counters.
func (b *Backend) Stats() StatsSnapshot {
	return b.stats.snapshot()
}

// DroppedCount returns the number of records lost so far.
func (b *Backend) DroppedCount() int64 {
	return b.stats.Dropped.Load()
}

// ResetDroppedCount zeroes the dropped-record counter.
func (b *Backend) ResetDroppedCount() {
	b.stats.Dropped.Store(0)
}

// ReadOutput drains up to len(out) bytes of formatted text from the
// output stage. Test hook; only valid while the consumer is stopped.
func (b *Backend) ReadOutput(out []byte) int {
	return b.out.Read(out)
}

// OutputEmpty reports whether the output stage holds no formatted text.
// Test hook; only valid while the consumer is stopped.
func (b *Backend) OutputEmpty() bool {
	return b.out.Empty()
}

// consumeLoop is the consumer goroutine: refresh the snapshot when
// flagged, emit the record with the smallest timestamp across all
// queues, flush to disk every FlushEvery iterations, and sleep briefly
// when idle. On shutdown it drains everything and flushes.
func (b *Backend) consumeLoop() {
	defer close(b.done)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if b.cfg.ConsumerCPU >= 0 {
		setAffinity(b.cfg.ConsumerCPU)
	}

	iter := 0
	for b.running.Load() {
		b.refreshIfFlagged()
		worked := b.emitOne()
		iter++
		if iter >= b.cfg.FlushEvery {
			iter = 0
			b.out.FlushToSink()
			if b.sink != nil {
				b.sink.Flush()
			}
		}
		if !worked {
			time.Sleep(idleSleep)
		}
	}

	// Final drain: pick up late registrations and empty every queue.
	for {
		b.refreshIfFlagged()
		if !b.emitOne() {
			break
		}
	}
	// The last empty scan may have flagged drained orphans.
	b.refreshIfFlagged()
	b.out.FlushToSink()
	if b.sink != nil {
		b.sink.Flush()
	}
}

func (b *Backend) refreshIfFlagged() {
	if b.registry.addFlag.Load() {
		b.registry.refreshAdd()
	}
	if b.registry.deleteFlag.Load() {
		b.registry.refreshDelete()
	}
}

// emitOne emits at most one record: the one with the smallest timestamp
// among the heads of all snapshot queues, ties broken by snapshot
// position. Returns false when there was nothing to do.
func (b *Backend) emitOne() bool {
	var sel *queueWrapper
	minTS := ^uint64(0)
	for _, w := range b.registry.snapshot {
		hdr := w.queue.PeekRead(metadataSize)
		if hdr == nil {
			// A drained orphan is ready for retirement; flag it so the
			// next refresh picks it up.
			if w.orphaned.Load() && w.queue.IsEmpty() {
				b.registry.deleteFlag.Store(true)
			}
			continue
		}
		if ts := binary.LittleEndian.Uint64(hdr[metaTimestampOff:]); ts < minTS {
			minTS = ts
			sel = w
		}
	}
	if sel == nil {
		return false
	}
	if b.out.Free() < outputMinFree {
		// Make room now — flush to the sink, or grow when there is
		// none — so the drain always proceeds; skipping here would let
		// Stop return with committed records still queued.
		b.out.FlushToSink()
		if b.out.Free() < outputMinFree {
			b.out.grow(outputMinFree)
		}
	}

	hdr := sel.queue.PeekRead(metadataSize)
	if hdr == nil {
		return false
	}
	// Copy the header before touching the args; the peeked slice
	// aliases ring memory.
	meta := decodeMetadata(hdr)
	total := metadataSize + int(meta.argsSize)
	rec := sel.queue.PeekRead(total)
	if rec == nil {
		return false
	}

	b.out.WriteString(meta.level.tag())
	b.out.WriteByte(' ')
	b.out.appendTimestamp(meta.timestamp)
	b.out.WriteByte(' ')
	if d := decoderByID(meta.decoder); d != nil {
		d(rec[metadataSize:total], b.out)
	}
	b.out.WriteByte('\n')

	sel.queue.CommitRead(total)
	b.stats.Emitted.Add(1)
	return true
}
