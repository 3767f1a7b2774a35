// Package binlog is an asynchronous, low-latency logging core.
//
// Application goroutines enqueue fixed-layout binary records into
// per-producer SPSC byte queues; a single background consumer merges
// the queues in timestamp order, renders each record through the
// decoder registered by its call-site statement, stages the text in a
// memory ring and appends it to date+size rotated log files.
//
// The hot path — Producer.Log — samples a timestamp, reserves space in
// the producer's own queue, copies the argument bytes and commits. No
// locks, no formatting, no I/O. Formatting and disk writes happen on
// the consumer goroutine only.
//
// Timestamps are wall-clock nanoseconds from time.Now (the portable
// strategy; no cycle-counter calibration is performed). Within one
// producer, emission order equals call order; across producers, lines
// are emitted in non-decreasing timestamp order.
//
// Basic usage:
//
//	var reqDone = binlog.MustStatement(binlog.INFO, "request {} done in {}ms")
//
//	backend, err := binlog.New(binlog.DefaultConfig("./logs"))
//	if err != nil {
//		// handle
//	}
//	backend.Start()
//	defer backend.Close()
//
//	p := backend.Producer() // one per worker goroutine
//	defer p.Close()
//	p.Log(reqDone, binlog.Int(42), binlog.Float64(1.25))
//
// A record that does not fit because the producer's queue is full at
// its size cap is dropped, counted, and never blocks the caller.
package binlog
