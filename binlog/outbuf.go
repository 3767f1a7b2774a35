package binlog

import (
	"strconv"
)

// outputMinFree is the staging headroom the consumer secures (by
// flushing, or growing when no sink is attached) before emitting a
// record.
const outputMinFree = 32

// OutputBuffer is the single-threaded byte ring that stages formatted
// text in front of the file sink. Only the consumer goroutine touches
// it. Unlike the producer rings it wraps freely (writes are copied), and
// when space runs out it either flushes the used region to the sink or,
// with no sink attached, grows by doubling.
//
// It implements io.Writer, io.StringWriter and io.ByteWriter so
// formatting helpers can target it directly; Write never returns an
// error.
type OutputBuffer struct {
	data     []byte
	capacity int
	read     int
	write    int
	sink     *FileSink
	scratch  [32]byte
}

// NewOutputBuffer creates a staging buffer. A nil sink is allowed; the
// buffer then grows instead of flushing.
func NewOutputBuffer(capacity int, sink *FileSink) *OutputBuffer {
	if capacity <= 0 {
		capacity = defaultOutputBufferCapacity
	}
	return &OutputBuffer{
		data:     make([]byte, capacity),
		capacity: capacity,
		sink:     sink,
	}
}

// Len returns the number of staged bytes.
func (o *OutputBuffer) Len() int {
	if o.write >= o.read {
		return o.write - o.read
	}
	return o.capacity - o.read + o.write
}

// Empty reports whether no bytes are staged.
func (o *OutputBuffer) Empty() bool {
	return o.read == o.write
}

// Free returns the writable headroom. One slot is kept back to tell a
// full buffer from an empty one.
func (o *OutputBuffer) Free() int {
	return o.capacity - o.Len() - 1
}

// ensure makes room for n more bytes, flushing to the sink when one is
// attached and growing otherwise. Growth also covers the case of a
// single record larger than the whole buffer.
func (o *OutputBuffer) ensure(n int) {
	if o.Free() >= n {
		return
	}
	if o.sink != nil {
		o.FlushToSink()
		if o.Free() >= n {
			return
		}
	}
	o.grow(n)
}

// grow doubles the capacity until n more bytes fit, compacting the
// staged region to the front.
func (o *OutputBuffer) grow(n int) {
	newCap := o.capacity * 2
	for newCap-o.Len()-1 < n {
		newCap *= 2
	}
	buf := make([]byte, newCap)
	used := o.Len()
	if o.write >= o.read {
		copy(buf, o.data[o.read:o.write])
	} else {
		first := copy(buf, o.data[o.read:])
		copy(buf[first:], o.data[:o.write])
	}
	o.data = buf
	o.capacity = newCap
	o.read = 0
	o.write = used
}

// Write appends p, making room as needed. The returned error is always
// nil.
func (o *OutputBuffer) Write(p []byte) (int, error) {
	o.ensure(len(p))
	o.writeBytes(p)
	return len(p), nil
}

// WriteString appends s.
func (o *OutputBuffer) WriteString(s string) (int, error) {
	o.ensure(len(s))
	if len(s) == 0 {
		return 0, nil
	}
	first := o.capacity - o.write
	if first > len(s) {
		first = len(s)
	}
	copy(o.data[o.write:], s[:first])
	copy(o.data, s[first:])
	o.write = (o.write + len(s)) % o.capacity
	return len(s), nil
}

// WriteByte appends a single byte.
func (o *OutputBuffer) WriteByte(c byte) error {
	o.ensure(1)
	o.data[o.write] = c
	o.write = (o.write + 1) % o.capacity
	return nil
}

func (o *OutputBuffer) writeBytes(p []byte) {
	if len(p) == 0 {
		return
	}
	first := o.capacity - o.write
	if first > len(p) {
		first = len(p)
	}
	copy(o.data[o.write:], p[:first])
	copy(o.data, p[first:])
	o.write = (o.write + len(p)) % o.capacity
}

func (o *OutputBuffer) appendInt(v int64) {
	o.Write(strconv.AppendInt(o.scratch[:0], v, 10))
}

func (o *OutputBuffer) appendUint(v uint64) {
	o.Write(strconv.AppendUint(o.scratch[:0], v, 10))
}

func (o *OutputBuffer) appendFloat(v float64, bits int) {
	o.Write(strconv.AppendFloat(o.scratch[:0], v, 'g', -1, bits))
}

func (o *OutputBuffer) appendBool(v bool) {
	o.Write(strconv.AppendBool(o.scratch[:0], v))
}

func (o *OutputBuffer) appendTimestamp(ns uint64) {
	o.Write(appendClock(o.scratch[:0], ns))
}

// Read drains up to len(out) staged bytes into out and returns the
// count. It is a test hook; call it only when the consumer is stopped.
func (o *OutputBuffer) Read(out []byte) int {
	n := o.Len()
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = o.data[o.read]
		o.read = (o.read + 1) % o.capacity
	}
	return n
}

// FlushToSink writes the staged region to the sink and resets the
// buffer. Sink errors are handled inside the sink; the staged bytes are
// consumed either way.
func (o *OutputBuffer) FlushToSink() {
	if o.sink == nil || o.Empty() {
		return
	}
	if o.write >= o.read {
		o.sink.Write(o.data[o.read:o.write])
	} else {
		o.sink.Write(o.data[o.read:])
		o.sink.Write(o.data[:o.write])
	}
	o.read = 0
	o.write = 0
}
