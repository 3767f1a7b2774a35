package binlog

import (
	"encoding/binary"
	"math"
	"strings"
	"sync"
	"unsafe"
)

// Record layout inside a producer queue: a fixed metadata header
// followed by the argument blob. The header is padded to 8-byte
// alignment. All integers are little-endian.
const (
	metaTimestampOff = 0  // uint64, nanoseconds
	metaDecoderOff   = 8  // uint32, decoder table id
	metaArgsSizeOff  = 12 // uint32, argument blob length
	metaLevelOff     = 16 // one byte

	metadataSize = 24
)

// maxStringLen is the largest encodable string payload; longer runtime
// strings are truncated silently.
const maxStringLen = 65535

// metadata is the decoded header of one record.
type metadata struct {
	timestamp uint64
	decoder   uint32
	argsSize  uint32
	level     Level
}

func encodeMetadata(buf []byte, ts uint64, decoder, argsSize uint32, level Level) {
	binary.LittleEndian.PutUint64(buf[metaTimestampOff:], ts)
	binary.LittleEndian.PutUint32(buf[metaDecoderOff:], decoder)
	binary.LittleEndian.PutUint32(buf[metaArgsSizeOff:], argsSize)
	buf[metaLevelOff] = byte(level)
	buf[metaLevelOff+1] = 0
	buf[metaLevelOff+2] = 0
	buf[metaLevelOff+3] = 0
	binary.LittleEndian.PutUint32(buf[20:], 0)
}

func decodeMetadata(buf []byte) metadata {
	return metadata{
		timestamp: binary.LittleEndian.Uint64(buf[metaTimestampOff:]),
		decoder:   binary.LittleEndian.Uint32(buf[metaDecoderOff:]),
		argsSize:  binary.LittleEndian.Uint32(buf[metaArgsSizeOff:]),
		level:     Level(buf[metaLevelOff]),
	}
}

// argKind identifies the wire encoding of one argument. The kind list
// of a call site is captured once, when its statement binds; records
// themselves carry no per-argument tags.
type argKind uint8

const (
	kindBool argKind = iota
	kindInt8
	kindInt16
	kindInt32
	kindInt64
	kindUint8
	kindUint16
	kindUint32
	kindUint64
	kindFloat32
	kindFloat64
	kindString // 2-byte length + copied bytes
	kindStatic // 2-byte length + 8-byte pointer into pinned storage
)

// Arg is one log argument, packaged by the typed constructors below.
// Scalars carry their bits in num; strings carry their payload in str.
type Arg struct {
	kind argKind
	num  uint64
	str  string
}

// Bool packages a bool argument.
func Bool(v bool) Arg {
	n := uint64(0)
	if v {
		n = 1
	}
	return Arg{kind: kindBool, num: n}
}

// Int packages an int argument. It is encoded as 8 bytes.
func Int(v int) Arg { return Arg{kind: kindInt64, num: uint64(v)} }

// Int8 packages an int8 argument.
func Int8(v int8) Arg { return Arg{kind: kindInt8, num: uint64(uint8(v))} }

// Int16 packages an int16 argument.
func Int16(v int16) Arg { return Arg{kind: kindInt16, num: uint64(uint16(v))} }

// Int32 packages an int32 argument.
func Int32(v int32) Arg { return Arg{kind: kindInt32, num: uint64(uint32(v))} }

// Int64 packages an int64 argument.
func Int64(v int64) Arg { return Arg{kind: kindInt64, num: uint64(v)} }

// Uint packages a uint argument. It is encoded as 8 bytes.
func Uint(v uint) Arg { return Arg{kind: kindUint64, num: uint64(v)} }

// Uint8 packages a uint8 argument.
func Uint8(v uint8) Arg { return Arg{kind: kindUint8, num: uint64(v)} }

// Uint16 packages a uint16 argument.
func Uint16(v uint16) Arg { return Arg{kind: kindUint16, num: uint64(v)} }

// Uint32 packages a uint32 argument.
func Uint32(v uint32) Arg { return Arg{kind: kindUint32, num: uint64(v)} }

// Uint64 packages a uint64 argument.
func Uint64(v uint64) Arg { return Arg{kind: kindUint64, num: v} }

// Float32 packages a float32 argument.
func Float32(v float32) Arg { return Arg{kind: kindFloat32, num: uint64(math.Float32bits(v))} }

// Float64 packages a float64 argument.
func Float64(v float64) Arg { return Arg{kind: kindFloat64, num: math.Float64bits(v)} }

// String packages a runtime string argument. The content is copied into
// the record; payloads longer than 65535 bytes are truncated silently.
// This is the safe default for any string whose lifetime is not proven.
func String(v string) Arg { return Arg{kind: kindString, str: v} }

// StaticString is a string with proven process lifetime: Pin interned
// it in a package-level table that is never cleared. Only a
// StaticString may be encoded by reference instead of by copy.
type StaticString struct {
	s string
}

var pinTable = struct {
	sync.Mutex
	m map[string]string
}{m: make(map[string]string)}

// Pin interns s for the lifetime of the process and returns a
// StaticString backed by the pinned copy. Intended for literals known
// at init time; pinning an unbounded set of runtime strings leaks by
// design.
func Pin(s string) StaticString {
	pinTable.Lock()
	defer pinTable.Unlock()
	if v, ok := pinTable.m[s]; ok {
		return StaticString{s: v}
	}
	c := strings.Clone(s)
	pinTable.m[c] = c
	return StaticString{s: c}
}

// Static packages a pinned string argument. Only the length and a
// pointer into the pinned storage enter the record.
func Static(v StaticString) Arg { return Arg{kind: kindStatic, str: v.s} }

// argSize returns the encoded size of a in bytes.
func argSize(a Arg) int {
	switch a.kind {
	case kindBool, kindInt8, kindUint8:
		return 1
	case kindInt16, kindUint16:
		return 2
	case kindInt32, kindUint32, kindFloat32:
		return 4
	case kindInt64, kindUint64, kindFloat64:
		return 8
	case kindString:
		n := len(a.str)
		if n > maxStringLen {
			n = maxStringLen
		}
		return 2 + n
	case kindStatic:
		return 2 + 8
	}
	return 0
}

// encodeArg writes a at the start of buf and returns the bytes written.
// buf must have been sized with argSize.
func encodeArg(buf []byte, a Arg) int {
	switch a.kind {
	case kindBool, kindInt8, kindUint8:
		buf[0] = byte(a.num)
		return 1
	case kindInt16, kindUint16:
		binary.LittleEndian.PutUint16(buf, uint16(a.num))
		return 2
	case kindInt32, kindUint32, kindFloat32:
		binary.LittleEndian.PutUint32(buf, uint32(a.num))
		return 4
	case kindInt64, kindUint64, kindFloat64:
		binary.LittleEndian.PutUint64(buf, a.num)
		return 8
	case kindString:
		n := len(a.str)
		if n > maxStringLen {
			n = maxStringLen
		}
		binary.LittleEndian.PutUint16(buf, uint16(n))
		copy(buf[2:2+n], a.str)
		return 2 + n
	case kindStatic:
		n := len(a.str)
		if n > maxStringLen {
			n = maxStringLen
		}
		binary.LittleEndian.PutUint16(buf, uint16(n))
		ptr := uint64(uintptr(unsafe.Pointer(unsafe.StringData(a.str))))
		binary.LittleEndian.PutUint64(buf[2:], ptr)
		return 2 + 8
	}
	return 0
}

// decodeArg materializes one argument of the given kind from the front
// of buf, renders it into out, and returns the bytes consumed.
func decodeArg(buf []byte, k argKind, out *OutputBuffer) int {
	switch k {
	case kindBool:
		out.appendBool(buf[0] != 0)
		return 1
	case kindInt8:
		out.appendInt(int64(int8(buf[0])))
		return 1
	case kindUint8:
		out.appendUint(uint64(buf[0]))
		return 1
	case kindInt16:
		out.appendInt(int64(int16(binary.LittleEndian.Uint16(buf))))
		return 2
	case kindUint16:
		out.appendUint(uint64(binary.LittleEndian.Uint16(buf)))
		return 2
	case kindInt32:
		out.appendInt(int64(int32(binary.LittleEndian.Uint32(buf))))
		return 4
	case kindUint32:
		out.appendUint(uint64(binary.LittleEndian.Uint32(buf)))
		return 4
	case kindFloat32:
		out.appendFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(buf))), 32)
		return 4
	case kindInt64:
		out.appendInt(int64(binary.LittleEndian.Uint64(buf)))
		return 8
	case kindUint64:
		out.appendUint(binary.LittleEndian.Uint64(buf))
		return 8
	case kindFloat64:
		out.appendFloat(math.Float64frombits(binary.LittleEndian.Uint64(buf)), 64)
		return 8
	case kindString:
		n := int(binary.LittleEndian.Uint16(buf))
		out.Write(buf[2 : 2+n])
		return 2 + n
	case kindStatic:
		n := int(binary.LittleEndian.Uint16(buf))
		ptr := uintptr(binary.LittleEndian.Uint64(buf[2:]))
		if ptr != 0 && n > 0 {
			//nolint:govet // the pointee is pinned for the process lifetime
			out.WriteString(unsafe.String((*byte)(unsafe.Pointer(ptr)), n))
		}
		return 2 + 8
	}
	return 0
}
