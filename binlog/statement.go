package binlog

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// decoderFunc turns a record's argument blob into formatted text on the
// output stage. One is built per call site, on the statement's first
// use, and must never fail.
type decoderFunc func(args []byte, out *OutputBuffer)

// decoderTable maps the uint32 id stored in each record to its decoder.
// It is append-only: ids stay valid for the life of the process, which
// is what lets a record outlive the goroutine that wrote it.
var decoderTable = struct {
	sync.Mutex
	funcs atomic.Value // []decoderFunc
}{}

func registerDecoder(d decoderFunc) uint32 {
	decoderTable.Lock()
	defer decoderTable.Unlock()
	old, _ := decoderTable.funcs.Load().([]decoderFunc)
	next := make([]decoderFunc, len(old)+1)
	copy(next, old)
	next[len(old)] = d
	decoderTable.funcs.Store(next)
	return uint32(len(old))
}

func decoderByID(id uint32) decoderFunc {
	funcs, _ := decoderTable.funcs.Load().([]decoderFunc)
	if int(id) >= len(funcs) {
		return nil
	}
	return funcs[id]
}

// Statement is one logging call site: a severity and a format string
// with {} placeholders, parsed into literal segments exactly once at
// construction. On its first use the statement binds to the argument
// kinds of that call and registers its decoder; from then on the hot
// path only reads the bound id. A call site must always pass the same
// argument shape, which holds naturally when the statement is a
// package-level variable used from one place.
type Statement struct {
	level  Level
	format string
	segs   []string // len(segs) == placeholder count + 1

	bound     atomic.Bool
	mu        sync.Mutex
	decoderID uint32
	kinds     []argKind
}

// NewStatement parses format and returns a statement for the given
// level. The format uses {} positional placeholders.
func NewStatement(level Level, format string) (*Statement, error) {
	if level > FATAL {
		return nil, fmt.Errorf("unknown level %d", level)
	}
	return &Statement{
		level:  level,
		format: format,
		segs:   strings.Split(format, "{}"),
	}, nil
}

// MustStatement is NewStatement for package-level initialization; it
// panics on a malformed statement.
func MustStatement(level Level, format string) *Statement {
	st, err := NewStatement(level, format)
	if err != nil {
		panic(err)
	}
	return st
}

// Level returns the statement's severity.
func (st *Statement) Level() Level { return st.level }

// Format returns the original format string.
func (st *Statement) Format() string { return st.format }

// bind fixes the statement's argument kinds from its first call and
// registers the decoder. It returns the decoder id, and false when the
// argument count does not match the placeholder count or the argument
// kinds differ from the bound ones, in which case the caller drops the
// record.
func (st *Statement) bind(args []Arg) (uint32, bool) {
	if st.bound.Load() {
		if !st.kindsMatch(args) {
			return 0, false
		}
		return st.decoderID, true
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.bound.Load() {
		if !st.kindsMatch(args) {
			return 0, false
		}
		return st.decoderID, true
	}
	if len(args) != len(st.segs)-1 {
		return 0, false
	}
	kinds := make([]argKind, len(args))
	for i := range args {
		kinds[i] = args[i].kind
	}
	st.kinds = kinds
	st.decoderID = registerDecoder(buildDecoder(st.segs, kinds))
	st.bound.Store(true)
	return st.decoderID, true
}

// kindsMatch reports whether args have exactly the bound argument kinds.
func (st *Statement) kindsMatch(args []Arg) bool {
	if len(args) != len(st.kinds) {
		return false
	}
	for i := range args {
		if args[i].kind != st.kinds[i] {
			return false
		}
	}
	return true
}

// buildDecoder closes over the parsed segments and the kind list; the
// returned func interleaves literal text with decoded arguments.
func buildDecoder(segs []string, kinds []argKind) decoderFunc {
	return func(args []byte, out *OutputBuffer) {
		pos := 0
		for i, k := range kinds {
			out.WriteString(segs[i])
			pos += decodeArg(args[pos:], k, out)
		}
		out.WriteString(segs[len(kinds)])
	}
}
