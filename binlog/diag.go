package binlog

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// diagnostics is the out-of-band channel for background failures. The
// log file never receives reports about itself; instead each failure
// class is written once per run to stderr, colorized when stderr is a
// terminal.
type diagnostics struct {
	mu    sync.Mutex
	out   io.Writer
	color bool
	seen  map[string]struct{}
}

func newDiagnostics() *diagnostics {
	fd := os.Stderr.Fd()
	return &diagnostics{
		out:   colorable.NewColorableStderr(),
		color: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
		seen:  make(map[string]struct{}),
	}
}

// reportOnce writes one report per operation class per run.
func (d *diagnostics) reportOnce(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[op]; ok {
		return
	}
	d.seen[op] = struct{}{}
	if d.color {
		fmt.Fprintf(d.out, "\x1b[31mbinlog: %s failed: %v\x1b[0m\n", op, err)
	} else {
		fmt.Fprintf(d.out, "binlog: %s failed: %v\n", op, err)
	}
}
