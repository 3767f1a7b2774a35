//go:build linux

package binlog

import (
	"os"

	"golang.org/x/sys/unix"
)

// fdatasync syncs file data without forcing a metadata update.
func fdatasync(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}
