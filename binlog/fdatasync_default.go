//go:build !linux

package binlog

import "os"

// fdatasync falls back to a full sync where the data-only variant is
// not available.
func fdatasync(f *os.File) error {
	return f.Sync()
}
