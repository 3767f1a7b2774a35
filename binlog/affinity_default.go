//go:build !linux

package binlog

// setAffinity is a no-op on platforms without sched_setaffinity.
func setAffinity(cpu int) {}
