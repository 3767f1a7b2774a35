//go:build linux

package binlog

import "golang.org/x/sys/unix"

// setAffinity pins the calling thread to the given CPU. The caller must
// hold runtime.LockOSThread. Failures are ignored; pinning is an
// optimization, not a correctness requirement.
func setAffinity(cpu int) {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	_ = unix.SchedSetaffinity(0, &set)
}
