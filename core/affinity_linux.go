//go:build linux

package core

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinThread binds the calling OS thread to one CPU. The caller must have
// locked its goroutine to the thread first.
func pinThread(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu % runtime.NumCPU())
	return unix.SchedSetaffinity(0, &set)
}
