//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux process probes.

package control

import (
	"os"
	"runtime"

	"github.com/momentics/hioload-io/api"
)

// OpenDescriptors counts the descriptors open in this process, or -1 when
// /proc is unavailable.
func OpenDescriptors() int {
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		return -1
	}
	// ReadDir itself holds one descriptor while listing
	return len(entries) - 1
}

// RegisterPlatformProbes sets Linux-specific debug probes.
func RegisterPlatformProbes(dp api.Debug) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.open_fds", func() any {
		return OpenDescriptors()
	})
}
