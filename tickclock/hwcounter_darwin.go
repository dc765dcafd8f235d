//go:build darwin

package tickclock

import "golang.org/x/sys/cpu"

// hasInvariantTSC mirrors hwcounter_linux.go; Darwin's perf counters are not
// directly exposed without cgo, so we key off whether x/sys/cpu managed to
// probe the host at all, same as the Linux path.
func hasInvariantTSC() bool {
	return cpu.Initialized
}
