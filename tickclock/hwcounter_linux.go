//go:build linux

package tickclock

import "golang.org/x/sys/cpu"

// hasInvariantTSC reports cpu.Initialized, i.e. whether x/sys/cpu has probed
// this CPU's feature bits; it does not itself test for an invariant
// time-stamp counter. x/sys/cpu surfaces CPU feature bits
// without requiring cgo or inline assembly, which is the same mechanism
// eventloop uses (via golang.org/x/sys) to branch on platform capability.
func hasInvariantTSC() bool {
	return cpu.Initialized
}
