//go:build !linux && !darwin

package tickclock

// hasInvariantTSC is conservatively false on platforms (including Windows)
// where this module has no probed cycle-counter source, per §4.1's mandated
// fallback: "A counter that fails to advance... falls back to the
// high-resolution wall clock."
func hasInvariantTSC() bool {
	return false
}
