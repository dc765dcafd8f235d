// Package kernelops implements the four branchless hot kernels of §4.9:
// ASK, COUNT, COMPARE, VALIDATE. Every kernel operates on runs of at most
// 8 bytes and returns a bool in constant time with respect to the *content*
// of its inputs — only the fixed 8-byte scan width and the length-bound
// check vary control flow, and both depend solely on length, never on byte
// values.
package kernelops

// MaxRunBytes is the hard length bound every kernel enforces (§4.9: "Inputs
// >8 bytes produce false immediately; there is no silent truncation").
const MaxRunBytes = 8

// ASK reports whether any byte in input also appears anywhere in data.
// Oversized inputs (either slice > MaxRunBytes) return false immediately.
func ASK(input, data []byte) bool {
	if len(input) > MaxRunBytes || len(data) > MaxRunBytes {
		return false
	}
	var hit uint8
	for i := 0; i < MaxRunBytes; i++ {
		var ib byte
		if i < len(input) {
			ib = input[i]
		}
		for j := 0; j < MaxRunBytes; j++ {
			var db byte
			if j < len(data) {
				db = data[j]
			}
			validLane := i < len(input) && j < len(data)
			hit |= boolToBit(ib == db && validLane)
		}
	}
	return hit != 0
}

// COUNT reports whether data contains at least one occurrence of every
// distinct byte in input ("does the data contain at least one of each input
// byte?", §4.9) — the total-count predicate, computed branchlessly by
// accumulating a per-input-byte hit flag across a fixed 8x8 scan.
func COUNT(input, data []byte) bool {
	if len(input) > MaxRunBytes || len(data) > MaxRunBytes || len(input) == 0 {
		return false
	}
	var allHit uint8 = 1
	for i := 0; i < MaxRunBytes; i++ {
		if i >= len(input) {
			continue
		}
		var hitThis uint8
		ib := input[i]
		for j := 0; j < MaxRunBytes; j++ {
			if j >= len(data) {
				continue
			}
			hitThis |= boolToBit(ib == data[j])
		}
		allHit &= hitThis
	}
	return allHit != 0
}

// COMPARE reports byte-for-byte equality of a and b in constant time via
// xor-fold: every byte pair is xor'd and the results OR-accumulated, so the
// number of mismatching bytes never affects control flow or early exit.
func COMPARE(a, b []byte) bool {
	if len(a) > MaxRunBytes || len(b) > MaxRunBytes || len(a) != len(b) {
		return false
	}
	var acc byte
	for i := 0; i < MaxRunBytes; i++ {
		var x, y byte
		if i < len(a) {
			x = a[i]
			y = b[i]
		}
		acc |= x ^ y
	}
	return acc == 0
}

// VALIDATE reports whether input is non-empty and within the run-length
// bound (§4.9).
func VALIDATE(input []byte) bool {
	return len(input) > 0 && len(input) <= MaxRunBytes
}

// boolToBit converts a bool to 0/1 via a single conditional assignment, the
// same pattern guard.boolToBit uses, so the compiler can lower it to a
// conditional-move rather than a real branch.
func boolToBit(cond bool) uint8 {
	var b uint8
	if cond {
		b = 1
	}
	return b
}
