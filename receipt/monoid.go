package receipt

import "crypto/sha256"

// Merge implements the §4.5 operator ⊕: status bits AND, errors/warnings
// concatenated (canonicalised by sort-by-hash at encode time), duration
// element-wise max, delta_description concatenated with a stable separator,
// parent inherited from r1, and a new SnapshotID that is the SHA-256 of the
// canonicalised merged content.
//
// Associative and commutative by construction: the merged content's
// canonical encoding sorts its multiset fields independently of merge
// order, so (r1⊕r2)⊕r3 and r1⊕(r2⊕r3) hash identically, and r1⊕r2 and
// r2⊕r1 do too (only ParentSnapshotID differs between the two, and it is
// explicitly excluded from being asymmetric in the *hash* per §4.5: "the
// binary op is not symmetric in parent, but the hash is").
func Merge(r1, r2 Receipt) Receipt {
	merged := Receipt{
		ParentSnapshotID: r1.ParentSnapshotID,
		CycleID:          maxU64(r1.CycleID, r2.CycleID),
		ShardID:          maxU32(r1.ShardID, r2.ShardID),
		HookID:           maxU64(r1.HookID, r2.HookID),
		ActualTicks:      maxU8(r1.ActualTicks, r2.ActualTicks),
		Lanes:            r1.Lanes | r2.Lanes,
		SpanID:           maxU64(r1.SpanID, r2.SpanID),
		AHash:            r1.AHash ^ r2.AHash,
		Status:           r1.Status.And(r2.Status),
		Errors:           concatStrings(r1.Errors, r2.Errors),
		Warnings:         concatStrings(r1.Warnings, r2.Warnings),
		DeltaDescription: concatDescription(r1.DeltaDescription, r2.DeltaDescription),
		DurationMS:       maxU64(r1.DurationMS, r2.DurationMS),
	}

	// Every field combinator above (max, XOR, OR, AND, multiset concat) is
	// itself commutative and associative, and leaves its operand unchanged
	// when combined with ε's zero/empty/all-true values — except Parent,
	// which §4.5 explicitly carves out as "not symmetric in parent, but the
	// hash is". mergeHashInput omits ParentSnapshotID for exactly that
	// reason, so the SnapshotID computed here is genuinely symmetric.
	sum := sha256.Sum256(mergeHashInput(merged))
	merged.SnapshotID = sum
	return merged
}

// concatStrings concatenates two string multisets (order is immaterial;
// canonicalEncode re-sorts by hash before hashing).
func concatStrings(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

// concatDescription joins two delta descriptions with a stable separator
// (§4.5: "concatenation with a stable separator"). Empty sides are skipped
// so ε's empty description never injects a spurious separator.
func concatDescription(a, b string) string {
	switch {
	case a == "" && b == "":
		return ""
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "|" + b
	}
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func maxU8(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
