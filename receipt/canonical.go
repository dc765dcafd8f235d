package receipt

import (
	"encoding/binary"
	"sort"
	"strings"
)

// canonicalEncode renders r in the exact field order §6 specifies:
// (snapshot_id, parent_id_option, cycle_id, shard_id, hook_id, actual_ticks,
// lanes, span_id, a_hash, status_bits, errors_canonical, warnings_canonical,
// duration_ms), followed by the canonicalised delta description, each
// variable-length field prefixed by a 32-bit big-endian length. Fixed-width
// fields need no length prefix.
//
// Errors, Warnings and the "|"-separated parts of DeltaDescription are
// sorted by their own hash before encoding (§4.5:
// "canonicalised by sort-by-hash for byte-identical reproduction") so that
// two receipts differing only in merge order still canonicalise identically
// — the basis of the monoid's commutativity law.
//
// Written append-style against a growable []byte, the same allocation-light
// idiom jsonenc's AppendString uses, rather than building the value
// piecewise with fmt or encoding/json.
func canonicalEncode(r Receipt) []byte {
	return encode(r, true)
}

// mergeHashInput encodes r the same way canonicalEncode does but omits
// ParentSnapshotID, so that Merge's SnapshotID computation is symmetric in
// its two operands' parents even though Merge itself inherits r1's parent
// (§4.5: "the binary op is not symmetric in parent, but the hash is").
func mergeHashInput(r Receipt) []byte {
	return encode(r, false)
}

func encode(r Receipt, includeParent bool) []byte {
	dst := make([]byte, 0, 256)
	dst = append(dst, r.SnapshotID[:]...)

	if includeParent {
		if r.ParentSnapshotID != nil {
			dst = appendLenPrefixed(dst, r.ParentSnapshotID[:])
		} else {
			dst = appendLenPrefixed(dst, nil)
		}
	}

	dst = appendUint64(dst, r.CycleID)
	dst = appendUint32(dst, r.ShardID)
	dst = appendUint64(dst, r.HookID)
	dst = append(dst, r.ActualTicks)
	dst = append(dst, r.Lanes)
	dst = appendUint64(dst, r.SpanID)
	dst = appendUint64(dst, r.AHash)
	dst = append(dst, r.Status.byte())

	dst = appendLenPrefixed(dst, canonicalJoin(r.Errors))
	dst = appendLenPrefixed(dst, canonicalJoin(r.Warnings))
	dst = appendUint64(dst, r.DurationMS)
	dst = appendLenPrefixed(dst, canonicalJoin(strings.Split(r.DeltaDescription, "|")))

	return dst
}

// canonicalJoin sorts a multiset of strings by their FNV-1a hash and joins
// them with a 0x00 separator, producing identical bytes regardless of input
// order (sort-by-hash, §4.5).
func canonicalJoin(items []string) []byte {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]string, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		hi, hj := fnvHash(sorted[i]), fnvHash(sorted[j])
		if hi != hj {
			return hi < hj
		}
		return sorted[i] < sorted[j]
	})
	out := make([]byte, 0, len(sorted)*8)
	for i, s := range sorted {
		if i > 0 {
			out = append(out, 0x00)
		}
		out = append(out, s...)
	}
	return out
}

func appendUint32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

func appendUint64(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

// appendLenPrefixed appends field's length as a 32-bit big-endian prefix,
// then field itself.
func appendLenPrefixed(dst, field []byte) []byte {
	dst = appendUint32(dst, uint32(len(field)))
	return append(dst, field...)
}
