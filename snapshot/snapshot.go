// Package snapshot implements the append-only snapshot pool and the single
// atomically-swappable "current" index of §4.6.
package snapshot

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/knhk/mukernel/receipt"
)

// Snapshot is a content-addressed point-in-time state. ID is derived from
// Content, ParentID, and Metadata together (invariant 5:
// "snapshot_id = H(canonical_bytes(triples, parent_id, metadata))"), so two
// snapshots sharing Content but differing in lineage or metadata never
// collide — the same content-addressing discipline receipt.Merge relies on
// for its SnapshotID.
type Snapshot struct {
	ID                [32]byte
	ParentID          *[32]byte
	Content           []byte
	Metadata          []byte
	ValidationReceipt *receipt.Receipt
}

// New constructs a Snapshot, deriving its ID from content, parentID, and
// metadata together.
func New(content []byte, parentID *[32]byte, metadata []byte) Snapshot {
	sum := sha256.Sum256(canonicalBytes(content, parentID, metadata))
	return Snapshot{ID: sum, ParentID: parentID, Content: content, Metadata: metadata}
}

// canonicalBytes folds content, a presence-flagged parentID, and metadata
// into one hash input, append-style against a growable []byte (the same
// length-prefixed idiom receipt/canonical.go uses). parentID needs an
// explicit presence flag rather than a bare length prefix so a root
// snapshot (nil parent) can never collide with a non-root one merely
// because both happen to encode to zero bytes.
func canonicalBytes(content []byte, parentID *[32]byte, metadata []byte) []byte {
	dst := make([]byte, 0, len(content)+len(metadata)+48)
	dst = appendLenPrefixed(dst, content)
	if parentID != nil {
		dst = append(dst, 1)
		dst = append(dst, parentID[:]...)
	} else {
		dst = append(dst, 0)
	}
	dst = appendLenPrefixed(dst, metadata)
	return dst
}

func appendLenPrefixed(dst, field []byte) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(len(field)))
	dst = append(dst, buf[:]...)
	return append(dst, field...)
}

// AllowsPromotion reports whether the snapshot's attached validation receipt
// (if any) permits promotion (§4.6 preconditions: snapshot exists,
// validation_receipt attached, all five inner flags true).
func (s Snapshot) AllowsPromotion() bool {
	return s.ValidationReceipt != nil && s.ValidationReceipt.Status.AllowsPromotion()
}
