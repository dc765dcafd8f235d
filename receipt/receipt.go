// Package receipt implements the Receipt type, its canonical encoding, and
// the commutative, associative merge monoid of §4.5.
package receipt

// Receipt is the artifact a pattern executor produces in lockstep with an
// assertion (§3): immutable once written into the Α-ring.
type Receipt struct {
	SnapshotID       [32]byte
	ParentSnapshotID *[32]byte
	CycleID          uint64
	ShardID          uint32
	HookID           uint64
	ActualTicks      uint8
	Lanes            uint8
	SpanID           uint64
	AHash            uint64
	Status           StatusFlags
	Errors           []string
	Warnings         []string
	DeltaDescription string
	DurationMS       uint64
}

// Identity returns the identity receipt ε (§4.5): all status bits true,
// empty errors/warnings, zero duration, empty description. r ⊕ ε and ε ⊕ r
// keep every content field of r and share one SnapshotID; that SnapshotID
// equals r's own only when r was itself produced by Merge, since Merge always
// recomputes it from the merged content.
func Identity() Receipt {
	return Receipt{Status: IdentityFlags()}
}
