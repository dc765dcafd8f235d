package receipt

// StatusFlags is the five inner status flags a validation receipt carries
// (SPEC_FULL.md §B.3, named explicitly per knhk-ontology/src/promotion.rs
// and knhk-autonomous-system/src/consistency.rs rather than left as a bare
// bitmask, the way spec.md's "status_bits" prose would otherwise suggest).
type StatusFlags struct {
	TypeSoundness    bool
	NoRetrocausation bool
	GuardPreservation bool
	SLOPreservation  bool
	Determinism      bool
}

// IdentityFlags is the all-true flag set the identity receipt ε carries.
func IdentityFlags() StatusFlags {
	return StatusFlags{true, true, true, true, true}
}

// And returns the logical AND of f and g, flag by flag — the §4.5 monoid
// operator's "status bits: logical AND of each of the five inner flags".
func (f StatusFlags) And(g StatusFlags) StatusFlags {
	return StatusFlags{
		TypeSoundness:     f.TypeSoundness && g.TypeSoundness,
		NoRetrocausation:  f.NoRetrocausation && g.NoRetrocausation,
		GuardPreservation: f.GuardPreservation && g.GuardPreservation,
		SLOPreservation:   f.SLOPreservation && g.SLOPreservation,
		Determinism:       f.Determinism && g.Determinism,
	}
}

// AllowsPromotion mirrors promotion.rs's allows_promotion(): every inner
// flag must be true (§4.6 preconditions for promotion).
func (f StatusFlags) AllowsPromotion() bool {
	return f.TypeSoundness && f.NoRetrocausation && f.GuardPreservation && f.SLOPreservation && f.Determinism
}

// byte packs the five flags into a single byte for canonical encoding,
// bit 0 = TypeSoundness … bit 4 = Determinism.
func (f StatusFlags) byte() byte {
	var b byte
	if f.TypeSoundness {
		b |= 1 << 0
	}
	if f.NoRetrocausation {
		b |= 1 << 1
	}
	if f.GuardPreservation {
		b |= 1 << 2
	}
	if f.SLOPreservation {
		b |= 1 << 3
	}
	if f.Determinism {
		b |= 1 << 4
	}
	return b
}
