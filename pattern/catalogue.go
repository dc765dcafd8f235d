// Package pattern implements the closed catalogue of workflow control-flow
// patterns (§4.3) and the table-driven dispatcher that executes them.
package pattern

import "github.com/knhk/mukernel/kerrors"

// MaxPatterns is the catalogue's reserved slot count: "at least 43 reserved
// slots" per §4.3's dispatch table format.
const MaxPatterns = 43

// MaxPhases is the per-pattern phase handler bound.
const MaxPhases = 8

// Well-known pattern ids from §4.3's worked examples. The remaining slots up
// to MaxPatterns are reserved for the extended pattern set spec.md gestures
// at ("up to 43 in the catalogue") without enumerating by name.
const (
	Sequence             uint8 = 0
	ParallelSplit        uint8 = 1
	Synchronisation      uint8 = 2
	ExclusiveChoice       uint8 = 3
	SimpleMerge          uint8 = 4
	MultiChoice          uint8 = 5
	StructuredSyncMerge  uint8 = 6
	Discriminator        uint8 = 7
)

// Descriptor is a compiled pattern entry (§4.3, §8 pattern catalogue format).
// Immutable once built into a Catalogue.
type Descriptor struct {
	PatternID   uint8
	TickCost    uint8
	PhaseCount  uint8
	PhaseTicks  [MaxPhases]uint8
	// HookID is assigned once per compiled descriptor at catalogue-build
	// time (SPEC_FULL.md §B.3, grounded on knhk-cli's hook_registry/store.rs
	// "register once" contract) — never reassigned per call.
	HookID uint64
	// Name is a human-readable label for operator-facing error messages
	// (§7: "messages are for operators, not end users").
	Name string
}

// Catalogue is the fixed-size, indexable-by-u8 descriptor table (§4.3,
// §8 "pattern catalogue format"). Built once and never mutated afterward.
type Catalogue struct {
	descriptors [MaxPatterns]*Descriptor
}

// NewCatalogue builds a Catalogue from descriptors, assigning each a stable
// HookID (its 1-based registration order) and validating the Chatman bound
// for every entry before returning.
//
// Grounded on knhk-mu-kernel's timing_const/wcet.rs and proofs.rs: Go has no
// const-evaluable static assertion for "Σ phase_ticks ≤ 8", so this runtime
// self-check at construction time is the documented fallback (§9).
func NewCatalogue(descriptors []Descriptor) (*Catalogue, error) {
	c := &Catalogue{}
	for i := range descriptors {
		d := descriptors[i]
		if int(d.PatternID) >= MaxPatterns {
			return nil, kerrors.New(kerrors.InvariantViolated, "pattern id exceeds catalogue capacity", "pattern_id", d.PatternID, "max", MaxPatterns)
		}
		if c.descriptors[d.PatternID] != nil {
			return nil, kerrors.New(kerrors.InvariantViolated, "duplicate pattern id in catalogue", "pattern_id", d.PatternID)
		}
		if d.PhaseCount > MaxPhases {
			return nil, kerrors.New(kerrors.InvariantViolated, "pattern phase count exceeds bound", "pattern_id", d.PatternID, "phase_count", d.PhaseCount)
		}
		var sum uint16
		for p := uint8(0); p < d.PhaseCount; p++ {
			sum += uint16(d.PhaseTicks[p])
		}
		if sum != uint16(d.TickCost) {
			return nil, kerrors.New(kerrors.InvariantViolated, "pattern phase ticks do not sum to tick_cost", "pattern_id", d.PatternID, "sum", sum, "tick_cost", d.TickCost)
		}
		if d.TickCost > 8 {
			return nil, kerrors.New(kerrors.InvariantViolated, "pattern tick_cost exceeds Chatman bound", "pattern_id", d.PatternID, "tick_cost", d.TickCost)
		}
		d.HookID = uint64(i) + 1
		entry := d
		c.descriptors[d.PatternID] = &entry
	}
	return c, nil
}

// Lookup returns the descriptor for patternID, or PatternNotFound.
func (c *Catalogue) Lookup(patternID uint8) (*Descriptor, error) {
	if int(patternID) >= MaxPatterns || c.descriptors[patternID] == nil {
		return nil, kerrors.New(kerrors.PatternNotFound, "pattern not found", "pattern_id", patternID)
	}
	return c.descriptors[patternID], nil
}

// ValidateCatalogue re-checks every populated slot's Chatman bound. Intended
// as a startup self-check distinct from NewCatalogue's construction-time
// check, for callers that build a Catalogue via some other path (e.g.
// deserialization) and still want the same abort-on-violation guarantee.
func ValidateCatalogue(c *Catalogue) error {
	for _, d := range c.descriptors {
		if d == nil {
			continue
		}
		var sum uint16
		for p := uint8(0); p < d.PhaseCount; p++ {
			sum += uint16(d.PhaseTicks[p])
		}
		if sum != uint16(d.TickCost) || d.TickCost > 8 {
			return kerrors.New(kerrors.InvariantViolated, "catalogue self-check failed: tick budget violated", "pattern_id", d.PatternID, "tick_cost", d.TickCost)
		}
	}
	return nil
}

// StandardDescriptors returns the worked-example pattern set from §4.3's
// table, each phase's cost assigned evenly (phase granularity below 1 tick
// isn't meaningful on an integer tick clock).
func StandardDescriptors() []Descriptor {
	return []Descriptor{
		{PatternID: Sequence, TickCost: 1, PhaseCount: 1, PhaseTicks: [MaxPhases]uint8{1}, Name: "sequence"},
		{PatternID: ParallelSplit, TickCost: 2, PhaseCount: 2, PhaseTicks: [MaxPhases]uint8{1, 1}, Name: "parallel-split"},
		{PatternID: Synchronisation, TickCost: 3, PhaseCount: 3, PhaseTicks: [MaxPhases]uint8{1, 1, 1}, Name: "synchronisation"},
		{PatternID: ExclusiveChoice, TickCost: 2, PhaseCount: 2, PhaseTicks: [MaxPhases]uint8{1, 1}, Name: "exclusive-choice"},
		{PatternID: SimpleMerge, TickCost: 2, PhaseCount: 2, PhaseTicks: [MaxPhases]uint8{1, 1}, Name: "simple-merge"},
		{PatternID: MultiChoice, TickCost: 3, PhaseCount: 3, PhaseTicks: [MaxPhases]uint8{1, 1, 1}, Name: "multi-choice"},
		{PatternID: StructuredSyncMerge, TickCost: 3, PhaseCount: 3, PhaseTicks: [MaxPhases]uint8{1, 1, 1}, Name: "structured-sync-merge"},
		{PatternID: Discriminator, TickCost: 3, PhaseCount: 3, PhaseTicks: [MaxPhases]uint8{1, 1, 1}, Name: "discriminator"},
	}
}
