package cache

import (
	"sort"
	"sync/atomic"

	"github.com/knhk/mukernel/kerrors"
)

// Heatmap is a fixed-size array of per-predicate atomic counters, keyed by
// FNV-1a(IRI) mod capacity (§4.8). Unlike Table, a Heatmap is not collision
// free — multiple predicates may alias the same counter, which is an
// accepted tradeoff for a prefetch-hint structure: a false positive just
// means we prefetch a slightly hotter-looking predicate than is really
// justified, never an incorrect answer on the data path.
type Heatmap struct {
	capacity int
	mask     uint64
	counts   []atomic.Uint64
}

// NewHeatmap constructs a Heatmap over the given power-of-two capacity.
func NewHeatmap(capacity int) (*Heatmap, error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, kerrors.New(kerrors.Internal, "heatmap capacity must be a power of two", "capacity", capacity)
	}
	return &Heatmap{capacity: capacity, mask: uint64(capacity - 1), counts: make([]atomic.Uint64, capacity)}, nil
}

// slotFor returns the counter index a predicate hashes to.
func (h *Heatmap) slotFor(predicateHash uint64) uint64 {
	return predicateHash & h.mask
}

// Record increments the counter for predicateHash. Relaxed ordering
// suffices (§4.8): there is no cross-counter invariant to preserve, so a
// plain atomic add is all correctness requires.
func (h *Heatmap) Record(predicateHash uint64) {
	h.counts[h.slotFor(predicateHash)].Add(1)
}

// RecordIRI is a convenience wrapper that hashes the IRI before recording.
func (h *Heatmap) RecordIRI(predicate string) {
	h.Record(fnvHash(predicate))
}

// Count returns the current counter value for predicateHash's slot.
func (h *Heatmap) Count(predicateHash uint64) uint64 {
	return h.counts[h.slotFor(predicateHash)].Load()
}

// Snapshot returns a copy of every non-zero counter, descending by count.
func (h *Heatmap) Snapshot() []uint64 {
	out := make([]uint64, 0, h.capacity)
	for i := range h.counts {
		if v := h.counts[i].Load(); v > 0 {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

// ParetoDistribution computes the sorted descending counts, the fraction of
// predicates in the "hot core" (the smallest prefix covering ≥80% of
// traffic), and that prefix's own share of total traffic (§4.8).
//
// Grounded on knhk-connectors/src/coverage.rs's "smallest set accounting for
// ≥80% of traffic" computation, supplemented because spec.md names the
// operation but not its exact algorithm.
func (h *Heatmap) ParetoDistribution() (sortedCounts []uint64, hotPercentage, coveragePercentage float64) {
	counts := h.Snapshot()
	if len(counts) == 0 {
		return counts, 0, 0
	}
	var total uint64
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return counts, 0, 0
	}
	var running uint64
	hotCount := 0
	target := 0.8 * float64(total)
	for _, c := range counts {
		running += c
		hotCount++
		if float64(running) >= target {
			break
		}
	}
	hotPercentage = float64(hotCount) / float64(len(counts))
	coveragePercentage = float64(running) / float64(total)
	return counts, hotPercentage, coveragePercentage
}

// MeetsParetoThreshold reports whether ≤20% of predicates account for ≥80%
// of traffic (§4.8).
func (h *Heatmap) MeetsParetoThreshold() bool {
	_, hotPct, coveragePct := h.ParetoDistribution()
	return hotPct <= 0.2 && coveragePct >= 0.8
}
