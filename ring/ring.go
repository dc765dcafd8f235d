// Package ring implements the Δ-ring and Α-ring of §4.2: per-tick,
// structure-of-arrays, fixed-capacity queues connecting producers to the
// dispatcher (Δ) and the dispatcher to consumers (Α).
//
// The masking arithmetic (power-of-two capacity, size_mask = size-1, wrapped
// index bookkeeping) is adapted from catrate's ringBuffer[E] (go-catrate),
// generalized from a single ordered-element ring to a structure-of-arrays
// triple ring with eight independent per-tick-slot cursors, each slot holding
// its own backing arrays, and with PARKED semantics the generic catrate ring
// has no need for.
package ring

import (
	"sync/atomic"

	"github.com/knhk/mukernel/kerrors"
)

// Slots is the fixed number of logical tick-slot streams a ring multiplexes.
const Slots = 8

// entryFlag bits, packed per-entry so a parked entry can be observed by the
// warm-path scanner without disturbing the hot dequeue path's FIFO order.
type entryFlag uint8

const (
	flagValid entryFlag = 1 << iota
	flagParked
)

// slot is one of the eight independent SPSC streams multiplexed within a
// Ring. Its capacity is the ring's total capacity divided by Slots; each slot
// allocates its own arrays, so the eight slots do not share one allocation.
type slot struct {
	s, p, o, cycle []uint64
	flags          []entryFlag
	mask           uint64
	r, w           atomic.Uint64
}

func newSlot(capacity int) slot {
	return slot{
		s:     make([]uint64, capacity),
		p:     make([]uint64, capacity),
		o:     make([]uint64, capacity),
		cycle: make([]uint64, capacity),
		flags: make([]entryFlag, capacity),
		mask:  uint64(capacity - 1),
	}
}

func (s *slot) len() int {
	return int(s.w.Load() - s.r.Load())
}

func (s *slot) cap() int {
	return int(s.mask + 1)
}

// Ring is a fixed-capacity, power-of-two-sized, structure-of-arrays queue
// with eight independent per-tick-slot cursors. Enqueue order within a slot
// is preserved (FIFO); there is no ordering guarantee across slots beyond
// what cycle_id implies (§4.2 "Ordering").
type Ring struct {
	slots        [Slots]slot
	slotCapacity int
}

// New constructs a Ring with the given total capacity, which must be a power
// of two and at least Slots, so each of the eight sub-streams gets an equal,
// still-power-of-two share.
func New(capacity int) (*Ring, error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, kerrors.New(kerrors.Internal, "ring capacity must be a power of two", "capacity", capacity)
	}
	if capacity < Slots {
		return nil, kerrors.New(kerrors.Internal, "ring capacity must be at least the slot count", "capacity", capacity, "slots", Slots)
	}
	slotCap := capacity / Slots
	if slotCap&(slotCap-1) != 0 {
		return nil, kerrors.New(kerrors.Internal, "ring capacity must divide evenly into power-of-two slot shares", "capacity", capacity, "slots", Slots)
	}
	r := &Ring{slotCapacity: slotCap}
	for i := range r.slots {
		r.slots[i] = newSlot(slotCap)
	}
	return r, nil
}

// Capacity returns the per-slot capacity (not the aggregate across all 8 slots).
func (r *Ring) Capacity() int { return r.slotCapacity }

func (r *Ring) checkTick(tick int) error {
	if tick < 0 || tick >= Slots {
		return kerrors.New(kerrors.Internal, "tick slot out of range", "tick", tick, "slots", Slots)
	}
	return nil
}

// Enqueue writes count (≤ 8) triples into the given tick slot as one atomic
// batch: either all of them fit, or none are written and Full is reported.
// No blocking occurs on this path (§4.2 "no blocking on R1").
func (r *Ring) Enqueue(tick int, s, p, o []uint64, count int, cycleID uint64) error {
	if err := r.checkTick(tick); err != nil {
		return err
	}
	if count < 0 || count > 8 {
		return kerrors.New(kerrors.InvariantViolated, "delta run-length exceeds bound", "n", count)
	}
	sl := &r.slots[tick]
	w := sl.w.Load()
	rd := sl.r.Load()
	if int(w-rd)+count > sl.cap() {
		return kerrors.New(kerrors.RingFull, "ring slot full", "slot", tick, "capacity", sl.cap())
	}
	for i := 0; i < count; i++ {
		idx := (w + uint64(i)) & sl.mask
		sl.s[idx] = s[i]
		sl.p[idx] = p[i]
		sl.o[idx] = o[i]
		sl.cycle[idx] = cycleID
		sl.flags[idx] = flagValid
	}
	sl.w.Store(w + uint64(count))
	return nil
}

// Batch is the drained result of a Dequeue call.
type Batch struct {
	S, P, O   []uint64
	CycleIDs  []uint64
	Count     int
}

// Dequeue drains up to cap valid entries from the front of the given tick
// slot, advancing the read cursor past everything it returns. It stops at the
// first parked entry: that entry and every entry behind it stay queued (the
// parked one visible to ParkedScan until explicitly unparked), so the read
// cursor only advances contiguously from the front. An empty result is not
// an error.
func (r *Ring) Dequeue(tick int, capLimit int) (Batch, error) {
	if err := r.checkTick(tick); err != nil {
		return Batch{}, err
	}
	sl := &r.slots[tick]
	rd := sl.r.Load()
	w := sl.w.Load()
	avail := int(w - rd)
	if avail > capLimit {
		avail = capLimit
	}
	out := Batch{
		S:        make([]uint64, 0, avail),
		P:        make([]uint64, 0, avail),
		O:        make([]uint64, 0, avail),
		CycleIDs: make([]uint64, 0, avail),
	}
	advanced := uint64(0)
	for i := 0; i < avail; i++ {
		idx := (rd + uint64(i)) & sl.mask
		if sl.flags[idx]&flagParked != 0 {
			// stop at the first parked entry: keep slot FIFO contiguous so a
			// later unpark can't reorder what's already been dequeued.
			break
		}
		out.S = append(out.S, sl.s[idx])
		out.P = append(out.P, sl.p[idx])
		out.O = append(out.O, sl.o[idx])
		out.CycleIDs = append(out.CycleIDs, sl.cycle[idx])
		sl.flags[idx] = 0
		advanced++
	}
	out.Count = len(out.S)
	if advanced > 0 {
		sl.r.Store(rd + advanced)
	}
	return out, nil
}

// Park marks the entry at the given absolute offset from the current read
// cursor (0 = the next entry due for dequeue) so the hot dequeue path does
// not return it (Dequeue stops in front of it) while the warm-path scanner
// (see ParkedScan) can still observe it.
func (r *Ring) Park(tick int, idx int) error {
	if err := r.checkTick(tick); err != nil {
		return err
	}
	sl := &r.slots[tick]
	rd := sl.r.Load()
	w := sl.w.Load()
	if idx < 0 || uint64(idx) >= w-rd {
		return kerrors.New(kerrors.Internal, "park index out of range", "tick", tick, "index", idx)
	}
	abs := (rd + uint64(idx)) & sl.mask
	sl.flags[abs] |= flagParked
	return nil
}

// Unpark clears the parked flag on the entry at the given offset from the
// current read cursor (the same coordinate space Park takes), making it
// eligible for the next Dequeue call to drain again.
func (r *Ring) Unpark(tick int, idx int) error {
	if err := r.checkTick(tick); err != nil {
		return err
	}
	sl := &r.slots[tick]
	rd := sl.r.Load()
	w := sl.w.Load()
	if idx < 0 || uint64(idx) >= w-rd {
		return kerrors.New(kerrors.Internal, "unpark index out of range", "tick", tick, "index", idx)
	}
	abs := (rd + uint64(idx)) & sl.mask
	sl.flags[abs] &^= flagParked
	return nil
}

// ParkedEntry is one entry ParkedScan finds still marked parked, together
// with the offset Unpark needs to clear it.
type ParkedEntry struct {
	Offset           int
	S, P, O, CycleID uint64
}

// ParkedScan returns every currently-parked entry in the given tick slot, in
// FIFO offset order, without draining or unparking anything. This is the
// warm-path scanner's read of the ring: offsets are recomputed fresh against
// the read cursor on every call rather than cached, so a scan taken after an
// intervening Dequeue/Park/Unpark is never stale.
func (r *Ring) ParkedScan(tick int) ([]ParkedEntry, error) {
	if err := r.checkTick(tick); err != nil {
		return nil, err
	}
	sl := &r.slots[tick]
	rd := sl.r.Load()
	w := sl.w.Load()
	avail := int(w - rd)
	var out []ParkedEntry
	for i := 0; i < avail; i++ {
		idx := (rd + uint64(i)) & sl.mask
		if sl.flags[idx]&flagParked == 0 {
			continue
		}
		out = append(out, ParkedEntry{Offset: i, S: sl.s[idx], P: sl.p[idx], O: sl.o[idx], CycleID: sl.cycle[idx]})
	}
	return out, nil
}

// IsEmpty reports whether the given tick slot currently has zero entries.
func (r *Ring) IsEmpty(tick int) bool {
	if err := r.checkTick(tick); err != nil {
		return true
	}
	sl := &r.slots[tick]
	return sl.len() == 0
}

// Len returns the current entry count (valid + parked) in the given tick slot.
func (r *Ring) Len(tick int) int {
	if err := r.checkTick(tick); err != nil {
		return 0
	}
	return r.slots[tick].len()
}
