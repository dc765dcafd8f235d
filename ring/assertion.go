package ring

import "github.com/knhk/mukernel/kerrors"

// AssertionRing wraps a Ring with a parallel per-slot array of receipts of
// type R, modeling the Α-ring's "four u64 arrays plus a parallel Receipt
// array" layout (§4.2). R is generic so this package need not import
// package receipt.
type AssertionRing[R any] struct {
	base     *Ring
	receipts [Slots][]R
}

// NewAssertionRing constructs an AssertionRing with the given total capacity.
func NewAssertionRing[R any](capacity int) (*AssertionRing[R], error) {
	base, err := New(capacity)
	if err != nil {
		return nil, err
	}
	a := &AssertionRing[R]{base: base}
	for i := range a.receipts {
		a.receipts[i] = make([]R, base.slotCapacity)
	}
	return a, nil
}

// Capacity returns the per-slot capacity.
func (a *AssertionRing[R]) Capacity() int { return a.base.Capacity() }

// Enqueue writes a single assertion triple plus its receipt into the given
// tick slot. Unlike the Δ-ring's batched Enqueue, this writes one entry at a
// time; the kernel calls it once per assertion of a pattern execution,
// pairing each with that execution's receipt.
func (a *AssertionRing[R]) Enqueue(tick int, s, p, o uint64, cycleID uint64, receipt R) error {
	if err := a.base.checkTick(tick); err != nil {
		return err
	}
	sl := &a.base.slots[tick]
	w := sl.w.Load()
	rd := sl.r.Load()
	if int(w-rd)+1 > sl.cap() {
		return kerrors.New(kerrors.RingFull, "assertion ring slot full", "slot", tick, "capacity", sl.cap())
	}
	idx := w & sl.mask
	sl.s[idx] = s
	sl.p[idx] = p
	sl.o[idx] = o
	sl.cycle[idx] = cycleID
	sl.flags[idx] = flagValid
	a.receipts[tick][idx] = receipt
	sl.w.Store(w + 1)
	return nil
}

// Assertion is one dequeued (triple, receipt) pair.
type Assertion[R any] struct {
	S, P, O  uint64
	CycleID  uint64
	Receipt  R
}

// Dequeue drains up to capLimit (triple, receipt) pairs from the given tick
// slot, preserving FIFO order within the slot.
func (a *AssertionRing[R]) Dequeue(tick int, capLimit int) ([]Assertion[R], error) {
	if err := a.base.checkTick(tick); err != nil {
		return nil, err
	}
	sl := &a.base.slots[tick]
	rd := sl.r.Load()
	w := sl.w.Load()
	avail := int(w - rd)
	if avail > capLimit {
		avail = capLimit
	}
	out := make([]Assertion[R], 0, avail)
	for i := 0; i < avail; i++ {
		idx := (rd + uint64(i)) & sl.mask
		if sl.flags[idx]&flagParked != 0 {
			break
		}
		out = append(out, Assertion[R]{
			S:       sl.s[idx],
			P:       sl.p[idx],
			O:       sl.o[idx],
			CycleID: sl.cycle[idx],
			Receipt: a.receipts[tick][idx],
		})
		sl.flags[idx] = 0
	}
	if len(out) > 0 {
		sl.r.Store(rd + uint64(len(out)))
	}
	return out, nil
}

// IsEmpty reports whether the given tick slot currently has zero entries.
func (a *AssertionRing[R]) IsEmpty(tick int) bool { return a.base.IsEmpty(tick) }

// Len returns the current entry count in the given tick slot.
func (a *AssertionRing[R]) Len(tick int) int { return a.base.Len(tick) }
