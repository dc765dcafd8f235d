// Package tickclock implements the Chatman Constant enforcement primitive
// (§4.1): a saturating tick budget and a calibrated, hardware-relative tick
// counter. Every operation here is total — none panics, none overflows.
package tickclock

// Limit is the hard Chatman Constant: the per-operation hot-path tick bound.
// No Budget may be constructed with a limit above this.
const Limit = 8

// Status is the result of consuming ticks against a Budget.
type Status uint8

const (
	// Ok indicates the consumption fit within the remaining budget.
	Ok Status = iota
	// Exhausted indicates the consumption would have exceeded the budget; no
	// ticks were added (the budget is left at its prior, saturated value).
	Exhausted
)

// Budget is a saturating tick accumulator bounded by a fixed limit (≤ 8).
// It is a plain value type, so callers may embed it by value on a hot-path
// struct without an allocation. The zero value has a limit of 0 and returns
// Exhausted for any non-zero Consume; New applies the default 8-tick limit.
type Budget struct {
	limit uint8
	spent uint8
}

// New returns a zero-initialized Budget with the given limit, clamped to the
// Chatman Constant. A limit of 0 is treated as "use the Chatman Constant".
func New(limit uint8) Budget {
	if limit == 0 || limit > Limit {
		limit = Limit
	}
	return Budget{limit: limit}
}

// Limit returns the budget's configured limit.
func (b Budget) Limit() uint8 { return b.limit }

// Spent returns the ticks consumed so far.
func (b Budget) Spent() uint8 { return b.spent }

// Remaining returns the saturating difference between limit and spent; never
// negative (returns 0 once exhausted).
func (b Budget) Remaining() uint8 {
	if b.spent >= b.limit {
		return 0
	}
	return b.limit - b.spent
}

// Consume attempts to add n ticks to the budget. It never overflows: if
// spent+n would exceed the limit, the budget is left untouched and Exhausted
// is returned; otherwise the addition is applied and Ok is returned.
func (b Budget) Consume(n uint8) (Budget, Status) {
	// widen to avoid uint8 overflow wraparound before the comparison
	sum := uint16(b.spent) + uint16(n)
	if sum > uint16(b.limit) {
		return b, Exhausted
	}
	b.spent = uint8(sum)
	return b, Ok
}

// Exhausted reports whether the budget has no remaining capacity.
func (b Budget) Exhausted() bool {
	return b.spent >= b.limit
}
