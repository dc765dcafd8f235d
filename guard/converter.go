package guard

import "github.com/knhk/mukernel/model"

// fieldValue extracts the guarded field from a GuardContext. Index 0 selects
// ObsData; indices 1-4 select Params[0:4] (§3's GuardContext layout).
func fieldValue(ctx model.GuardContext, fieldIndex int) uint64 {
	if fieldIndex == 0 {
		return ctx.ObsData
	}
	return ctx.Params[fieldIndex-1]
}

// Converter is the AoS→SoA converter §4.4 requires: it accepts a stream of
// (GuardContext, field, min, max) guard instances — naturally produced one at
// a time as the dispatcher walks a pattern's guard list — and packs them
// LaneWidth at a time into pooled Batches, handing each completed Batch to a
// sink as soon as it fills.
//
// Grounded on ring.Ring's own fixed-size accumulate-then-flush discipline
// (§4.2): both structures buffer up to a small constant count before handing
// a full unit downstream, rather than flushing per-item.
type Converter struct {
	pool    *Pool
	current *Batch
}

// NewConverter constructs a Converter drawing its working batches from pool.
func NewConverter(pool *Pool) *Converter {
	return &Converter{pool: pool}
}

// Add appends one guard instance to the in-progress batch. When the batch
// reaches LaneWidth entries, it is returned as complete (first return value
// non-nil) and the Converter starts a fresh one. The caller is responsible
// for eventually releasing any Batch returned back to the pool once
// evaluated.
func (c *Converter) Add(ctx model.GuardContext, fieldIndex int, min, max uint64) (*Batch, error) {
	if c.current == nil {
		b, err := c.pool.Acquire()
		if err != nil {
			return nil, err
		}
		c.current = b
	}
	value := fieldValue(ctx, fieldIndex)
	c.current.Set(c.current.Len, value, min, max)
	if c.current.Len == LaneWidth {
		full := c.current
		c.current = nil
		return full, nil
	}
	return nil, nil
}

// Flush returns the in-progress partial batch (if any) and resets the
// Converter so it can start a new run. Unlike a batch returned from Add, a
// flushed batch may have Len < LaneWidth; Evaluate already masks off the
// unused lanes so this is safe to evaluate directly.
func (c *Converter) Flush() *Batch {
	b := c.current
	c.current = nil
	return b
}

// Pending reports how many lanes are buffered in the in-progress batch.
func (c *Converter) Pending() int {
	if c.current == nil {
		return 0
	}
	return c.current.Len
}
