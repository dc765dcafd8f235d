package guard

import (
	"testing"

	"github.com/knhk/mukernel/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatch_Evaluate_MasksPassingLanes(t *testing.T) {
	var b Batch
	b.Set(0, 5, 0, 10)  // pass
	b.Set(1, 15, 0, 10) // fail, above max
	b.Set(2, 0, 1, 10)  // fail, below min
	b.Set(3, 10, 10, 10)
	mask := b.Evaluate()
	assert.Equal(t, uint8(0b1001), mask)
}

func TestBatch_Evaluate_RespectsLen(t *testing.T) {
	var b Batch
	b.Set(0, 5, 0, 10)
	mask := b.Evaluate()
	assert.Equal(t, uint8(0b1), mask, "only lane 0 was populated")
}

func TestBatch_Reset_ClearsAllFields(t *testing.T) {
	var b Batch
	b.Set(0, 5, 0, 10)
	b.Set(7, 1, 0, 2)
	b.Reset()
	assert.Equal(t, 0, b.Len)
	assert.Equal(t, [LaneWidth]uint64{}, b.Values)
}

func TestBatch_Evaluate_IsConstantTimeAcrossPassFailPatterns(t *testing.T) {
	// Not a timing assertion (unit tests can't reliably measure that); this
	// instead pins the property that Evaluate's result depends only on the
	// lane contents, never early-exiting, by checking every lane is
	// independently visited regardless of earlier lanes' outcome.
	var allFail, allPass Batch
	for i := 0; i < LaneWidth; i++ {
		allFail.Set(i, 100, 0, 1)
		allPass.Set(i, 1, 0, 1)
	}
	assert.Equal(t, uint8(0), allFail.Evaluate())
	assert.Equal(t, uint8(0xFF), allPass.Evaluate())
}

func TestPool_AcquireRelease(t *testing.T) {
	p, err := NewPool(2)
	require.NoError(t, err)

	b1, err := p.Acquire()
	require.NoError(t, err)
	b2, err := p.Acquire()
	require.NoError(t, err)

	_, err = p.Acquire()
	require.Error(t, err)

	p.Release(b1)
	b3, err := p.Acquire()
	require.NoError(t, err)
	assert.Same(t, b1, b3)

	p.Release(b2)
	p.Release(b3)
}

func TestPool_AcquireReturnsResetBatch(t *testing.T) {
	p, err := NewPool(1)
	require.NoError(t, err)

	b, err := p.Acquire()
	require.NoError(t, err)
	b.Set(0, 1, 0, 1)
	p.Release(b)

	b2, err := p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, 0, b2.Len)
}

func TestNewPool_RejectsNonPositiveSize(t *testing.T) {
	_, err := NewPool(0)
	require.Error(t, err)
}

func TestConverter_FillsAndFlushesFullBatches(t *testing.T) {
	pool, err := NewPool(4)
	require.NoError(t, err)
	c := NewConverter(pool)

	var full *Batch
	for i := 0; i < LaneWidth; i++ {
		ctx := model.GuardContext{ObsData: uint64(i)}
		b, err := c.Add(ctx, 0, 0, 10)
		require.NoError(t, err)
		if i < LaneWidth-1 {
			assert.Nil(t, b)
		} else {
			full = b
		}
	}
	require.NotNil(t, full)
	assert.Equal(t, LaneWidth, full.Len)
	assert.Equal(t, 0, c.Pending())
}

func TestConverter_FlushReturnsPartialBatch(t *testing.T) {
	pool, err := NewPool(4)
	require.NoError(t, err)
	c := NewConverter(pool)

	ctx := model.GuardContext{Params: [4]uint64{42, 0, 0, 0}}
	b, err := c.Add(ctx, 1, 0, 100)
	require.NoError(t, err)
	assert.Nil(t, b, "batch isn't full yet")

	partial := c.Flush()
	require.NotNil(t, partial)
	assert.Equal(t, 1, partial.Len)
	assert.Equal(t, uint8(1), partial.Evaluate())
	assert.Equal(t, 0, c.Pending())
}

func TestConverter_AddPropagatesPoolExhaustion(t *testing.T) {
	pool, err := NewPool(1)
	require.NoError(t, err)
	// drain the pool first
	_, err = pool.Acquire()
	require.NoError(t, err)

	c := NewConverter(pool)
	_, err = c.Add(model.GuardContext{}, 0, 0, 1)
	require.Error(t, err)
}

func TestFieldValue_SelectsObsDataAndParams(t *testing.T) {
	ctx := model.GuardContext{ObsData: 7, Params: [4]uint64{1, 2, 3, 4}}
	assert.Equal(t, uint64(7), fieldValue(ctx, 0))
	assert.Equal(t, uint64(1), fieldValue(ctx, 1))
	assert.Equal(t, uint64(4), fieldValue(ctx, 4))
}
