package tickclock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudget_New_ClampsToChatmanConstant(t *testing.T) {
	for _, limit := range []uint8{0, 9, 255} {
		b := New(limit)
		assert.Equal(t, uint8(Limit), b.Limit(), "limit %d should clamp to %d", limit, Limit)
	}
	assert.Equal(t, uint8(3), New(3).Limit())
}

func TestBudget_Consume_NeverOverflows(t *testing.T) {
	b := New(8)
	var status Status
	for i := 0; i < 8; i++ {
		b, status = b.Consume(1)
		require.Equal(t, Ok, status)
	}
	assert.True(t, b.Exhausted())
	assert.Equal(t, uint8(0), b.Remaining())

	// one more tick must be rejected, not wrap around
	after, status := b.Consume(1)
	assert.Equal(t, Exhausted, status)
	assert.Equal(t, b, after, "rejected consume must leave the budget untouched")
}

func TestBudget_Consume_SaturatingAddition(t *testing.T) {
	b := New(8)
	b, status := b.Consume(100)
	assert.Equal(t, Exhausted, status)
	assert.Equal(t, uint8(0), b.Spent(), "an over-limit single consume must not partially apply")
}

func TestBudget_Remaining_Saturates(t *testing.T) {
	b := New(4)
	b, _ = b.Consume(2)
	assert.Equal(t, uint8(2), b.Remaining())
	b, _ = b.Consume(2)
	assert.Equal(t, uint8(0), b.Remaining())
}

func TestBudget_TableDriven(t *testing.T) {
	cases := []struct {
		name      string
		limit     uint8
		consumes  []uint8
		wantOk    []Status
		wantSpent uint8
	}{
		{"single fit", 8, []uint8{8}, []Status{Ok}, 8},
		{"exact sequence", 8, []uint8{1, 1, 1, 1, 1, 1, 1, 1}, []Status{Ok, Ok, Ok, Ok, Ok, Ok, Ok, Ok}, 8},
		{"overflow mid-sequence", 8, []uint8{4, 4, 1}, []Status{Ok, Ok, Exhausted}, 8},
		{"zero consume always ok", 8, []uint8{0, 0}, []Status{Ok, Ok}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := New(tc.limit)
			for i, n := range tc.consumes {
				var st Status
				b, st = b.Consume(n)
				require.Equal(t, tc.wantOk[i], st, "consume #%d", i)
			}
			assert.Equal(t, tc.wantSpent, b.Spent())
		})
	}
}

func TestCounter_TicksNeverNegative(t *testing.T) {
	c := StartCounter()
	ticks := c.Ticks()
	assert.GreaterOrEqual(t, ticks, uint64(0))
}

func TestCounter_Start_Resettable(t *testing.T) {
	var c Counter
	c.Start()
	first := c.Ticks()
	c.Start()
	second := c.Ticks()
	assert.GreaterOrEqual(t, first, uint64(0))
	assert.GreaterOrEqual(t, second, uint64(0))
}

func TestUsingHardwareCounter_IsStableAcrossCalls(t *testing.T) {
	a := UsingHardwareCounter()
	b := UsingHardwareCounter()
	assert.Equal(t, a, b, "calibration must only run once per process")
}
