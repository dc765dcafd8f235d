package mukernel

import (
	"context"
	"testing"
	"time"

	"github.com/knhk/mukernel/admission"
	"github.com/knhk/mukernel/config"
	"github.com/knhk/mukernel/model"
	"github.com/knhk/mukernel/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKernel(t *testing.T, ringSize int) (*Kernel, *pattern.Catalogue) {
	t.Helper()
	cat, err := pattern.NewCatalogue(pattern.StandardDescriptors())
	require.NoError(t, err)
	d := pattern.NewDispatcher(cat)
	require.NoError(t, d.Register(pattern.Sequence, []pattern.PhaseHandler{
		func(delta model.DeltaBatch, guardMask uint8) ([]pattern.PhaseOutput, error) {
			out := make([]pattern.PhaseOutput, delta.N())
			for i := range out {
				out[i] = pattern.PhaseOutput{
					PhaseIndex: 0,
					TaskID:     uint64(i),
					Assertion:  model.Assertion{Triple: model.Triple{Subject: delta.S[i], Predicate: delta.P[i], Object: delta.O[i]}, CycleID: delta.CycleID},
				}
			}
			return out, nil
		},
	}))

	cfg := config.Default()
	cfg.RingSize = ringSize
	k, err := New(Deps{Config: cfg, Catalogue: cat, Dispatcher: d})
	require.NoError(t, err)
	return k, cat
}

// TestKernel_AdmitExecutesAndEmitsToAssertionRing implements scenario S1
// end to end: a sequence delta is admitted, dispatched, and its single
// assertion shows up on the Α-ring's matching tick slot.
func TestKernel_AdmitExecutesAndEmitsToAssertionRing(t *testing.T) {
	k, _ := newTestKernel(t, 16)
	delta := model.DeltaBatch{S: []uint64{1}, P: []uint64{2}, O: []uint64{3}, CycleID: 5, PatternID: pattern.Sequence}

	decision, err := k.Admit(delta, pattern.Sequence, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, admission.R1, decision.Class)

	out, err := k.Egress(0, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, uint64(1), out[0].S)
	assert.Equal(t, uint64(2), out[0].P)
	assert.Equal(t, uint64(3), out[0].O)
	assert.True(t, out[0].Receipt.Status.AllowsPromotion())
}

func TestKernel_AdmitRejectsInvalidDelta(t *testing.T) {
	k, _ := newTestKernel(t, 16)
	_, err := k.Admit(model.DeltaBatch{}, pattern.Sequence, 0, 1)
	require.Error(t, err)
}

func TestKernel_AdmitRejectsUnknownPattern(t *testing.T) {
	k, _ := newTestKernel(t, 16)
	delta := model.DeltaBatch{S: []uint64{1}, P: []uint64{1}, O: []uint64{1}, CycleID: 1, PatternID: 99}
	_, err := k.Admit(delta, 99, 0, 1)
	require.Error(t, err)
}

type alwaysCold struct{}

func (alwaysCold) MeetsParetoThreshold() bool { return false }

// TestKernel_ParkedQueueFull verifies that once admission routes a delta
// below R1 and the parked queue has no free slot, Admit reports RingFull
// rather than silently dropping the delta.
func TestKernel_ParkedQueueFull(t *testing.T) {
	k, cat := newTestKernel(t, 16)
	k.parked = make(chan admission.ParkedDelta, 1)
	k.admission = admission.NewController(cat, alwaysCold{}, nil, config.Normal)

	delta := model.DeltaBatch{S: []uint64{1}, P: []uint64{1}, O: []uint64{1}, CycleID: 1, PatternID: pattern.Sequence}

	// First delta fills the one parked slot (cache miss routes it to W1).
	decision, err := k.Admit(delta, pattern.Sequence, 0, 1)
	require.NoError(t, err)
	require.Equal(t, admission.W1, decision.Class)

	_, err = k.Admit(delta, pattern.Sequence, 0, 2)
	require.Error(t, err)
}

// TestKernel_ScenarioS5_DeltaRingFullDowngradesToW1 implements scenario S5
// literally (§8): with tick 0's Δ-ring slot already at capacity, a 5th
// R1-bound delta is downgraded to W1 instead of erroring, the hot ring
// keeps its original four entries untouched, and the downgraded delta
// lands in the parked (warm) lane.
func TestKernel_ScenarioS5_DeltaRingFullDowngradesToW1(t *testing.T) {
	k, cat := newTestKernel(t, 32) // per-tick-slot capacity: 32/8 = 4
	k.admission = admission.NewController(cat, nil, nil, config.Normal)

	for i := 0; i < 4; i++ {
		require.NoError(t, k.deltaRing.Enqueue(0, []uint64{uint64(i)}, []uint64{1}, []uint64{1}, 1, uint64(i)))
	}
	require.Equal(t, 4, k.deltaRing.Len(0))

	delta := model.DeltaBatch{S: []uint64{9}, P: []uint64{1}, O: []uint64{1}, CycleID: 99, PatternID: pattern.Sequence}
	decision, err := k.Admit(delta, pattern.Sequence, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, admission.W1, decision.Class)

	assert.Equal(t, 4, k.deltaRing.Len(0), "the hot ring's original four entries must be untouched")
	assert.Equal(t, 1, k.ParkedDepth())
}

func TestKernel_EgressEmptyTickIsNotAnError(t *testing.T) {
	k, _ := newTestKernel(t, 16)
	out, err := k.Egress(3, 10)
	require.NoError(t, err)
	assert.Empty(t, out)
}

// TestKernel_RunWarmPathDrainsParkedWork verifies a delta parked under W1
// still reaches the Α-ring once RunWarmPath is given a chance to drain it,
// exercising the warm-path worker pool rather than the inline R1 branch.
func TestKernel_RunWarmPathDrainsParkedWork(t *testing.T) {
	k, cat := newTestKernel(t, 16)
	k.admission = admission.NewController(cat, alwaysCold{}, nil, config.Normal)

	delta := model.DeltaBatch{S: []uint64{9}, P: []uint64{8}, O: []uint64{7}, CycleID: 2, PatternID: pattern.Sequence}
	decision, err := k.Admit(delta, pattern.Sequence, 1, 1)
	require.NoError(t, err)
	require.Equal(t, admission.W1, decision.Class)
	require.Equal(t, 1, k.ParkedDepth())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = k.RunWarmPath(ctx, 2)

	out, err := k.Egress(1, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, uint64(9), out[0].S)
}
