package receipt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(cycle uint64, errs ...string) Receipt {
	return Receipt{
		CycleID:     cycle,
		ShardID:     uint32(cycle),
		HookID:      cycle,
		ActualTicks: uint8(cycle % 8),
		Lanes:       uint8(cycle),
		SpanID:      cycle,
		AHash:       cycle * 31,
		Status:      IdentityFlags(),
		Errors:      errs,
		DurationMS:  cycle * 10,
	}
}

func TestMerge_Commutative(t *testing.T) {
	r1 := sample(1, "err-a", "err-b")
	r2 := sample(2, "err-c")

	m1 := Merge(r1, r2)
	m2 := Merge(r2, r1)
	assert.Equal(t, m1.SnapshotID, m2.SnapshotID)
}

func TestMerge_Associative(t *testing.T) {
	r1 := sample(1, "err-a")
	r2 := sample(2, "err-b")
	r3 := sample(3, "err-c")

	left := Merge(Merge(r1, r2), r3)
	right := Merge(r1, Merge(r2, r3))
	assert.Equal(t, left.SnapshotID, right.SnapshotID)
}

func TestMerge_Identity(t *testing.T) {
	r := sample(5, "err-x")
	eps := Identity()

	leftEps := Merge(r, eps)
	rightEps := Merge(eps, r)
	assert.Equal(t, leftEps.SnapshotID, rightEps.SnapshotID, "ε is a two-sided identity")
	assert.Equal(t, r.Errors, leftEps.Errors)
	assert.Equal(t, r.DurationMS, leftEps.DurationMS)
	assert.Equal(t, r.Status, leftEps.Status)
}

func TestMerge_StatusIsLogicalAnd(t *testing.T) {
	r1 := sample(1)
	r1.Status = StatusFlags{true, true, false, true, true}
	r2 := sample(2)
	r2.Status = IdentityFlags()

	merged := Merge(r1, r2)
	assert.False(t, merged.Status.GuardPreservation)
	assert.False(t, merged.Status.AllowsPromotion())
}

func TestMerge_DurationIsElementwiseMax(t *testing.T) {
	r1 := sample(1)
	r1.DurationMS = 50
	r2 := sample(2)
	r2.DurationMS = 200

	merged := Merge(r1, r2)
	assert.Equal(t, uint64(200), merged.DurationMS)
}

func TestMerge_ErrorsConcatenateAsMultiset(t *testing.T) {
	r1 := sample(1, "a", "b")
	r2 := sample(2, "c")
	merged := Merge(r1, r2)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, merged.Errors)
}

func TestStatusFlags_AllowsPromotion(t *testing.T) {
	require.True(t, IdentityFlags().AllowsPromotion())
	f := IdentityFlags()
	f.Determinism = false
	require.False(t, f.AllowsPromotion())
}

func TestCanonicalJoin_OrderIndependent(t *testing.T) {
	a := canonicalJoin([]string{"x", "y", "z"})
	b := canonicalJoin([]string{"z", "y", "x"})
	assert.Equal(t, a, b)
}
