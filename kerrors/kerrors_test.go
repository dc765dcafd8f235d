package kerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String_IsStableAndLowercase(t *testing.T) {
	cases := map[Kind]string{
		InvariantViolated:   "invariant_violated",
		PatternNotFound:     "pattern_not_found",
		GuardFailed:         "guard_failed",
		SloExceeded:         "slo_exceeded",
		BudgetExhausted:     "budget_exhausted",
		RingFull:            "ring_full",
		PoolExhausted:       "pool_exhausted",
		SnapshotNotFound:    "snapshot_not_found",
		NoReceipt:           "no_receipt",
		PromotionNotAllowed: "promotion_not_allowed",
		SchemaMismatch:      "schema_mismatch",
		Internal:            "internal",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
	assert.Equal(t, "unknown", Kind(255).String())
}

func TestIsRecoverable_MatchesTaxonomy(t *testing.T) {
	recoverable := []Kind{RingFull, PoolExhausted, SloExceeded, BudgetExhausted, SchemaMismatch}
	for _, k := range recoverable {
		assert.True(t, IsRecoverable(New(k, "x")), "%s should be recoverable", k)
	}
	fatal := []Kind{InvariantViolated, PatternNotFound, GuardFailed, SnapshotNotFound, NoReceipt, PromotionNotAllowed, Internal}
	for _, k := range fatal {
		assert.False(t, IsRecoverable(New(k, "x")), "%s should not be recoverable", k)
	}
	assert.False(t, IsRecoverable(errors.New("plain error")))
}

func TestError_Error_IncludesIdsAndCounts(t *testing.T) {
	err := New(PatternNotFound, "pattern not found", "pattern_id", 17)
	assert.Equal(t, "mukernel: pattern_not_found: pattern not found (pattern_id=17)", err.Error())

	ring := New(RingFull, "ring slot full", "slot", 3, "capacity", 1024)
	assert.Equal(t, "mukernel: ring_full: ring slot full (capacity=1024, slot=3)", ring.Error())
}

func TestError_Error_NoContext(t *testing.T) {
	err := New(Internal, "boom")
	assert.Equal(t, "mukernel: internal: boom", err.Error())
}

func TestWrap_PreservesCauseViaUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(BudgetExhausted, "ticks exhausted", cause)
	require.ErrorIs(t, err, err)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestError_Is_MatchesOnKindNotIdentity(t *testing.T) {
	a := New(RingFull, "full here", "slot", 1)
	b := New(RingFull, "full there", "slot", 2)
	c := New(PoolExhausted, "pool gone")

	assert.True(t, errors.Is(a, b), "two *Error of the same Kind should match via errors.Is")
	assert.False(t, errors.Is(a, c), "different Kind must not match")
}

func TestKindOf_ExtractsOrReportsAbsence(t *testing.T) {
	kind, ok := KindOf(New(SchemaMismatch, "mismatch"))
	assert.True(t, ok)
	assert.Equal(t, SchemaMismatch, kind)

	kind, ok = KindOf(errors.New("not ours"))
	assert.False(t, ok)
	assert.Equal(t, Internal, kind)
}

func TestError_Error_ContextKeyOrderIsDeterministic(t *testing.T) {
	a := New(RingFull, "full", "z", 1, "a", 2, "m", 3)
	b := New(RingFull, "full", "m", 3, "z", 1, "a", 2)
	assert.Equal(t, a.Error(), b.Error())
}
