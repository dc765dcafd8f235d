package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_BuildRejectsNonPowerOfTwo(t *testing.T) {
	_, err := Build(100, []string{"a"})
	require.Error(t, err)
}

func TestTable_BuildRejectsOverCapacity(t *testing.T) {
	_, err := Build(2, []string{"a", "b", "c"})
	require.Error(t, err)
}

func TestTable_LookupRoundTrips(t *testing.T) {
	predicates := []string{
		"http://example.org/name",
		"http://example.org/age",
		"http://example.org/knows",
		"http://example.org/likes",
	}
	table, err := Build(16, predicates)
	require.NoError(t, err)

	seen := map[uint64]bool{}
	for _, p := range predicates {
		id, ok := table.Lookup(p)
		require.True(t, ok)
		assert.False(t, seen[id], "ids must be unique per predicate")
		seen[id] = true
	}

	_, ok := table.Lookup("http://example.org/unknown")
	assert.False(t, ok)
}

func TestTable_Len(t *testing.T) {
	table, err := Build(16, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
}

func TestHeatmap_RecordAndCount(t *testing.T) {
	h, err := NewHeatmap(64)
	require.NoError(t, err)
	h.RecordIRI("http://example.org/name")
	h.RecordIRI("http://example.org/name")
	assert.Equal(t, uint64(2), h.Count(fnvHash("http://example.org/name")))
}

func TestHeatmap_ParetoDistribution_HotCore(t *testing.T) {
	h, err := NewHeatmap(256)
	require.NoError(t, err)

	// one very hot predicate, many cold ones
	for i := 0; i < 1000; i++ {
		h.RecordIRI("http://example.org/hot")
	}
	for i := 0; i < 50; i++ {
		h.RecordIRI(fmt.Sprintf("http://example.org/cold-%d", i))
	}

	counts, hotPct, coveragePct := h.ParetoDistribution()
	require.NotEmpty(t, counts)
	assert.GreaterOrEqual(t, coveragePct, 0.8)
	assert.Less(t, hotPct, 0.2, "one hot predicate among ~51 should be well under the 20%% threshold")
	assert.True(t, h.MeetsParetoThreshold())
}

func TestHeatmap_ParetoDistribution_UniformTrafficFailsThreshold(t *testing.T) {
	h, err := NewHeatmap(256)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		h.RecordIRI(fmt.Sprintf("http://example.org/p-%d", i))
	}
	assert.False(t, h.MeetsParetoThreshold(), "uniform traffic across 100 predicates cannot meet an 80/20 split")
}

func TestHeatmap_EmptyIsNotPareto(t *testing.T) {
	h, err := NewHeatmap(64)
	require.NoError(t, err)
	assert.False(t, h.MeetsParetoThreshold())
}

func TestInterner_AssignsStableIDs(t *testing.T) {
	in := NewInterner()
	id1 := in.Intern("http://example.org/a")
	id2 := in.Intern("http://example.org/b")
	id1Again := in.Intern("http://example.org/a")

	assert.NotEqual(t, id1, id2)
	assert.Equal(t, id1, id1Again)
	assert.NotZero(t, id1, "id 0 is reserved for unset")
}

func TestInterner_LookupWithoutAssigning(t *testing.T) {
	in := NewInterner()
	_, ok := in.Lookup("http://example.org/unseen")
	assert.False(t, ok)

	id := in.Intern("http://example.org/seen")
	got, ok := in.Lookup("http://example.org/seen")
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestInterner_ConcurrentInternIsConsistent(t *testing.T) {
	in := NewInterner()
	const n = 100
	results := make(chan uint64, n)
	for i := 0; i < n; i++ {
		go func() { results <- in.Intern("http://example.org/shared") }()
	}
	first := <-results
	for i := 1; i < n; i++ {
		assert.Equal(t, first, <-results)
	}
}
