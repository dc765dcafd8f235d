package cache

import (
	"sync"
	"sync/atomic"
)

// Interner turns arbitrary IRIs into the stable u64 ids the Triple model
// assumes (SPEC_FULL.md §B.3, supplemented from knhk-etl/src/ingest.rs: the
// distilled spec takes "subject_id/predicate_id/object_id" as given but
// never says who assigns them upstream of the core).
//
// Grounded on catrate.Limiter's sync.Map-of-categories pattern
// (catrate/limiter.go): a concurrent map keyed by the interned value,
// guarding a monotonic counter for first-seen assignment.
type Interner struct {
	ids  sync.Map // string -> uint64
	next atomic.Uint64
}

// NewInterner constructs an empty Interner. Ids are assigned starting at 1;
// 0 is reserved so a zero-value Triple field is recognizable as "unset"
// rather than colliding with a real interned id.
func NewInterner() *Interner {
	i := &Interner{}
	i.next.Store(1)
	return i
}

// Intern returns iri's stable id, assigning a fresh one on first sight.
// Safe for concurrent use by many producer goroutines.
func (in *Interner) Intern(iri string) uint64 {
	if v, ok := in.ids.Load(iri); ok {
		return v.(uint64)
	}
	id := in.next.Add(1) - 1
	actual, loaded := in.ids.LoadOrStore(iri, id)
	if loaded {
		// someone else won the race; the id we minted is simply unused
		return actual.(uint64)
	}
	return id
}

// Lookup returns iri's id without assigning one, reporting whether it has
// been interned before.
func (in *Interner) Lookup(iri string) (uint64, bool) {
	v, ok := in.ids.Load(iri)
	if !ok {
		return 0, false
	}
	return v.(uint64), true
}

// Len returns the number of distinct IRIs interned so far. It is
// approximate under concurrent mutation (no lock is taken across the scan),
// which is acceptable: Len is a diagnostic, never used for correctness.
func (in *Interner) Len() int {
	n := 0
	in.ids.Range(func(_, _ any) bool { n++; return true })
	return n
}
