package snapshot

import (
	"sync"
	"sync/atomic"

	"github.com/knhk/mukernel/kerrors"
)

// PromotionEvent records one promotion for the non-hot-path log §4.6 asks
// for ("promotion_history() -> vec<Event>").
type PromotionEvent struct {
	SnapshotID [32]byte
	Sequence   uint64
}

// Store is the append-only snapshot pool plus its atomically-swappable
// current index. The authoritative list and id map are guarded by a
// sync.RWMutex — all mutation is off the hot read path — while Current is
// served from a bare atomic.Pointer so no lock is ever taken to read it
// (§4.6: "No locks are used on the read path"), the same split eventloop's
// FastState uses between its mutex-guarded bookkeeping and its lock-free
// atomic read.
type Store struct {
	mu         sync.RWMutex
	byID       map[[32]byte]*Snapshot
	order      []*Snapshot
	current    atomic.Pointer[Snapshot]
	promotions []PromotionEvent
	seq        uint64
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{byID: make(map[[32]byte]*Snapshot)}
}

// Add appends snap to the authoritative list and id map, returning its id.
func (s *Store) Add(snap Snapshot) ([32]byte, error) {
	if snap.ParentID != nil {
		s.mu.RLock()
		_, ok := s.byID[*snap.ParentID]
		s.mu.RUnlock()
		if !ok {
			return [32]byte{}, kerrors.New(kerrors.InvariantViolated, "snapshot parent unknown to store", "parent_id", *snap.ParentID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[snap.ID]; exists {
		return snap.ID, nil
	}
	stored := snap
	s.byID[snap.ID] = &stored
	s.order = append(s.order, &stored)
	return snap.ID, nil
}

// Promote swaps the atomic current index to id's snapshot, provided the
// §4.6 preconditions hold, then appends a non-hot-path promotion event.
func (s *Store) Promote(id [32]byte) error {
	s.mu.RLock()
	snap, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return kerrors.New(kerrors.SnapshotNotFound, "snapshot not found", "snapshot_id", id)
	}
	if snap.ValidationReceipt == nil {
		return kerrors.New(kerrors.NoReceipt, "snapshot has no validation receipt", "snapshot_id", id)
	}
	if !snap.AllowsPromotion() {
		return kerrors.New(kerrors.PromotionNotAllowed, "snapshot does not satisfy promotion preconditions", "snapshot_id", id)
	}

	s.current.Store(snap)

	s.mu.Lock()
	s.seq++
	s.promotions = append(s.promotions, PromotionEvent{SnapshotID: id, Sequence: s.seq})
	s.mu.Unlock()
	return nil
}

// Current returns the currently-promoted snapshot, if any. Lock-free.
func (s *Store) Current() (Snapshot, bool) {
	p := s.current.Load()
	if p == nil {
		return Snapshot{}, false
	}
	return *p, true
}

// Lineage walks ParentID backwards from id, returning the ordered chain
// (id first) terminating at a root with no parent. Cycle detection is not
// implemented: the store's Add contract forbids registering a snapshot
// whose parent is unknown to it, which rules out cycles by construction
// (§4.6).
func (s *Store) Lineage(id [32]byte) ([][32]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chain [][32]byte
	cur, ok := s.byID[id]
	if !ok {
		return nil, kerrors.New(kerrors.SnapshotNotFound, "snapshot not found", "snapshot_id", id)
	}
	for {
		chain = append(chain, cur.ID)
		if cur.ParentID == nil {
			break
		}
		parent, ok := s.byID[*cur.ParentID]
		if !ok {
			break
		}
		cur = parent
	}
	return chain, nil
}

// PromotionHistory returns a copy of every promotion event recorded so far,
// in order.
func (s *Store) PromotionHistory() []PromotionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PromotionEvent, len(s.promotions))
	copy(out, s.promotions)
	return out
}

// Get returns the stored snapshot for id, if present.
func (s *Store) Get(id [32]byte) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.byID[id]
	if !ok {
		return Snapshot{}, false
	}
	return *snap, true
}
