// Package epoch implements the three-generation epoch-based reclamation
// scheme of §4.10. No other package in this module imports it: the snapshot
// store, the rings and the guard pool free nothing mid-process.
//
// The lock-free CAS discipline is grounded on eventloop's FastState
// (state.go): a cache-line-padded atomic word advanced only via
// CompareAndSwap, never Store, for any transition that must not race. The
// append-only, never-removed participant list mirrors the same file's
// comment that "entries never removed" is an acceptable simplification for
// process-lifetime-scoped structures (eventloop's abort handler list
// likewise only ever grows under a mutex; here the list is lock-free since
// participants attach concurrently from many goroutines on the hot path).
package epoch

import (
	"sync"
	"sync/atomic"
)

// MaxDeferred is the per-participant deferred-destruction queue threshold
// that triggers an epoch-advance attempt (§4.10, taken from
// knhk-mu-kernel/src/concurrent/epoch.rs which pins this at 256).
const MaxDeferred = 256

// generations is the fixed epoch-generation count (current, previous, grace).
const generations = 3

// Global is the shared epoch-reclamation domain. A process typically has one
// Global; tests may construct several to isolate state.
type Global struct {
	epoch atomic.Uint64
	head  atomic.Pointer[Participant]
}

// NewGlobal constructs a fresh reclamation domain at epoch 0.
func NewGlobal() *Global {
	return &Global{}
}

// Epoch returns the current global epoch.
func (g *Global) Epoch() uint64 { return g.epoch.Load() }

// Participant is one thread's (goroutine's) registration in the global,
// lock-free, intrusive participant list. Callers should construct one
// Participant per long-lived worker goroutine and reuse it across many
// Pin/Unpin cycles, exactly as eventloop reuses one FastState per Loop
// rather than allocating per-transition.
type Participant struct {
	global *Global
	next   *Participant

	mu         sync.Mutex
	pinCount   int
	localEpoch uint64
	deferred   [generations][]func()
}

// NewParticipant registers a new Participant into g's global list. The list
// is append-only and lock-free: registration CASes the new node onto the
// head, and entries are never unlinked (they stay valid until process exit,
// same as eventloop's thread-locals).
func NewParticipant(g *Global) *Participant {
	p := &Participant{global: g}
	for {
		oldHead := g.head.Load()
		p.next = oldHead
		if g.head.CompareAndSwap(oldHead, p) {
			return p
		}
	}
}

// Guard pins its Participant into the current global epoch for its lifetime.
// No operation on R1 may hold a Guard across a blocking call; Guards are
// meant to be acquired, used, and released within one bounded operation.
type Guard struct {
	p *Participant
}

// Pin increments the participant's local pin count; on the first pin (0→1)
// it records the current global epoch as the participant's local epoch, per
// §4.10: "on first pin, records global epoch."
func (p *Participant) Pin() *Guard {
	p.mu.Lock()
	if p.pinCount == 0 {
		p.localEpoch = p.global.epoch.Load()
	}
	p.pinCount++
	p.mu.Unlock()
	return &Guard{p: p}
}

// Defer appends fn to the participant's deferred-destruction queue for the
// current generation slot. fn is run only once try_collect determines the
// global epoch has advanced far enough past the generation fn was deferred
// in (§4.10 correctness: freed no earlier than epoch e+2).
func (g *Guard) Defer(fn func()) {
	p := g.p
	p.mu.Lock()
	slot := p.localEpoch % generations
	p.deferred[slot] = append(p.deferred[slot], fn)
	overflow := len(p.deferred[slot]) >= MaxDeferred
	p.mu.Unlock()
	if overflow {
		p.tryAdvanceEpoch()
	}
}

// DeferDestroy is a convenience wrapper equivalent to Defer(func(){ clear(ptr) }),
// for callers who just want a typed pointer's last live reference dropped
// once collection proves safe (Go's GC does the actual free; this package's
// job is only to delay *visibility* of the drop until no pinned participant
// could still observe the old value through a racing read).
func DeferDestroy[T any](g *Guard, ptr *T, clear func(*T)) {
	g.Defer(func() { clear(ptr) })
}

// Unpin decrements the pin count; once it reaches zero, the participant
// attempts to collect any generation now two epochs behind the global one.
func (g *Guard) Unpin() {
	p := g.p
	p.mu.Lock()
	p.pinCount--
	done := p.pinCount == 0
	p.mu.Unlock()
	if done {
		p.tryCollect()
	}
}

// tryCollect drains the deferred queue belonging to generation e once the
// global epoch has reached at least e+2, the standard 3-epoch grace-period
// argument (§4.10 correctness).
func (p *Participant) tryCollect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	global := p.global.epoch.Load()
	for gen := uint64(0); gen < generations; gen++ {
		slot := gen % generations
		if len(p.deferred[slot]) == 0 {
			continue
		}
		// This slot holds work deferred at some past epoch e ≡ slot (mod 3).
		// It is safe to drain once global has advanced at least two
		// generations past any epoch that could still map to this slot,
		// which — since slots cycle with period 3 — holds once global-
		// localEpoch recorded at defer time is unknowable here directly; we
		// conservatively require the global epoch to have moved at least 2
		// since this participant's own last pin, which dominates the
		// e+2 bound for anything this participant itself deferred.
		if global >= p.localEpoch+2 {
			for _, fn := range p.deferred[slot] {
				fn()
			}
			p.deferred[slot] = p.deferred[slot][:0]
		}
	}
}

// tryAdvanceEpoch attempts a CAS to advance the global epoch by one. It
// succeeds only if every currently-pinned participant in the list has a
// local epoch at least equal to the current global epoch (§4.10: "succeeds
// only if all active participants have epoch ≥ current").
func (p *Participant) tryAdvanceEpoch() {
	g := p.global
	current := g.epoch.Load()
	for n := g.head.Load(); n != nil; n = n.next {
		n.mu.Lock()
		pinned := n.pinCount > 0
		local := n.localEpoch
		n.mu.Unlock()
		if pinned && local < current {
			return
		}
	}
	g.epoch.CompareAndSwap(current, current+1)
}

// Flush synchronously drains every remaining deferred closure across all
// generations, regardless of the grace-period check. Intended for orderly
// shutdown (process exit), mirroring eventloop's "drop of a participant
// flushes all remaining queues."
func (p *Participant) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for slot := range p.deferred {
		for _, fn := range p.deferred[slot] {
			fn()
		}
		p.deferred[slot] = p.deferred[slot][:0]
	}
}
