package guard

import "github.com/knhk/mukernel/kerrors"

// Pool is a bounded set of pre-allocated Batch instances (16 by default, per
// §4.4) that amortises allocation on the hot path. Acquire never blocks: a
// pool-full condition is reported as an error so the caller can downgrade to
// W1, exactly as §4.4's "Failure modes" requires.
//
// Implemented with a buffered channel of *Batch, which is the idiom the
// teacher uses wherever a bounded, non-blocking-on-full handoff is wanted in
// preference to a custom CAS free-list (eventloop's own commentary on
// ChunkedIngress explains the decision to favor mutex/channel-backed
// structures over lock-free ones under contention; a channel's internal
// lock is short-held and this pool is never on a path that blocks on it).
type Pool struct {
	free chan *Batch
	size int
}

// NewPool constructs a Pool with size pre-allocated Batches.
func NewPool(size int) (*Pool, error) {
	if size <= 0 {
		return nil, kerrors.New(kerrors.Internal, "guard pool size must be positive", "size", size)
	}
	p := &Pool{free: make(chan *Batch, size), size: size}
	for i := 0; i < size; i++ {
		p.free <- &Batch{}
	}
	return p, nil
}

// Size returns the pool's fixed capacity.
func (p *Pool) Size() int { return p.size }

// Acquire returns a reset Batch, or a PoolExhausted error if none are free.
func (p *Pool) Acquire() (*Batch, error) {
	select {
	case b := <-p.free:
		b.Reset()
		return b, nil
	default:
		return nil, kerrors.New(kerrors.PoolExhausted, "guard batch pool exhausted", "pool_size", p.size)
	}
}

// Release returns b to the pool. Callers must not retain b after calling
// Release.
func (p *Pool) Release(b *Batch) {
	select {
	case p.free <- b:
	default:
		// pool somehow over-full (a double-release bug upstream): drop the
		// batch rather than block or panic, since this is not a path that
		// should ever be allowed to stall the hot path.
	}
}
