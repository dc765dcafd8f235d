package admission

import (
	"context"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-longpoll"
	"github.com/knhk/mukernel/model"
)

// ParkedDelta is one delta waiting in the W1/C1 warm path: the delta itself,
// the runtime class it was parked under, and the Δ-ring coordinates
// (Tick, RingOffset) the warm-path drainer needs to Unpark and Dequeue it.
type ParkedDelta struct {
	Delta      model.DeltaBatch
	PatternID  uint8
	Class      Class
	Tick       int
	RingOffset int
	SpanID     uint64
}

// ParkingScanner drains a channel of parked deltas in batches, the same
// min/max-size-with-partial-timeout discipline longpoll.Channel implements
// for blocking receives generally, applied here to W1's "relaxed latency
// (hundreds of microseconds to low millisecond)" soft deadline (§4.7, §5).
type ParkingScanner struct {
	cfg *longpoll.ChannelConfig
}

// NewParkingScanner constructs a scanner with a soft per-batch deadline.
// minBatch/maxBatch bound how many parked deltas are drained per call;
// softDeadline is the partial-timeout after which a short batch is
// returned anyway rather than waiting for minBatch to fill.
func NewParkingScanner(minBatch, maxBatch int, softDeadline time.Duration) *ParkingScanner {
	return &ParkingScanner{cfg: &longpoll.ChannelConfig{
		MinSize:        minBatch,
		MaxSize:        maxBatch,
		PartialTimeout: softDeadline,
	}}
}

// Drain blocks until minBatch deltas have arrived on ch, maxBatch have been
// collected, the soft deadline elapses, ctx is cancelled, or ch is closed
// (in which case io.EOF unwinds through err once buffered values are
// exhausted). Each drained delta is passed to handler in arrival order.
func (s *ParkingScanner) Drain(ctx context.Context, ch <-chan ParkedDelta, handler func(ParkedDelta) error) error {
	return longpoll.Channel(ctx, s.cfg, ch, handler)
}

// SLODemotionThrottle rate-limits how often a global SLO violation's
// demotion-to-W1 event is surfaced to the observability sink, so a
// sustained violation doesn't flood the sink with one event per admitted
// delta (§4.7: "a global SLO violation causes admission to demote to W1").
//
// Grounded on catrate.Limiter, the rate limiter this monorepo already uses
// for categorised event throttling.
type SLODemotionThrottle struct {
	limiter *catrate.Limiter
}

// NewSLODemotionThrottle allows at most maxEvents demotion notifications
// per window.
func NewSLODemotionThrottle(window time.Duration, maxEvents int) *SLODemotionThrottle {
	return &SLODemotionThrottle{limiter: catrate.NewLimiter(map[time.Duration]int{window: maxEvents})}
}

// Allow reports whether a demotion event for category should be surfaced
// now, given the configured rate.
func (t *SLODemotionThrottle) Allow(category string) bool {
	_, ok := t.limiter.Allow(category)
	return ok
}
