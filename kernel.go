// Package mukernel wires the tick-bounded scheduling core together:
// admission, dispatch, the Δ/Α rings, and the snapshot store, behind a
// small external-facing API (§6).
package mukernel

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/knhk/mukernel/admission"
	"github.com/knhk/mukernel/cache"
	"github.com/knhk/mukernel/config"
	"github.com/knhk/mukernel/eventsink"
	"github.com/knhk/mukernel/kerrors"
	"github.com/knhk/mukernel/model"
	"github.com/knhk/mukernel/pattern"
	"github.com/knhk/mukernel/receipt"
	"github.com/knhk/mukernel/ring"
	"github.com/knhk/mukernel/snapshot"
	"golang.org/x/sync/errgroup"
)

// TripleSink is the narrow external collaborator an admitted, executed
// delta's resulting assertions are ultimately handed to. RDF/triple-store
// semantics and SPARQL are explicitly out of scope (§1 Non-goals); this
// interface only carries the bytes across that boundary.
type TripleSink interface {
	AcceptAssertions(assertions []model.Assertion, r receipt.Receipt) error
}

// SchemaHandle is the narrow external collaborator consulted when a
// receipt's Status.TypeSoundness requires checking a delta's shape against
// an externally-maintained schema. Out of scope to implement here (§1); the
// core only needs the yes/no answer.
type SchemaHandle interface {
	Validate(delta model.DeltaBatch) bool
}

// Kernel glues together admission, the pattern dispatcher, the Δ/Α rings,
// and the snapshot store.
type Kernel struct {
	admission   *admission.Controller
	dispatcher  *pattern.Dispatcher
	deltaRing   *ring.Ring
	assertions  *ring.AssertionRing[receipt.Receipt]
	snapshots   *snapshot.Store
	sink        *eventsink.Sink
	interner    *cache.Interner
	heatmap     *cache.Heatmap
	warmScanner *admission.ParkingScanner

	parked chan admission.ParkedDelta
}

// Deps bundles the collaborators New wires into a Kernel. Catalogue and
// Dispatcher must already have handlers registered via dispatcher.Register.
type Deps struct {
	Config           config.Config
	Catalogue        *pattern.Catalogue
	Dispatcher       *pattern.Dispatcher
	Heatmap          *cache.Heatmap
	Interner         *cache.Interner
	SLO              *admission.SLOEstimator
	Sink             *eventsink.Sink
	// ParkingScanner overrides the default min/max-batch-with-partial-timeout
	// drain discipline RunWarmPath uses. Defaults to a 1..8 batch with a
	// 50ms soft deadline if nil.
	ParkingScanner *admission.ParkingScanner
	// DemotionThrottle overrides the default rate limit on the §4.7 global
	// SLO violation demotion notification. Only takes effect if Sink is set.
	DemotionThrottle *admission.SLODemotionThrottle
}

// New constructs a Kernel from deps.
func New(deps Deps) (*Kernel, error) {
	deltaRing, err := ring.New(deps.Config.RingSize)
	if err != nil {
		return nil, err
	}
	assertionRing, err := ring.NewAssertionRing[receipt.Receipt](deps.Config.RingSize)
	if err != nil {
		return nil, err
	}

	scanner := deps.ParkingScanner
	if scanner == nil {
		scanner = admission.NewParkingScanner(1, 8, 50*time.Millisecond)
	}

	var cacheResidency admission.CacheResidency
	if deps.Heatmap != nil {
		cacheResidency = deps.Heatmap
	}
	ctrl := admission.NewController(deps.Catalogue, cacheResidency, deps.SLO, deps.Config.BrownoutMode)
	if deps.Sink != nil {
		throttle := deps.DemotionThrottle
		if throttle == nil {
			throttle = admission.NewSLODemotionThrottle(10*time.Second, 1)
		}
		ctrl.SetDemotionNotifier(deps.Sink, throttle)
	}

	return &Kernel{
		admission:   ctrl,
		dispatcher:  deps.Dispatcher,
		deltaRing:   deltaRing,
		assertions:  assertionRing,
		snapshots:   snapshot.NewStore(),
		sink:        deps.Sink,
		interner:    deps.Interner,
		heatmap:     deps.Heatmap,
		warmScanner: scanner,
		parked:      make(chan admission.ParkedDelta, deps.Config.RingSize),
	}, nil
}

// Admit is the single ingress function §6 names: admit(delta,
// requested_pattern) -> decision. On R1 admission, the delta is executed
// immediately (within the Chatman bound) and its assertions/receipt are
// written to the Α-ring; the caller retrieves them via Egress. On W1/C1
// admission, the delta is parked for later draining by RunWarmPath.
func (k *Kernel) Admit(delta model.DeltaBatch, requestedPattern uint8, tick int, spanID uint64) (admission.Decision, error) {
	if err := delta.Validate(); err != nil {
		return admission.Decision{}, kerrors.Wrap(kerrors.InvariantViolated, "delta batch failed validation", err)
	}

	decision, err := k.admission.Admit(delta, requestedPattern)
	if err != nil {
		return admission.Decision{}, err
	}

	if k.heatmap != nil {
		for _, p := range delta.P {
			k.heatmap.Record(p)
		}
	}

	switch decision.Class {
	case admission.R1:
		if err := k.admitR1(delta, requestedPattern, tick, spanID); err != nil {
			kind, ok := kerrors.KindOf(err)
			if !ok || kind != kerrors.RingFull {
				return decision, err
			}
			// §7 local recovery: RingFull downgrades one runtime class and
			// retries once, rather than rejecting the delta outright. The
			// tick slot that just rejected the Enqueue has no room for the
			// retry either, so the delta goes straight to the warm lane
			// instead of back onto the same full ring.
			decision = admission.Decision{Class: admission.W1, Reason: "δ-ring full on r1, downgraded to w1"}
			if err := k.parkWithoutRing(delta, requestedPattern, tick, spanID, admission.W1); err != nil {
				return decision, err
			}
		}
	case admission.W1, admission.C1:
		if err := k.parkDelta(delta, requestedPattern, tick, spanID, decision.Class); err != nil {
			return decision, err
		}
	}

	return decision, nil
}

// admitR1 routes a hot-path delta through the §4.2 Δ-ring: it is enqueued
// onto tick's slot and immediately dequeued by this call (the dispatcher
// that "dequeues it once" per §3's delta lifecycle), rather than the
// dispatcher reading the original delta directly — so the ring is the one
// source of truth for what gets executed, not a bypassed formality.
func (k *Kernel) admitR1(delta model.DeltaBatch, requestedPattern uint8, tick int, spanID uint64) error {
	n := delta.N()
	if err := k.deltaRing.Enqueue(tick, delta.S, delta.P, delta.O, n, delta.CycleID); err != nil {
		return err
	}
	drained, err := k.deltaRing.Dequeue(tick, n)
	if err != nil {
		return err
	}
	ringDelta := model.DeltaBatch{S: drained.S, P: drained.P, O: drained.O, CycleID: delta.CycleID, PatternID: delta.PatternID}
	return k.dispatchAndEmit(ringDelta, requestedPattern, tick, spanID)
}

// parkDelta enqueues a W1/C1 delta onto the Δ-ring and immediately Parks the
// entries it just wrote, so the hot dequeue path skips them while they
// remain visible to the warm-path scanner (§4.2), then hands the ring
// coordinates to RunWarmPath via the parked channel.
func (k *Kernel) parkDelta(delta model.DeltaBatch, requestedPattern uint8, tick int, spanID uint64, class admission.Class) error {
	n := delta.N()
	offset := k.deltaRing.Len(tick)
	if err := k.deltaRing.Enqueue(tick, delta.S, delta.P, delta.O, n, delta.CycleID); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := k.deltaRing.Park(tick, offset+i); err != nil {
			return err
		}
	}

	pd := admission.ParkedDelta{Delta: delta, PatternID: requestedPattern, Class: class, Tick: tick, RingOffset: offset, SpanID: spanID}
	select {
	case k.parked <- pd:
		return nil
	default:
		return kerrors.New(kerrors.RingFull, "parked queue full", "class", class.String())
	}
}

// parkWithoutRing hands a delta straight to the warm-path queue without
// touching the Δ-ring, for the one case where the ring itself has no room
// left to receive it (the §7 RingFull-downgrade retry out of admitR1).
func (k *Kernel) parkWithoutRing(delta model.DeltaBatch, requestedPattern uint8, tick int, spanID uint64, class admission.Class) error {
	pd := admission.ParkedDelta{Delta: delta, PatternID: requestedPattern, Class: class, Tick: tick, RingOffset: -1, SpanID: spanID}
	select {
	case k.parked <- pd:
		return nil
	default:
		return kerrors.New(kerrors.RingFull, "parked queue full", "class", class.String())
	}
}

// dispatchAndEmit runs a delta through the pattern dispatcher and writes its
// resulting assertions onto the given tick slot of the Α-ring, recording a
// span and receipt on the sink if one is configured.
func (k *Kernel) dispatchAndEmit(delta model.DeltaBatch, requestedPattern uint8, tick int, spanID uint64) error {
	start := time.Now()
	assertions, r, err := k.dispatcher.Execute(delta, requestedPattern, delta.CycleID, spanID, nil)
	if err != nil {
		return err
	}
	for _, a := range assertions {
		if enqueueErr := k.assertions.Enqueue(tick, a.Triple.Subject, a.Triple.Predicate, a.Triple.Object, a.CycleID, r); enqueueErr != nil {
			return enqueueErr
		}
	}
	if k.sink != nil {
		k.sink.RecordReceipt(r)
		k.sink.RecordMetric("dispatch_duration_ms", float64(time.Since(start).Microseconds())/1000, nil)
	}
	return nil
}

// RunWarmPath drains parked W1/C1 work with the given bounded concurrency
// until ctx is cancelled, executing each via the same dispatcher the hot
// path uses and emitting its assertions to the Α-ring exactly as Admit's R1
// branch does. Concurrency is capped with an errgroup-backed worker pool
// (§5: the warm path "may hold short-lived locks" but still has an upper
// bound on in-flight work), unlike R1's strictly single-shot inline execution.
//
// admission.ParkingScanner.Drain (longpoll.Channel underneath) performs one
// bounded min/max-batch-with-partial-timeout receive and returns, so this
// loops on it until ctx cancellation or the parked channel is closed and
// drained (io.EOF) ends the warm path.
func (k *Kernel) RunWarmPath(ctx context.Context, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	g, gctx := errgroup.WithContext(ctx)

	for {
		err := k.warmScanner.Drain(ctx, k.parked, func(p admission.ParkedDelta) error {
			sem <- struct{}{}
			g.Go(func() error {
				defer func() { <-sem }()
				return k.drainParked(p)
			})
			return nil
		})
		switch {
		case err == nil:
			if gctx.Err() != nil {
				return g.Wait()
			}
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, io.EOF):
			return g.Wait()
		default:
			return err
		}
	}
}

// drainParked completes a parked delta's Δ-ring lifecycle: Unpark the
// entries parkDelta marked, Dequeue them back off the ring, then dispatch
// and emit exactly as the R1 path does.
func (k *Kernel) drainParked(p admission.ParkedDelta) error {
	if p.RingOffset < 0 {
		// parked without ever touching the Δ-ring (see parkWithoutRing).
		return k.dispatchAndEmit(p.Delta, p.PatternID, p.Tick, p.SpanID)
	}
	n := p.Delta.N()
	for i := 0; i < n; i++ {
		if err := k.deltaRing.Unpark(p.Tick, p.RingOffset+i); err != nil {
			return err
		}
	}
	want := p.RingOffset + n
	drained, err := k.deltaRing.Dequeue(p.Tick, want)
	if err != nil {
		return err
	}
	if drained.Count < want {
		return kerrors.New(kerrors.Internal, "warm path drain came up short of the parked batch", "tick", p.Tick, "want", want, "got", drained.Count)
	}
	start := drained.Count - n
	ringDelta := model.DeltaBatch{
		S: drained.S[start:], P: drained.P[start:], O: drained.O[start:],
		CycleID: p.Delta.CycleID, PatternID: p.Delta.PatternID,
	}
	return k.dispatchAndEmit(ringDelta, p.PatternID, p.Tick, p.SpanID)
}

// Egress returns up to capLimit (assertion, receipt) pairs from the given
// tick slot of the Α-ring (§6 "a streaming reader per tick slot").
func (k *Kernel) Egress(tick int, capLimit int) ([]ring.Assertion[receipt.Receipt], error) {
	return k.assertions.Dequeue(tick, capLimit)
}

// ParkedDepth reports how many deltas are currently waiting for RunWarmPath.
func (k *Kernel) ParkedDepth() int {
	return len(k.parked)
}

// Snapshots exposes the snapshot promotion API (§6).
func (k *Kernel) Snapshots() *snapshot.Store {
	return k.snapshots
}
