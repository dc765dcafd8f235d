// Package admission implements the R1/W1/C1 runtime-class router of §4.7:
// the admission controller deciding, per incoming delta, which ring a
// delta is enqueued onto.
package admission

import (
	"strconv"

	"github.com/knhk/mukernel/config"
	"github.com/knhk/mukernel/kerrors"
	"github.com/knhk/mukernel/model"
	"github.com/knhk/mukernel/pattern"
)

// Class is the selected runtime class a Decision reports.
type Class uint8

const (
	// R1 is the hot path: tick-budgeted, lock-free, no suspension.
	R1 Class = iota
	// W1 is the warm path: relaxed latency, may hold short-lived locks.
	W1
	// C1 is the cold path: no deadline, used for validators and async work.
	C1
)

func (c Class) String() string {
	switch c {
	case R1:
		return "R1"
	case W1:
		return "W1"
	case C1:
		return "C1"
	default:
		return "unknown"
	}
}

// Decision is the admission controller's verdict for one delta.
type Decision struct {
	Class  Class
	Reason string
}

// CacheResidency reports whether the predicates a delta touches are
// currently considered "hot" (in-cache), the residency predicate §4.7
// names as an admission input.
type CacheResidency interface {
	MeetsParetoThreshold() bool
}

// DemotionSink is the narrow collaborator notifyDemotion reports a global
// SLO violation's forced W1 demotion to. eventsink.Sink satisfies this
// structurally; admission doesn't import eventsink directly to avoid
// coupling this package to the observability stack's concrete type.
type DemotionSink interface {
	RecordSpan(kind string, attrs map[string]string)
}

// Controller routes deltas to R1, W1, or C1 based on predicted cache
// residency, estimated tick cost against the Chatman bound, SLO headroom,
// and the configured brownout mode.
type Controller struct {
	catalogue *pattern.Catalogue
	cache     CacheResidency
	slo       *SLOEstimator
	brownout  config.BrownoutMode

	demotionSink     DemotionSink
	demotionThrottle *SLODemotionThrottle
}

// NewController constructs a Controller. cache and slo may be nil, in which
// case their signals default to "healthy" (residency ignored, SLO treated
// as within budget) — useful for tests and for a controller bootstrapped
// before the cache/heatmap has any traffic to judge residency from.
func NewController(catalogue *pattern.Catalogue, cache CacheResidency, slo *SLOEstimator, brownout config.BrownoutMode) *Controller {
	return &Controller{catalogue: catalogue, cache: cache, slo: slo, brownout: brownout}
}

// SetBrownoutMode updates the controller's brownout mode. Mode transitions
// are driven by an external controller (§4.7: out of scope for this core),
// so this is the narrow seam that controller is expected to call through.
func (c *Controller) SetBrownoutMode(mode config.BrownoutMode) {
	c.brownout = mode
}

// SetDemotionNotifier wires sink and throttle into the §4.7 "a global SLO
// violation causes admission to demote to W1" notification: every time slo
// headroom is unhealthy and that's what pushes a delta below R1, a
// rate-limited span is recorded on sink rather than every single admission
// generating one.
func (c *Controller) SetDemotionNotifier(sink DemotionSink, throttle *SLODemotionThrottle) {
	c.demotionSink = sink
	c.demotionThrottle = throttle
}

func (c *Controller) notifyDemotion(patternID uint8) {
	if c.demotionSink == nil {
		return
	}
	if c.demotionThrottle != nil && !c.demotionThrottle.Allow("slo_demotion") {
		return
	}
	c.demotionSink.RecordSpan("slo_demotion_to_w1", map[string]string{
		"pattern_id": strconv.Itoa(int(patternID)),
	})
}

// Admit decides which runtime class serves delta, requesting patternID.
func (c *Controller) Admit(delta model.DeltaBatch, patternID uint8) (Decision, error) {
	desc, err := c.catalogue.Lookup(patternID)
	if err != nil {
		return Decision{}, err
	}

	switch c.brownout {
	case config.R1Only:
		if c.r1Eligible(desc) {
			return Decision{Class: R1, Reason: "r1-only brownout, eligible"}, nil
		}
		return Decision{}, kerrors.New(kerrors.SloExceeded, "r1-only brownout: delta not r1-eligible and w1/c1 are rejected", "pattern_id", patternID)
	case config.W1Degraded:
		if c.r1Eligible(desc) {
			return Decision{Class: R1, Reason: "eligible under w1-degraded"}, nil
		}
		return Decision{Class: W1, Reason: "c1 disabled under w1-degraded"}, nil
	case config.C1Paused:
		if c.r1Eligible(desc) {
			return Decision{Class: R1, Reason: "eligible under c1-paused"}, nil
		}
		return Decision{Class: W1, Reason: "c1 paused"}, nil
	}

	if c.r1Eligible(desc) {
		return Decision{Class: R1, Reason: "predicted in-cache, within budget, slo healthy"}, nil
	}
	if desc.TickCost <= 8 {
		if c.slo != nil && !c.slo.HeadroomHealthy() {
			c.notifyDemotion(patternID)
		}
		return Decision{Class: W1, Reason: "cache miss or tight budget"}, nil
	}
	return Decision{Class: C1, Reason: "no budget available"}, nil
}

// r1Eligible implements §4.7's R1 predicate: predicted in-cache ∧ estimated
// ticks ≤ budget ∧ SLO headroom healthy.
func (c *Controller) r1Eligible(desc *pattern.Descriptor) bool {
	if desc.TickCost > 8 {
		return false
	}
	if c.cache != nil && !c.cache.MeetsParetoThreshold() {
		return false
	}
	if c.slo != nil && !c.slo.HeadroomHealthy() {
		return false
	}
	return true
}
