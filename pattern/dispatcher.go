package pattern

import (
	"sort"

	"github.com/knhk/mukernel/kerrors"
	"github.com/knhk/mukernel/model"
	"github.com/knhk/mukernel/receipt"
	"github.com/knhk/mukernel/tickclock"
)

// PhaseOutput is one phase handler's emitted assertion, tagged with the
// ordering key §4.3 requires for deterministic multi-activity emission:
// "sorted by a stable key (phase index, then task id ascending)".
type PhaseOutput struct {
	PhaseIndex uint8
	TaskID     uint64
	Assertion  model.Assertion
}

// PhaseHandler executes one phase of a pattern against an admitted delta
// and the guard evaluation mask computed for it, returning zero or more
// assertions (a phase may fan out, as in parallel-split).
type PhaseHandler func(delta model.DeltaBatch, guardMask uint8) ([]PhaseOutput, error)

// GuardEvaluator evaluates whichever guards a pattern's phases require over
// delta, returning the §4.4 8-bit result mask.
type GuardEvaluator func(delta model.DeltaBatch) (uint8, error)

// Dispatcher is the table of function pointers indexed by pattern_id
// (§4.3: "per-pattern dispatch is a table of function pointers ... not
// polymorphism over a virtual interface"), paired with the Catalogue that
// bounds each entry's tick cost.
type Dispatcher struct {
	catalogue *Catalogue
	handlers  [MaxPatterns][]PhaseHandler
}

// NewDispatcher constructs a Dispatcher over catalogue. catalogue must
// already have passed ValidateCatalogue.
func NewDispatcher(catalogue *Catalogue) *Dispatcher {
	return &Dispatcher{catalogue: catalogue}
}

// Register installs phase handlers for patternID. len(handlers) must equal
// the descriptor's PhaseCount.
func (d *Dispatcher) Register(patternID uint8, handlers []PhaseHandler) error {
	desc, err := d.catalogue.Lookup(patternID)
	if err != nil {
		return err
	}
	if len(handlers) != int(desc.PhaseCount) {
		return kerrors.New(kerrors.InvariantViolated, "handler count does not match descriptor phase count", "pattern_id", patternID, "want", desc.PhaseCount, "got", len(handlers))
	}
	d.handlers[patternID] = handlers
	return nil
}

// Execute runs patternID's execution shape (§4.3 steps 1-5) against delta:
// load descriptor, dispatch, evaluate guards, run phase handlers in order,
// and emit the deterministically-ordered assertions plus one receipt
// summarising the run. Guards are evaluated once, before any phase handler
// runs, and there is no per-phase guard check: an all-zero mask from the
// evaluator skips every phase handler and the returned receipt reports
// GuardPreservation=false, while a partial mask is passed to each handler
// unchanged.
func (d *Dispatcher) Execute(delta model.DeltaBatch, patternID uint8, cycleID, spanID uint64, guards GuardEvaluator) ([]model.Assertion, receipt.Receipt, error) {
	budget := tickclock.New(tickclock.Limit)

	// 1. load descriptor
	budget, st := budget.Consume(1)
	if st == tickclock.Exhausted {
		return nil, receipt.Receipt{}, kerrors.New(kerrors.BudgetExhausted, "tick budget exhausted loading descriptor", "pattern_id", patternID)
	}
	desc, err := d.catalogue.Lookup(patternID)
	if err != nil {
		return nil, receipt.Receipt{}, err
	}

	// 2. dispatch by id
	budget, st = budget.Consume(1)
	if st == tickclock.Exhausted {
		return nil, receipt.Receipt{}, kerrors.New(kerrors.BudgetExhausted, "tick budget exhausted dispatching", "pattern_id", patternID)
	}
	handlers := d.handlers[patternID]
	if handlers == nil {
		return nil, receipt.Receipt{}, kerrors.New(kerrors.PatternNotFound, "no handlers registered for pattern", "pattern_id", patternID)
	}

	// 3. evaluate guards (0..N ticks, budgeted by the caller-supplied
	// evaluator; this dispatcher only accounts for the call itself)
	var guardMask uint8 = 0xFF // no guards configured: treat as all-pass
	if guards != nil {
		budget, st = budget.Consume(1)
		if st == tickclock.Exhausted {
			return nil, receipt.Receipt{}, kerrors.New(kerrors.BudgetExhausted, "tick budget exhausted evaluating guards", "pattern_id", patternID)
		}
		guardMask, err = guards(delta)
		if err != nil {
			return nil, receipt.Receipt{}, err
		}
	}

	status := receipt.IdentityFlags()
	var outputs []PhaseOutput
	guardFailed := guardMask == 0 && guards != nil

	// 4. execute phase handlers, short-circuiting on guard failure
	if !guardFailed {
		for _, h := range handlers {
			budget, st = budget.Consume(1)
			if st == tickclock.Exhausted {
				return nil, receipt.Receipt{}, kerrors.New(kerrors.BudgetExhausted, "tick budget exhausted in phase handler", "pattern_id", patternID)
			}
			out, err := h(delta, guardMask)
			if err != nil {
				return nil, receipt.Receipt{}, err
			}
			outputs = append(outputs, out...)
		}
	} else {
		status.GuardPreservation = false
	}

	// 5. emit assertion + receipt
	budget, st = budget.Consume(1)
	if st == tickclock.Exhausted {
		return nil, receipt.Receipt{}, kerrors.New(kerrors.BudgetExhausted, "tick budget exhausted emitting result", "pattern_id", patternID)
	}

	sort.Slice(outputs, func(i, j int) bool {
		if outputs[i].PhaseIndex != outputs[j].PhaseIndex {
			return outputs[i].PhaseIndex < outputs[j].PhaseIndex
		}
		return outputs[i].TaskID < outputs[j].TaskID
	})

	assertions := make([]model.Assertion, len(outputs))
	for i, o := range outputs {
		assertions[i] = o.Assertion
	}

	r := receipt.Receipt{
		CycleID:     cycleID,
		HookID:      desc.HookID,
		ActualTicks: budget.Spent(),
		Lanes:       uint8(len(assertions)),
		SpanID:      spanID,
		Status:      status,
	}
	if guardFailed {
		r.Errors = []string{"guard failed"}
	}
	return assertions, r, nil
}
