// Package kerrors implements the μ-kernel's closed error taxonomy.
//
// Every error the core returns is a *Error with a Kind drawn from a fixed
// enumeration (never a bare fmt.Errorf string), structured context fields,
// and a recoverability classification. This mirrors the sentinel-error set in
// eventloop (ErrLoopOverloaded, ErrLoopTerminated, ...), generalized into a
// typed taxonomy so callers can switch on Kind instead of matching strings.
package kerrors

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error kinds the core can produce.
type Kind uint8

const (
	// InvariantViolated indicates a data-model invariant (§3) was broken.
	InvariantViolated Kind = iota
	// PatternNotFound indicates a requested pattern_id has no catalogue entry.
	PatternNotFound
	// GuardFailed indicates a required-phase guard evaluated to false.
	GuardFailed
	// SloExceeded indicates the SLO headroom signal reported sustained violation.
	SloExceeded
	// BudgetExhausted indicates a tick budget was consumed past its limit.
	BudgetExhausted
	// RingFull indicates an enqueue found no free slot in a ring buffer.
	RingFull
	// PoolExhausted indicates the guard-batch pool had no free batch to acquire.
	PoolExhausted
	// SnapshotNotFound indicates a snapshot id is absent from the store.
	SnapshotNotFound
	// NoReceipt indicates promotion was attempted without a validation receipt.
	NoReceipt
	// PromotionNotAllowed indicates the validation receipt's status flags block promotion.
	PromotionNotAllowed
	// SchemaMismatch indicates a triple referenced a predicate unknown to the schema handle.
	SchemaMismatch
	// Internal is a catch-all for defects that are not the caller's fault.
	Internal
)

// String renders the Kind as a stable, lowercase identifier.
func (k Kind) String() string {
	switch k {
	case InvariantViolated:
		return "invariant_violated"
	case PatternNotFound:
		return "pattern_not_found"
	case GuardFailed:
		return "guard_failed"
	case SloExceeded:
		return "slo_exceeded"
	case BudgetExhausted:
		return "budget_exhausted"
	case RingFull:
		return "ring_full"
	case PoolExhausted:
		return "pool_exhausted"
	case SnapshotNotFound:
		return "snapshot_not_found"
	case NoReceipt:
		return "no_receipt"
	case PromotionNotAllowed:
		return "promotion_not_allowed"
	case SchemaMismatch:
		return "schema_mismatch"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// recoverable mirrors §4.12: true for RingFull, PoolExhausted, SloExceeded,
// BudgetExhausted, SchemaMismatch; false for everything else.
func (k Kind) recoverable() bool {
	switch k {
	case RingFull, PoolExhausted, SloExceeded, BudgetExhausted, SchemaMismatch:
		return true
	default:
		return false
	}
}

// Error is the single structured error type returned by every core operation.
type Error struct {
	Kind Kind
	// Msg is a short operator-facing description, e.g. "pattern not found".
	Msg string
	// Context carries the ids/counts that triggered the error, e.g.
	// {"pattern_id": 17} or {"slot": 3, "capacity": 1024}. Keys are stable
	// identifiers, not free text, so operators and log pipelines can key off them.
	Context map[string]any
	// Cause is an optional wrapped error.
	Cause error
}

// New constructs an *Error with the given kind, message, and context pairs.
// ctx must be an even number of arguments, alternating key, value.
func New(kind Kind, msg string, ctx ...any) *Error {
	return &Error{Kind: kind, Msg: msg, Context: pairs(ctx)}
}

// Wrap is like New but attaches an underlying cause.
func Wrap(kind Kind, msg string, cause error, ctx ...any) *Error {
	return &Error{Kind: kind, Msg: msg, Context: pairs(ctx), Cause: cause}
}

func pairs(kv []any) map[string]any {
	if len(kv) == 0 {
		return nil
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		m[key] = kv[i+1]
	}
	return m
}

// Error implements the error interface, rendering ids/counts inline so
// messages are self-contained for operators (§7: "pattern 17 not found").
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("mukernel: %s: %s", e.Kind, e.Msg)
	}
	s := fmt.Sprintf("mukernel: %s: %s (", e.Kind, e.Msg)
	first := true
	for _, k := range contextKeyOrder(e.Context) {
		if !first {
			s += ", "
		}
		first = false
		s += fmt.Sprintf("%s=%v", k, e.Context[k])
	}
	return s + ")"
}

// contextKeyOrder returns Context's keys in a stable, sorted order so
// repeated renderings of the same error are byte-identical.
func contextKeyOrder(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// simple insertion sort: context maps are tiny (ids/counts), no need for sort.Strings overhead
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// Unwrap supports errors.Is/errors.As through the cause chain.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a *Error with the same Kind, matching on the
// taxonomy rather than on identity or message text.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// IsRecoverable reports whether err (or any *Error in its chain) is of a kind
// the caller may retry after a local downgrade (§7 "Local recovery").
func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.recoverable()
	}
	return false
}

// KindOf extracts the Kind from err, returning (Internal, false) if err does
// not carry a *Error in its chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return Internal, false
}
