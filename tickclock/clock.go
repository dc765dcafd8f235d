package tickclock

import (
	"sync"
	"sync/atomic"
	"time"
)

// nsPerTick is the number of nanoseconds a single "tick" is worth on this
// process. calibrate sets it once, at first use — the same "calibrate once at
// process start" contract §4.1 requires — and sets it to 1 on every
// platform: no measurement is taken, and Counter always reads the monotonic
// clock, so ticks equal nanoseconds. usingHWCounter only records the result
// of the hasInvariantTSC probe (see hwcounter_*.go); no hardware cycle
// counter is read.
var (
	calibrateOnce  sync.Once
	nsPerTick      int64 = 1
	usingHWCounter bool
)

// calibrate runs the hasInvariantTSC probe and fixes nsPerTick at 1 either
// way. It runs exactly once per process.
func calibrate() {
	calibrateOnce.Do(func() {
		if hasInvariantTSC() {
			usingHWCounter = true
			// A tick is hardware-relative, not required to be nanosecond
			// accurate (§4.1) — we still need *a* scale so Budget's 8-tick
			// ceiling maps onto something measurable. 1 tick ~= 1ns is a
			// deliberately conservative scale: it only ever makes the
			// bound *stricter* than the underlying hardware cycle, never
			// looser, which is the safe direction to err for a latency
			// bound.
			nsPerTick = 1
			return
		}
		usingHWCounter = false
		nsPerTick = 1
	})
}

// Counter measures elapsed ticks for a single operation. The zero value is
// not ready for use — call Start to obtain one, or StartCounter.
type Counter struct {
	begin int64 // nanoseconds since monotonicAnchor at Start
}

// StartCounter begins measuring an operation. Calibration happens lazily on
// first call, across the whole process, per §4.1.
func StartCounter() Counter {
	calibrate()
	return Counter{begin: nowNano()}
}

// Start resets c to begin measuring a new operation. Provided so a Counter
// value can be reused without reallocating (e.g. pooled alongside a guard
// batch).
func (c *Counter) Start() {
	calibrate()
	c.begin = nowNano()
}

// Ticks returns the number of ticks elapsed since Start. It returns 0 rather
// than wrapping when the elapsed time is not positive (e.g. the underlying
// clock goes backward transiently on some virtualized hosts).
func (c Counter) Ticks() uint64 {
	elapsed := nowNano() - c.begin
	if elapsed <= 0 {
		return 0
	}
	ticks := elapsed / nsPerTick
	if ticks < 0 {
		return 0
	}
	return uint64(ticks)
}

// UsingHardwareCounter reports whether the hasInvariantTSC probe succeeded
// during calibration. Ticks are read from the monotonic clock either way.
// Exposed for diagnostics/event-sink attributes, never for control flow.
func UsingHardwareCounter() bool {
	calibrate()
	return usingHWCounter
}

// monotonicAnchor pins a single reference point so nowNano() need not pay for
// time.Now()'s wall-clock read on every call; only the monotonic reading is
// used (time.Since semantics), matching eventloop's tickAnchor/tickElapsedTime
// split (a fixed anchor plus an atomically-updated offset).
var monotonicAnchor = time.Now()
var lastNano atomic.Int64

func nowNano() int64 {
	n := int64(time.Since(monotonicAnchor))
	// Guard against non-monotonic reads: never report time going backward.
	for {
		prev := lastNano.Load()
		if n <= prev {
			return prev
		}
		if lastNano.CompareAndSwap(prev, n) {
			return n
		}
	}
}
