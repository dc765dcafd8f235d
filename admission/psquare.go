package admission

import "sync"

// pSquareQuantile implements the P-Square algorithm for streaming quantile
// estimation: O(1) per-observation update and O(1) retrieval, so the
// admission controller never has to retain or sort raw latency samples to
// answer "is SLO headroom healthy?" on the hot path.
//
// Adapted from the same P-Square implementation used for this module's
// event-loop metrics (Jain & Chlamtac, 1985), generalised here to track a
// single target quantile behind a mutex since, unlike the teacher's
// single-goroutine event loop, the admission controller is read from
// multiple producer goroutines concurrently.
type pSquareQuantile struct {
	p           float64
	q           [5]float64
	n           [5]int
	np          [5]float64
	dn          [5]float64
	initialized bool
	count       int
	initBuffer  [5]float64
}

func newPSquareQuantile(p float64) *pSquareQuantile {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return &pSquareQuantile{p: p, dn: [5]float64{0, p / 2, p, (1 + p) / 2, 1}}
}

func (ps *pSquareQuantile) Update(x float64) {
	ps.count++
	if ps.count <= 5 {
		ps.initBuffer[ps.count-1] = x
		if ps.count == 5 {
			ps.initialize()
		}
		return
	}

	var k int
	if x < ps.q[0] {
		ps.q[0] = x
		k = 0
	} else if x >= ps.q[4] {
		ps.q[4] = x
		k = 3
	} else {
		for k = 0; k < 4; k++ {
			if ps.q[k] <= x && x < ps.q[k+1] {
				break
			}
		}
	}

	for i := k + 1; i < 5; i++ {
		ps.n[i]++
	}
	for i := 0; i < 5; i++ {
		ps.np[i] += ps.dn[i]
	}

	for i := 1; i < 4; i++ {
		d := ps.np[i] - float64(ps.n[i])
		if (d >= 1 && ps.n[i+1]-ps.n[i] > 1) || (d <= -1 && ps.n[i-1]-ps.n[i] < -1) {
			sign := 1
			if d < 0 {
				sign = -1
			}
			qPrime := ps.parabolic(i, sign)
			if ps.q[i-1] < qPrime && qPrime < ps.q[i+1] {
				ps.q[i] = qPrime
			} else {
				ps.q[i] = ps.linear(i, sign)
			}
			ps.n[i] += sign
		}
	}
}

func (ps *pSquareQuantile) initialize() {
	for i := 1; i < 5; i++ {
		key := ps.initBuffer[i]
		j := i - 1
		for j >= 0 && ps.initBuffer[j] > key {
			ps.initBuffer[j+1] = ps.initBuffer[j]
			j--
		}
		ps.initBuffer[j+1] = key
	}
	for i := 0; i < 5; i++ {
		ps.q[i] = ps.initBuffer[i]
		ps.n[i] = i
	}
	ps.np = [5]float64{0, 2 * ps.p, 4 * ps.p, 2 + 2*ps.p, 4}
	ps.initialized = true
}

func (ps *pSquareQuantile) parabolic(i, d int) float64 {
	df := float64(d)
	ni := float64(ps.n[i])
	niPrev := float64(ps.n[i-1])
	niNext := float64(ps.n[i+1])
	term1 := df / (niNext - niPrev)
	term2 := (ni - niPrev + df) * (ps.q[i+1] - ps.q[i]) / (niNext - ni)
	term3 := (niNext - ni - df) * (ps.q[i] - ps.q[i-1]) / (ni - niPrev)
	return ps.q[i] + term1*(term2+term3)
}

func (ps *pSquareQuantile) linear(i, d int) float64 {
	if d == 1 {
		return ps.q[i] + (ps.q[i+1]-ps.q[i])/float64(ps.n[i+1]-ps.n[i])
	}
	return ps.q[i] - (ps.q[i]-ps.q[i-1])/float64(ps.n[i]-ps.n[i-1])
}

func (ps *pSquareQuantile) Quantile() float64 {
	if ps.count == 0 {
		return 0
	}
	if ps.count < 5 {
		sorted := make([]float64, ps.count)
		copy(sorted, ps.initBuffer[:ps.count])
		for i := 1; i < ps.count; i++ {
			key := sorted[i]
			j := i - 1
			for j >= 0 && sorted[j] > key {
				sorted[j+1] = sorted[j]
				j--
			}
			sorted[j+1] = key
		}
		index := int(float64(ps.count-1) * ps.p)
		if index >= ps.count {
			index = ps.count - 1
		}
		return sorted[index]
	}
	return ps.q[2]
}

// SLOEstimator is the windowed quantile signal §4.7 names as an admission
// input ("an SLO compliance signal (windowed quantile from the
// observability sink, refreshed periodically)"). Safe for concurrent use.
type SLOEstimator struct {
	mu        sync.Mutex
	estimator *pSquareQuantile
	budgetMS  float64
}

// NewSLOEstimator constructs an estimator tracking quantile p (e.g. 0.99)
// against a budget of budgetMS milliseconds.
func NewSLOEstimator(p float64, budgetMS float64) *SLOEstimator {
	return &SLOEstimator{estimator: newPSquareQuantile(p), budgetMS: budgetMS}
}

// Observe records one latency sample, in milliseconds.
func (e *SLOEstimator) Observe(latencyMS float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.estimator.Update(latencyMS)
}

// HeadroomHealthy reports whether the tracked quantile is still within
// budget.
func (e *SLOEstimator) HeadroomHealthy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.estimator.count == 0 {
		return true
	}
	return e.estimator.Quantile() <= e.budgetMS
}

// Quantile returns the current quantile estimate, in milliseconds.
func (e *SLOEstimator) Quantile() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.estimator.Quantile()
}
