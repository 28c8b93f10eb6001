package util

import "math"

// Band is a closed percentage range [Start, End] that one processing stage
// occupies in the overall progress of a run.
type Band struct {
	Start float64
	End   float64
}

// At maps a stage-local fraction in [0, 1] to an overall percentage.
func (b Band) At(fraction float64) float64 {
	if math.IsNaN(fraction) || fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return b.Start + (b.End-b.Start)*fraction
}

// Fraction returns done/total clamped to [0, 1]; 1 when total is not positive.
func Fraction(done, total int) float64 {
	if total <= 0 {
		return 1
	}
	f := float64(done) / float64(total)
	return math.Max(0, math.Min(1, f))
}

// Monotonic clamps a stream of percentages so it never decreases and stays
// within [0, 100]. The zero value is ready to use.
type Monotonic struct {
	last float64
}

// Next returns max(previous, p) bounded to [0, 100].
func (m *Monotonic) Next(p float64) float64 {
	if math.IsNaN(p) {
		p = m.last
	}
	p = math.Max(0, math.Min(100, p))
	if p < m.last {
		return m.last
	}
	m.last = p
	return p
}
