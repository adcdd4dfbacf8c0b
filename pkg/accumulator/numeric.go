package accumulator

import (
	"math"

	"github.com/ajitpratap0/prism/pkg/sketch"
)

// numericState keeps single-pass moments with Welford's recurrence extended
// to the third and fourth central moments.
type numericState struct {
	n          float64
	mean       float64
	m2, m3, m4 float64
	min, max   float64
	sketch     sketch.QuantileSketch
}

func newNumericState(q sketch.QuantileSketch) *numericState {
	return &numericState{
		min:    math.Inf(1),
		max:    math.Inf(-1),
		sketch: q,
	}
}

// observe folds x. Callers only pass finite values: coercion rejects inf,
// nan and overflowing literals.
func (s *numericState) observe(x float64) {
	n1 := s.n
	s.n++
	n := s.n

	delta := x - s.mean
	deltaN := delta / n
	deltaN2 := deltaN * deltaN
	term1 := delta * deltaN * n1

	s.mean += deltaN
	s.m4 += term1*deltaN2*(n*n-3*n+3) + 6*deltaN2*s.m2 - 4*deltaN*s.m3
	s.m3 += term1*deltaN*(n-2) - 3*deltaN*s.m2
	s.m2 += term1

	if x < s.min {
		s.min = x
	}
	if x > s.max {
		s.max = x
	}
	s.sketch.Add(x)
}

// NumericSummary holds the final moments of a numeric column. Sketch answers
// quantile and CDF queries at report time.
type NumericSummary struct {
	Count    int64
	Mean     float64
	Variance float64
	StdDev   float64
	Skewness float64
	Kurtosis float64
	Min      float64
	Max      float64
	Sketch   sketch.QuantileSketch
}

func (s *numericState) summary() *NumericSummary {
	if s.n == 0 {
		return nil
	}
	out := &NumericSummary{
		Count:  int64(s.n),
		Mean:   s.mean,
		Min:    s.min,
		Max:    s.max,
		Sketch: s.sketch,
	}
	if s.n > 1 {
		out.Variance = s.m2 / (s.n - 1)
		out.StdDev = math.Sqrt(out.Variance)
	}
	if s.m2 != 0 {
		m2n := s.m2 / s.n
		out.Skewness = (s.m3 / s.n) / math.Pow(m2n, 1.5)
		out.Kurtosis = (s.m4 / s.n) / (m2n * m2n)
	}
	return out
}
