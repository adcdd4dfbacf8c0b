package accumulator

import (
	"math"

	"github.com/ajitpratap0/prism/pkg/types"
)

type comoment struct {
	n            float64
	meanX, meanY float64
	m2X, m2Y     float64
	c            float64
}

func (p *comoment) observe(x, y float64) {
	p.n++
	dx := x - p.meanX
	p.meanX += dx / p.n
	dy := y - p.meanY
	p.meanY += dy / p.n
	p.m2X += dx * (x - p.meanX)
	p.m2Y += dy * (y - p.meanY)
	p.c += dx * (y - p.meanY)
}

// Correlation accumulates pairwise Pearson co-moments over the leading
// columns of each record. Only pairs where both tokens parse as numbers
// contribute, so the result does not depend on type locking.
type Correlation struct {
	width int
	pairs []comoment
	vals  []float64
	ok    []bool
}

// NewCorrelation tracks every pair among the first width columns.
func NewCorrelation(width int) *Correlation {
	if width < 0 {
		width = 0
	}
	return &Correlation{
		width: width,
		pairs: make([]comoment, width*width),
		vals:  make([]float64, width),
		ok:    make([]bool, width),
	}
}

// Observe folds one record.
func (c *Correlation) Observe(fields [][]byte) {
	n := len(fields)
	if n > c.width {
		n = c.width
	}
	for i := 0; i < n; i++ {
		c.vals[i], c.ok[i] = types.ParseNumber(fields[i])
	}
	for i := 0; i < n; i++ {
		if !c.ok[i] {
			continue
		}
		for j := i + 1; j < n; j++ {
			if c.ok[j] {
				c.pairs[i*c.width+j].observe(c.vals[i], c.vals[j])
			}
		}
	}
}

// Pair is the correlation of two columns by ordinal.
type Pair struct {
	A, B int
	R    float64
	N    int64
}

// Pairs returns the coefficient of every pair accepted by include that has at
// least two joint observations and non-zero variance on both sides. R is
// rounded to four decimals.
func (c *Correlation) Pairs(include func(ordinal int) bool) []Pair {
	var out []Pair
	for i := 0; i < c.width; i++ {
		if !include(i) {
			continue
		}
		for j := i + 1; j < c.width; j++ {
			p := c.pairs[i*c.width+j]
			if p.n < 2 || p.m2X == 0 || p.m2Y == 0 || !include(j) {
				continue
			}
			r := p.c / math.Sqrt(p.m2X*p.m2Y)
			r = math.Max(-1, math.Min(1, r))
			out = append(out, Pair{A: i, B: j, R: math.Round(r*1e4) / 1e4, N: int64(p.n)})
		}
	}
	return out
}
