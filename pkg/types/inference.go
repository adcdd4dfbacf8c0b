package types

// Inference tallies token classes over a column's sample window.
type Inference struct {
	counts   [numClasses]int64
	observed int64
}

// Observe records one classified token.
func (in *Inference) Observe(c Class) {
	if c >= numClasses {
		c = ClassString
	}
	in.counts[c]++
	in.observed++
}

// Observed returns the number of tokens seen, missing included.
func (in *Inference) Observed() int64 { return in.observed }

// Present returns the number of non-missing tokens seen.
func (in *Inference) Present() int64 { return in.observed - in.counts[ClassMissing] }

// Count returns the tally for one class.
func (in *Inference) Count(c Class) int64 {
	if c >= numClasses {
		return 0
	}
	return in.counts[c]
}

// Reset clears the tallies for a fresh window.
func (in *Inference) Reset() { *in = Inference{} }

// Resolve picks the locked type. Candidates are tried from the most specific
// to String; the first whose share of present tokens exceeds threshold wins.
func (in *Inference) Resolve(threshold float64) DataType {
	present := in.Present()
	if present == 0 {
		return Empty
	}
	candidates := [...]struct {
		t       DataType
		matches int64
	}{
		{Boolean, in.counts[ClassBoolean]},
		{Integer, in.counts[ClassInteger]},
		{Numeric, in.counts[ClassInteger] + in.counts[ClassNumeric]},
		{Date, in.counts[ClassDate]},
		{DateTime, in.counts[ClassDate] + in.counts[ClassDateTime]},
		{String, in.counts[ClassString]},
	}
	for _, c := range candidates {
		if float64(c.matches)/float64(present) > threshold {
			return c.t
		}
	}
	return Mixed
}

// NumericShare is the fraction of present tokens that parsed as numbers.
func (in *Inference) NumericShare() float64 {
	present := in.Present()
	if present == 0 {
		return 0
	}
	return float64(in.counts[ClassInteger]+in.counts[ClassNumeric]) / float64(present)
}
