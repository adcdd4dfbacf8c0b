package report

import (
	"math"

	"github.com/ajitpratap0/prism/pkg/accumulator"
)

// BinCount picks clamp(ceil(log2(n)+1), minBins, maxBins).
func BinCount(n int64, minBins, maxBins int) int {
	if n < 1 {
		return minBins
	}
	k := int(math.Ceil(math.Log2(float64(n)) + 1))
	if k < minBins {
		k = minBins
	}
	if k > maxBins {
		k = maxBins
	}
	return k
}

// buildHistogram splits [min,max] into equal-width bins and assigns each bin
// the sketch mass between its edges. Masses are rounded on the cumulative
// distribution so the bins always sum to the value count.
func buildHistogram(ns *accumulator.NumericSummary, minBins, maxBins int) *Histogram {
	if ns == nil || ns.Count == 0 {
		return nil
	}
	if ns.Min == ns.Max {
		return &Histogram{Bins: []Bin{{RangeStart: ns.Min, RangeEnd: ns.Max, Count: ns.Count}}}
	}

	k := BinCount(ns.Count, minBins, maxBins)
	width := (ns.Max - ns.Min) / float64(k)
	total := float64(ns.Count)
	bins := make([]Bin, k)

	var prevCum int64
	var prevCDF float64
	for i := range bins {
		lo := ns.Min + float64(i)*width
		hi := ns.Min + float64(i+1)*width
		cdf := 1.0
		if i == k-1 {
			hi = ns.Max
		} else {
			cdf = math.Max(prevCDF, math.Min(1, ns.Sketch.CDF(hi)))
		}
		cum := int64(math.Round(cdf * total))
		bins[i] = Bin{RangeStart: lo, RangeEnd: hi, Count: cum - prevCum}
		prevCum, prevCDF = cum, cdf
	}
	return &Histogram{Bins: bins}
}

var quantilePoints = [...]float64{0.25, 0.5, 0.75, 0.9, 0.95, 0.99}

func numericStats(ns *accumulator.NumericSummary) *NumericStats {
	if ns == nil {
		return nil
	}
	var q [len(quantilePoints)]float64
	for i, p := range quantilePoints {
		v := ns.Sketch.Quantile(p)
		if math.IsNaN(v) {
			v = ns.Min
		}
		q[i] = math.Max(ns.Min, math.Min(ns.Max, v))
	}
	return &NumericStats{
		Mean:     ns.Mean,
		StdDev:   ns.StdDev,
		Variance: ns.Variance,
		Skewness: ns.Skewness,
		Kurtosis: ns.Kurtosis,
		Min:      ns.Min,
		Max:      ns.Max,
		P25:      q[0],
		P50:      q[1],
		P75:      q[2],
		P90:      q[3],
		P95:      q[4],
		P99:      q[5],
	}
}
