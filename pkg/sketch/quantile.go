// Package sketch provides the bounded-memory estimators behind column
// profiling: quantile sketches, the distinct-count sketch, the frequency
// sketch with its top-K heap, and the duplicate-row filter.
package sketch

import (
	"fmt"
	"math"

	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/influxdata/tdigest"
)

// Quantile backend names accepted by NewQuantile.
const (
	BackendTDigest  = "tdigest"
	BackendDDSketch = "ddsketch"
)

// QuantileSketch estimates the distribution of a stream of finite values.
type QuantileSketch interface {
	Add(x float64)
	// Quantile returns the estimated value at rank q in [0, 1].
	Quantile(q float64) float64
	// CDF returns the estimated fraction of values less than or equal to x.
	CDF(x float64) float64
	Count() float64
}

// QuantileFactory builds an empty sketch.
type QuantileFactory func() QuantileSketch

// NewQuantileFactory returns a factory for the named backend. capacity is the
// t-digest compression and accuracy the DDSketch relative accuracy.
func NewQuantileFactory(backend string, capacity int, accuracy float64) (QuantileFactory, error) {
	switch backend {
	case "", BackendTDigest:
		if capacity <= 0 {
			return nil, fmt.Errorf("t-digest capacity must be positive, got %d", capacity)
		}
		return func() QuantileSketch { return NewTDigest(float64(capacity)) }, nil
	case BackendDDSketch:
		if accuracy <= 0 || accuracy >= 1 {
			return nil, fmt.Errorf("ddsketch accuracy must be within (0, 1), got %v", accuracy)
		}
		if _, err := ddsketch.NewDefaultDDSketch(accuracy); err != nil {
			return nil, err
		}
		return func() QuantileSketch { return NewDDSketch(accuracy) }, nil
	}
	return nil, fmt.Errorf("unknown quantile backend %q", backend)
}

// TDigest is a merging t-digest: a bounded list of weighted centroids that is
// most precise at the tails.
type TDigest struct {
	digest *tdigest.TDigest
}

// NewTDigest creates a t-digest with the given compression.
func NewTDigest(compression float64) *TDigest {
	return &TDigest{digest: tdigest.NewWithCompression(compression)}
}

func (t *TDigest) Add(x float64) { t.digest.Add(x, 1) }

func (t *TDigest) Quantile(q float64) float64 { return t.digest.Quantile(clampUnit(q)) }

func (t *TDigest) CDF(x float64) float64 { return t.digest.CDF(x) }

func (t *TDigest) Count() float64 { return t.digest.Count() }

// DDSketch is a relative-error quantile sketch with logarithmic buckets.
type DDSketch struct {
	sketch *ddsketch.DDSketch
	min    float64
	max    float64
}

// NewDDSketch creates a sketch with the given relative accuracy. The accuracy
// must already have been validated.
func NewDDSketch(accuracy float64) *DDSketch {
	s, _ := ddsketch.NewDefaultDDSketch(accuracy)
	return &DDSketch{sketch: s, min: math.Inf(1), max: math.Inf(-1)}
}

func (d *DDSketch) Add(x float64) {
	if err := d.sketch.Add(x); err != nil {
		return
	}
	d.min = math.Min(d.min, x)
	d.max = math.Max(d.max, x)
}

func (d *DDSketch) Quantile(q float64) float64 {
	v, err := d.sketch.GetValueAtQuantile(clampUnit(q))
	if err != nil {
		return math.NaN()
	}
	return v
}

// CDF inverts Quantile by bisection on the rank.
func (d *DDSketch) CDF(x float64) float64 {
	if d.sketch.IsEmpty() || x < d.min {
		return 0
	}
	if x >= d.max {
		return 1
	}
	lo, hi := 0.0, 1.0
	for i := 0; i < 40; i++ {
		mid := (lo + hi) / 2
		if d.Quantile(mid) <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

func (d *DDSketch) Count() float64 { return d.sketch.GetCount() }

func clampUnit(q float64) float64 {
	switch {
	case q < 0:
		return 0
	case q > 1:
		return 1
	}
	return q
}
