package sketch

import (
	"fmt"

	"github.com/axiomhq/hyperloglog"
)

// Register bit bounds accepted by the HyperLogLog implementation.
const (
	MinRegisterBits = 4
	MaxRegisterBits = 18
)

// Cardinality estimates the number of distinct values with a HyperLogLog
// register array of 2^bits entries.
type Cardinality struct {
	hll *hyperloglog.Sketch
}

// NewCardinality creates a sketch with 2^bits registers. Sparse encoding is
// used until the register array would be smaller.
func NewCardinality(bits int) (*Cardinality, error) {
	if bits < MinRegisterBits || bits > MaxRegisterBits {
		return nil, fmt.Errorf("register bits must be within [%d, %d], got %d", MinRegisterBits, MaxRegisterBits, bits)
	}
	hll, err := hyperloglog.NewSketch(uint8(bits), true)
	if err != nil {
		return nil, err
	}
	return &Cardinality{hll: hll}, nil
}

// Insert hashes and records one value. The slice is not retained.
func (c *Cardinality) Insert(v []byte) { c.hll.Insert(v) }

// Estimate returns the bias-corrected distinct count.
func (c *Cardinality) Estimate() uint64 { return c.hll.Estimate() }
