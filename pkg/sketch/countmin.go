package sketch

import (
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// CountMin is a count-min frequency sketch with conservative update. Counts
// may overestimate on hash collisions and never underestimate.
type CountMin struct {
	depth, width uint32
	counters     [][]uint32
}

// NewCountMin creates a sketch of depth rows with width counters each.
func NewCountMin(width, depth int) (*CountMin, error) {
	if width <= 0 || depth <= 0 {
		return nil, fmt.Errorf("count-min dimensions must be positive, got %dx%d", width, depth)
	}
	counters := make([][]uint32, depth)
	for i := range counters {
		counters[i] = make([]uint32, width)
	}
	return &CountMin{depth: uint32(depth), width: uint32(width), counters: counters}, nil
}

// hashn splits one 64-bit hash into the two halves used for double hashing
// across rows.
func hashn(v []byte) (uint32, uint32) {
	h := xxhash.Sum64(v)
	return uint32(h), uint32(h >> 32)
}

func (s *CountMin) pos(h1, h2, row uint32) uint32 {
	return (h1 + row*h2) % s.width
}

// Increment conservatively adds one occurrence of v and returns the new
// estimate: only counters below the new minimum are raised.
func (s *CountMin) Increment(v []byte) uint32 {
	h1, h2 := hashn(v)
	min := uint32(math.MaxUint32)
	for i := uint32(0); i < s.depth; i++ {
		if c := s.counters[i][s.pos(h1, h2, i)]; c < min {
			min = c
		}
	}
	if min < math.MaxUint32 {
		min++
	}
	for i := uint32(0); i < s.depth; i++ {
		p := s.pos(h1, h2, i)
		if s.counters[i][p] < min {
			s.counters[i][p] = min
		}
	}
	return min
}

// Count returns the estimated number of occurrences of v.
func (s *CountMin) Count(v []byte) uint32 {
	h1, h2 := hashn(v)
	min := uint32(math.MaxUint32)
	for i := uint32(0); i < s.depth; i++ {
		if c := s.counters[i][s.pos(h1, h2, i)]; c < min {
			min = c
		}
	}
	return min
}
