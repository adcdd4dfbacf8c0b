package sketch

import (
	"github.com/bits-and-blooms/bloom/v3"
)

// DuplicateFilter flags records whose canonical bytes were already seen.
// False positives occur at the configured rate; false negatives do not.
type DuplicateFilter struct {
	filter     *bloom.BloomFilter
	duplicates int64
}

// NewDuplicateFilter sizes the filter for capacity records at the given
// false positive rate.
func NewDuplicateFilter(capacity uint, fpRate float64) *DuplicateFilter {
	return &DuplicateFilter{filter: bloom.NewWithEstimates(capacity, fpRate)}
}

// Observe adds a record and reports whether it was a duplicate.
func (d *DuplicateFilter) Observe(record []byte) bool {
	if d.filter.TestAndAdd(record) {
		d.duplicates++
		return true
	}
	return false
}

// Duplicates returns the number of records flagged so far.
func (d *DuplicateFilter) Duplicates() int64 { return d.duplicates }
