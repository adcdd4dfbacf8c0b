// Package parser turns a stream of arbitrary byte chunks into complete
// logical records for Prism. It holds at most one partial record between
// chunks and never retains a record after handing it to the caller.
package parser

import (
	"bytes"

	"github.com/ajitpratap0/prism/pkg/errors"
)

// Format identifies the record syntax of an input.
type Format string

const (
	FormatCSV       Format = "csv"
	FormatJSONArray Format = "json_array"
	FormatJSONLines Format = "jsonl"
	FormatAvro      Format = "avro"
)

// IsJSON reports whether f is one of the JSON formats.
func (f Format) IsJSON() bool {
	return f == FormatJSONArray || f == FormatJSONLines
}

// Record is one logical row. Fields are positioned by column ordinal; a nil
// field is absent. Fields and ArrayLens are only valid until the emit function
// returns.
type Record struct {
	Index  int64
	Fields [][]byte
	// ArrayLens holds the element count of fields flattened from JSON arrays,
	// -1 elsewhere. Nil for delimited input.
	ArrayLens []int
}

// Canonical appends a byte encoding of the record to dst that is equal for
// equal records.
func (r *Record) Canonical(dst []byte) []byte {
	for i, f := range r.Fields {
		if i > 0 {
			dst = append(dst, 0x1f)
		}
		dst = append(dst, f...)
	}
	return dst
}

// EmitFunc receives each complete record. A non-nil error stops the feed and
// is returned to its caller unchanged.
type EmitFunc func(*Record) error

// Stats are the anomaly counters of a reassembler.
type Stats struct {
	Records              int64
	FieldCountMismatches int64
	MalformedRecords     int64
	PendingBytes         int
}

// Reassembler converts chunks into records, carrying the unterminated tail of
// each chunk into the next.
type Reassembler interface {
	// Feed consumes one chunk. An empty chunk is a no-op.
	Feed(chunk []byte, emit EmitFunc) error
	// Finalize flushes the pending tail as a final record if non-empty.
	Finalize(emit EmitFunc) error
	// Columns returns the column names discovered so far. JSON inputs may
	// append to it as new keys appear.
	Columns() []string
	Stats() Stats
}

// Options configures New.
type Options struct {
	Format          Format
	Delimiter       byte
	HasHeader       bool
	MaxPendingBytes int
	MaxNestedDepth  int
	MaxKeys         int
}

// New returns the reassembler for opts.Format.
func New(opts Options) (Reassembler, error) {
	switch opts.Format {
	case FormatCSV:
		return NewCSVReassembler(opts), nil
	case FormatJSONArray, FormatJSONLines:
		return NewJSONReassembler(opts), nil
	case FormatAvro:
		return NewAvroReassembler(opts), nil
	}
	return nil, errors.Newf(errors.KindInternal, "unsupported record format %q", opts.Format)
}

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// minCarryCap is the pending buffer capacity that is always kept for reuse.
const minCarryCap = 64 << 10

// carry moves buf[from:] to the front for the next feed. Storage grown for a
// large chunk is dropped once the tail needs only a fraction of it.
func carry(buf []byte, from int) []byte {
	tail := buf[from:]
	if cap(buf) <= minCarryCap || cap(buf) <= 4*len(tail) {
		return append(buf[:0], tail...)
	}
	if len(tail) == 0 {
		return nil
	}
	out := make([]byte, len(tail), 2*len(tail))
	copy(out, tail)
	return out
}

func pendingLimit(buffered, limit int) error {
	if limit > 0 && buffered > limit {
		return errors.Newf(errors.KindResourceExhausted,
			"partial record exceeds %d pending bytes", limit).
			WithDetail("pending_bytes", buffered)
	}
	return nil
}

// bomStripper drops a UTF-8 byte order mark at the very start of the input,
// even when it is split across chunks.
type bomStripper struct {
	head []byte
	done bool
}

// strip returns the bytes to process. It returns nil while the chunks seen so
// far are still a prefix of the mark.
func (b *bomStripper) strip(chunk []byte) []byte {
	if b.done {
		return chunk
	}
	b.head = append(b.head, chunk...)
	if len(b.head) < len(utf8BOM) && bytes.HasPrefix(utf8BOM, b.head) {
		return nil
	}
	b.done = true
	out := bytes.TrimPrefix(b.head, utf8BOM)
	b.head = nil
	return out
}

// flush returns a held partial prefix at end of input.
func (b *bomStripper) flush() []byte {
	if b.done {
		return nil
	}
	b.done = true
	out := b.head
	b.head = nil
	return out
}
