package parser

import (
	"bytes"
	"sort"

	"github.com/ajitpratap0/prism/pkg/json"
	"github.com/ajitpratap0/prism/pkg/strings"
)

// arrayScanner finds top-level elements of a JSON array by bracket depth. It
// tracks string and escape state so brackets inside strings are ignored.
type arrayScanner struct {
	depth    int
	inString bool
	escape   bool
	opened   bool
	closed   bool
	scalar   bool
}

// JSONReassembler reassembles records from a JSON array of objects or from
// JSON Lines, flattening each object into dot-separated columns.
type JSONReassembler struct {
	opts    Options
	bom     bomStripper
	scan    arrayScanner
	pending []byte
	// start is the offset in pending of the element being scanned, or -1.
	start int

	cols  columnSet
	stats Stats
}

// NewJSONReassembler creates a reassembler for opts.Format, which must be
// FormatJSONArray or FormatJSONLines.
func NewJSONReassembler(opts Options) *JSONReassembler {
	if opts.MaxNestedDepth <= 0 {
		opts.MaxNestedDepth = defaultMaxNestedDepth
	}
	return &JSONReassembler{
		opts:  opts,
		start: -1,
		cols:  newColumnSet(opts.MaxKeys),
	}
}

func (r *JSONReassembler) Feed(chunk []byte, emit EmitFunc) error {
	chunk = r.bom.strip(chunk)
	if len(chunk) == 0 {
		return nil
	}
	if r.opts.Format == FormatJSONLines {
		return r.feedLines(chunk, emit)
	}
	return r.feedArray(chunk, emit)
}

func (r *JSONReassembler) feedLines(chunk []byte, emit EmitFunc) error {
	held := len(r.pending)
	buf := append(r.pending, chunk...)
	end := bytes.LastIndexByte(buf[held:], '\n')
	if end < 0 {
		r.pending = buf
		r.stats.PendingBytes = len(buf)
		return pendingLimit(len(buf), r.opts.MaxPendingBytes)
	}
	end += held + 1

	complete := buf[:end]
	for len(complete) > 0 {
		line := complete
		if i := bytes.IndexByte(complete, '\n'); i >= 0 {
			line, complete = complete[:i], complete[i+1:]
		} else {
			complete = nil
		}
		if err := r.decodeLine(line, emit); err != nil {
			return err
		}
	}
	r.pending = carry(buf, end)
	r.stats.PendingBytes = len(r.pending)
	return pendingLimit(len(r.pending), r.opts.MaxPendingBytes)
}

func (r *JSONReassembler) decodeLine(line []byte, emit EmitFunc) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	return r.decode(line, emit)
}

func (r *JSONReassembler) feedArray(chunk []byte, emit EmitFunc) error {
	held := len(r.pending)
	buf := append(r.pending, chunk...)
	s := &r.scan

	for i := held; i < len(buf); i++ {
		c := buf[i]
		if s.inString {
			switch {
			case s.escape:
				s.escape = false
			case c == '\\':
				s.escape = true
			case c == '"':
				s.inString = false
			}
			continue
		}
		if s.closed {
			continue
		}
		if s.depth > 0 {
			switch c {
			case '"':
				s.inString = true
			case '{', '[':
				s.depth++
			case '}', ']':
				s.depth--
				if s.depth == 0 {
					if err := r.decode(buf[r.start:i+1], emit); err != nil {
						return err
					}
					r.start = -1
				}
			}
			continue
		}

		switch c {
		case ' ', '\t', '\r', '\n':
		case '[':
			if !s.opened {
				s.opened = true
				continue
			}
			s.depth, r.start, s.scalar = 1, i, false
		case '{':
			s.depth, r.start, s.scalar = 1, i, false
		case ',':
			s.scalar = false
		case ']':
			s.closed = true
		default:
			// A scalar element is not a record.
			if !s.scalar {
				s.scalar = true
				r.stats.MalformedRecords++
			}
			if c == '"' {
				s.inString = true
			}
		}
	}

	if r.start >= 0 {
		r.pending = carry(buf, r.start)
		r.start = 0
	} else {
		r.pending = carry(buf, len(buf))
	}
	r.stats.PendingBytes = len(r.pending)
	return pendingLimit(len(r.pending), r.opts.MaxPendingBytes)
}

func (r *JSONReassembler) Finalize(emit EmitFunc) error {
	if head := r.bom.flush(); len(head) > 0 {
		if err := r.Feed(head, emit); err != nil {
			return err
		}
	}
	defer func() {
		r.pending = nil
		r.stats.PendingBytes = 0
	}()

	if r.opts.Format == FormatJSONLines {
		return r.decodeLine(r.pending, emit)
	}
	if r.start >= 0 {
		// Unterminated element.
		r.stats.MalformedRecords++
		r.start = -1
	}
	return nil
}

func (r *JSONReassembler) Columns() []string { return r.cols.columns }

func (r *JSONReassembler) Stats() Stats { return r.stats }

func (r *JSONReassembler) decode(raw []byte, emit EmitFunc) error {
	v, err := json.DecodeValue(raw)
	obj, ok := v.(map[string]interface{})
	if err != nil || !ok {
		r.stats.MalformedRecords++
		return nil
	}

	r.cols.begin()
	r.flatten("", obj, 1)

	rec := r.cols.record(r.stats.Records)
	r.stats.Records++
	return emit(rec)
}

func (r *JSONReassembler) flatten(prefix string, obj map[string]interface{}, depth int) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cs := &r.cols
	for _, k := range keys {
		name := joinKey(prefix, k)
		switch v := obj[k].(type) {
		case map[string]interface{}:
			if depth < r.opts.MaxNestedDepth {
				r.flatten(name, v, depth+1)
				continue
			}
			cs.set(name, objectToken, -1)
		case []interface{}:
			cs.setArray(name, len(v))
		case string:
			cs.set(name, strings.StringToBytes(v), -1)
		case json.Number:
			cs.set(name, strings.StringToBytes(string(v)), -1)
		case bool:
			if v {
				cs.set(name, trueToken, -1)
			} else {
				cs.set(name, falseToken, -1)
			}
		default:
			cs.set(name, nil, -1)
		}
	}
}
