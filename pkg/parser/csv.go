package parser

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/strings"
)

type scanState uint8

const (
	fieldStart scanState = iota
	unquoted
	quoted
	quoteInQuoted
)

type scanEvent uint8

const (
	eventNone scanEvent = iota
	eventDelimiter
	eventTerminator
)

// boundaryScanner tracks quote state byte by byte with the same rules
// encoding/csv applies under LazyQuotes. Its state survives between chunks.
type boundaryScanner struct {
	delim byte
	state scanState
}

func (s *boundaryScanner) step(c byte) scanEvent {
	switch s.state {
	case fieldStart, unquoted:
		switch {
		case c == s.delim:
			s.state = fieldStart
			return eventDelimiter
		case c == '\n':
			s.state = fieldStart
			return eventTerminator
		case c == '"' && s.state == fieldStart:
			s.state = quoted
		default:
			s.state = unquoted
		}
	case quoted:
		if c == '"' {
			s.state = quoteInQuoted
		}
	case quoteInQuoted:
		switch c {
		case '"':
			s.state = quoted
		case s.delim:
			s.state = fieldStart
			return eventDelimiter
		case '\n':
			s.state = fieldStart
			return eventTerminator
		case '\r':
			// Possibly the first half of a CRLF after a closing quote.
		default:
			// A bare quote inside a quoted field is literal.
			s.state = quoted
		}
	}
	return eventNone
}

// lastBoundary scans b and returns the offset just past its last record
// terminator, or -1 if b holds none.
func (s *boundaryScanner) lastBoundary(b []byte) int {
	last := -1
	for i, c := range b {
		if s.step(c) == eventTerminator {
			last = i + 1
		}
	}
	return last
}

// CSVReassembler reassembles delimited records. Complete records are
// tokenized with encoding/csv; only the unterminated tail is carried over.
type CSVReassembler struct {
	opts    Options
	bom     bomStripper
	scanner boundaryScanner
	pending []byte

	headerSeen bool
	columns    []string
	fields     [][]byte
	rec        Record
	stats      Stats
}

// NewCSVReassembler creates a reassembler for delimited text.
func NewCSVReassembler(opts Options) *CSVReassembler {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	return &CSVReassembler{
		opts:    opts,
		scanner: boundaryScanner{delim: opts.Delimiter},
	}
}

func (r *CSVReassembler) Feed(chunk []byte, emit EmitFunc) error {
	chunk = r.bom.strip(chunk)
	if len(chunk) == 0 {
		return nil
	}

	held := len(r.pending)
	buf := append(r.pending, chunk...)
	end := r.scanner.lastBoundary(buf[held:])
	if end < 0 {
		r.pending = buf
		r.stats.PendingBytes = len(buf)
		return pendingLimit(len(buf), r.opts.MaxPendingBytes)
	}
	end += held

	if err := r.tokenize(buf[:end], emit); err != nil {
		return err
	}
	r.pending = carry(buf, end)
	r.stats.PendingBytes = len(r.pending)
	return pendingLimit(len(r.pending), r.opts.MaxPendingBytes)
}

func (r *CSVReassembler) Finalize(emit EmitFunc) error {
	if head := r.bom.flush(); len(head) > 0 {
		r.pending = append(r.pending, head...)
	}
	if len(r.pending) == 0 {
		return nil
	}
	data := r.pending
	r.pending = nil
	r.stats.PendingBytes = 0
	return r.tokenize(data, emit)
}

func (r *CSVReassembler) Columns() []string { return r.columns }

func (r *CSVReassembler) Stats() Stats { return r.stats }

func (r *CSVReassembler) tokenize(data []byte, emit EmitFunc) error {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = rune(r.opts.Delimiter)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, errors.KindParse, "malformed delimited record").
				WithRecord(r.stats.Records)
		}
		if err := r.handle(row, emit); err != nil {
			return err
		}
	}
}

func (r *CSVReassembler) handle(row []string, emit EmitFunc) error {
	if !r.headerSeen {
		r.headerSeen = true
		if r.opts.HasHeader {
			r.columns = HeaderNames(row)
			return nil
		}
		r.columns = SyntheticNames(len(row))
	}

	n := len(r.columns)
	if len(row) != n {
		r.stats.FieldCountMismatches++
	}
	r.fields = r.fields[:0]
	for i := 0; i < n; i++ {
		if i < len(row) {
			r.fields = append(r.fields, strings.StringToBytes(row[i]))
		} else {
			r.fields = append(r.fields, nil)
		}
	}

	r.rec.Index = r.stats.Records
	r.rec.Fields = r.fields
	r.stats.Records++
	return emit(&r.rec)
}

// HeaderNames trims header tokens and makes them unique. Empty names become
// col_N for their one-based position.
func HeaderNames(row []string) []string {
	names := make([]string, len(row))
	taken := make(map[string]struct{}, len(row))
	for i, raw := range row {
		name := string(strings.TrimSpace([]byte(raw)))
		if name == "" {
			name = "col_" + strconv.Itoa(i+1)
		}
		name = strings.UniqueName(name, taken)
		taken[name] = struct{}{}
		names[i] = name
	}
	return names
}

// SyntheticNames returns col_1 through col_n.
func SyntheticNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = "col_" + strconv.Itoa(i+1)
	}
	return names
}
