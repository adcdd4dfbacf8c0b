package parser

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/types"
)

// Candidates are the delimiters the sniffer considers, in tie-break order.
var Candidates = []byte{',', '\t', ';', '|'}

const (
	maxSniffLines  = 1000
	maxHeaderLines = 50
)

// Dialect describes how an input is to be read.
type Dialect struct {
	Format    Format
	Delimiter byte
	HasHeader bool
}

// DetectFormat classifies a sample by the Avro container magic or else by
// its first non-whitespace byte.
func DetectFormat(sample []byte) Format {
	if bytes.HasPrefix(sample, avroMagic) {
		return FormatAvro
	}
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(sample, utf8BOM), " \t\r\n")
	if len(trimmed) > 0 {
		switch trimmed[0] {
		case '[':
			return FormatJSONArray
		case '{':
			return FormatJSONLines
		}
	}
	return FormatCSV
}

type candidateScore struct {
	delim     byte
	counts    []int
	modal     int
	modalFreq int
	variance  float64
}

// SniffDelimited picks the delimiter whose per-line field count is most
// consistent over the sample and guesses whether the first line is a header.
// atEOF reports that the sample is the whole input, so a trailing line
// without a terminator is complete.
func SniffDelimited(sample []byte, atEOF bool) (Dialect, error) {
	sample = bytes.TrimPrefix(sample, utf8BOM)
	if len(bytes.TrimSpace(sample)) == 0 {
		return Dialect{}, errors.New(errors.KindParse, "cannot sniff an empty sample")
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return Dialect{}, errors.New(errors.KindParse, "sample contains NUL bytes; input looks binary")
	}

	var best *candidateScore
	for _, delim := range Candidates {
		sc := scoreCandidate(sample, delim, atEOF)
		if sc.modal <= 1 {
			continue
		}
		if best == nil || better(sc, best) {
			best = sc
		}
	}
	if best == nil {
		// Single column input.
		best = scoreCandidate(sample, ',', atEOF)
	}
	if len(best.counts) == 0 || 2*best.modalFreq < len(best.counts) {
		return Dialect{}, errors.New(errors.KindParse, "ambiguous structure: no delimiter yields consistent field counts").
			WithDetail("delimiter", string(best.delim)).
			WithDetail("lines", len(best.counts))
	}

	return Dialect{
		Format:    FormatCSV,
		Delimiter: best.delim,
		HasHeader: guessHeader(sampleRows(sample, best.delim, atEOF)),
	}, nil
}

func better(a, b *candidateScore) bool {
	if a.variance != b.variance {
		return a.variance < b.variance
	}
	return a.modal > b.modal
}

// scoreCandidate counts fields per non-blank line under the quote rules of
// the reassembler. A trailing unterminated line counts only at EOF or when
// it is the only line.
func scoreCandidate(sample []byte, delim byte, atEOF bool) *candidateScore {
	sc := &candidateScore{delim: delim}
	s := boundaryScanner{delim: delim}
	fields, blank := 1, true
	for _, c := range sample {
		switch s.step(c) {
		case eventDelimiter:
			fields++
			blank = false
		case eventTerminator:
			if !blank {
				sc.counts = append(sc.counts, fields)
			}
			fields, blank = 1, true
		default:
			if c != '\r' && c != ' ' && c != '\t' {
				blank = false
			}
		}
		if len(sc.counts) == maxSniffLines {
			break
		}
	}
	if !blank && (atEOF || len(sc.counts) == 0) && len(sc.counts) < maxSniffLines {
		sc.counts = append(sc.counts, fields)
	}

	freq := make(map[int]int)
	var sum float64
	for _, n := range sc.counts {
		freq[n]++
		sum += float64(n)
	}
	for n, f := range freq {
		if f > sc.modalFreq || (f == sc.modalFreq && n > sc.modal) {
			sc.modal, sc.modalFreq = n, f
		}
	}
	if len(sc.counts) > 0 {
		mean := sum / float64(len(sc.counts))
		for _, n := range sc.counts {
			d := float64(n) - mean
			sc.variance += d * d
		}
		sc.variance /= float64(len(sc.counts))
	}
	return sc
}

// sampleRows tokenizes the leading complete lines of the sample.
func sampleRows(sample []byte, delim byte, atEOF bool) [][]string {
	data := sample
	if !atEOF {
		s := boundaryScanner{delim: delim}
		if end := s.lastBoundary(sample); end > 0 {
			data = sample[:end]
		}
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = rune(delim)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	var rows [][]string
	for len(rows) < maxHeaderLines {
		row, err := cr.Read()
		if err == io.EOF || err != nil {
			break
		}
		rows = append(rows, row)
	}
	return rows
}

func isNumericToken(tok string) bool {
	c, _ := types.Classify([]byte(tok))
	return c == types.ClassInteger || c == types.ClassNumeric
}

// guessHeader treats the first row as a header when some position holds a
// non-numeric name above mostly numeric values. Without numeric evidence the
// first row is a header when its tokens are distinct, present, and never
// recur in their column.
func guessHeader(rows [][]string) bool {
	if len(rows) == 0 {
		return false
	}
	if len(rows) == 1 {
		return true
	}
	first, rest := rows[0], rows[1:]

	for i, name := range first {
		if types.IsMissing([]byte(name)) || isNumericToken(name) {
			continue
		}
		present, numeric := 0, 0
		for _, row := range rest {
			if i >= len(row) || types.IsMissing([]byte(row[i])) {
				continue
			}
			present++
			if isNumericToken(row[i]) {
				numeric++
			}
		}
		if present > 0 && 2*numeric >= present {
			return true
		}
	}

	seen := make(map[string]struct{}, len(first))
	for _, name := range first {
		if types.IsMissing([]byte(name)) || isNumericToken(name) {
			return false
		}
		if _, dup := seen[name]; dup {
			return false
		}
		seen[name] = struct{}{}
	}
	for _, row := range rest {
		for i, tok := range row {
			if i < len(first) && tok == first[i] {
				return false
			}
		}
	}
	return true
}
