package parser

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/prism/pkg/errors"
)

// collect feeds chunks and returns every record as strings, with absent
// fields rendered as "<nil>".
func collect(t *testing.T, r Reassembler, chunks ...[]byte) [][]string {
	t.Helper()
	var out [][]string
	emit := func(rec *Record) error {
		row := make([]string, len(rec.Fields))
		for i, f := range rec.Fields {
			if f == nil {
				row[i] = "<nil>"
			} else {
				row[i] = string(f)
			}
		}
		out = append(out, row)
		return nil
	}
	for _, c := range chunks {
		require.NoError(t, r.Feed(c, emit))
	}
	require.NoError(t, r.Finalize(emit))
	return out
}

func splitAt(data string, cuts ...int) [][]byte {
	var chunks [][]byte
	prev := 0
	for _, c := range cuts {
		chunks = append(chunks, []byte(data[prev:c]))
		prev = c
	}
	return append(chunks, []byte(data[prev:]))
}

func csvOptions(header bool) Options {
	return Options{Format: FormatCSV, Delimiter: ',', HasHeader: header}
}

func TestCSVSingleChunk(t *testing.T) {
	r := NewCSVReassembler(csvOptions(true))
	rows := collect(t, r, []byte("a,b\n1,x\n2,y\n,z\n"))

	assert.Equal(t, []string{"a", "b"}, r.Columns())
	assert.Equal(t, [][]string{{"1", "x"}, {"2", "y"}, {"<nil>", "z"}}, rows)
	assert.Equal(t, int64(3), r.Stats().Records)
}

func TestCSVEverySplitPointYieldsSameRecords(t *testing.T) {
	data := "id,note\r\n1,\"hello, world\"\r\n2,\"multi\nline\"\r\n3,\"say \"\"hi\"\"\"\r\n4,last"
	want := collect(t, NewCSVReassembler(csvOptions(true)), []byte(data))
	require.Len(t, want, 4)
	assert.Equal(t, []string{"2", "multi\nline"}, want[1])
	assert.Equal(t, []string{"3", `say "hi"`}, want[2])

	for cut := 1; cut < len(data); cut++ {
		got := collect(t, NewCSVReassembler(csvOptions(true)), splitAt(data, cut)...)
		require.Equal(t, want, got, "cut at %d", cut)
	}
	for size := 1; size <= 7; size++ {
		var cuts []int
		for c := size; c < len(data); c += size {
			cuts = append(cuts, c)
		}
		got := collect(t, NewCSVReassembler(csvOptions(true)), splitAt(data, cuts...)...)
		require.Equal(t, want, got, "chunk size %d", size)
	}
}

func TestCSVTerminatorSplitAcrossChunks(t *testing.T) {
	r := NewCSVReassembler(csvOptions(false))
	var n int
	emit := func(*Record) error { n++; return nil }

	require.NoError(t, r.Feed([]byte("1,2\r"), emit))
	assert.Zero(t, n)
	assert.Equal(t, 4, r.Stats().PendingBytes)
	require.NoError(t, r.Feed([]byte("\n3,4"), emit))
	assert.Equal(t, 1, n)
	require.NoError(t, r.Finalize(emit))
	assert.Equal(t, 2, n)
}

func TestCSVEmptyChunkIsNoop(t *testing.T) {
	r := NewCSVReassembler(csvOptions(true))
	rows := collect(t, r, []byte("a\n"), nil, []byte{}, []byte("1\n"), []byte{})
	assert.Equal(t, [][]string{{"1"}}, rows)
}

func TestCSVChunkWithoutTerminatorOnlyGrowsTail(t *testing.T) {
	r := NewCSVReassembler(csvOptions(false))
	emit := func(*Record) error { t.Fatal("unexpected record"); return nil }
	require.NoError(t, r.Feed([]byte(`1,"open`), emit))
	require.NoError(t, r.Feed([]byte("\nstill open"), emit))
	assert.Equal(t, len("1,\"open\nstill open"), r.Stats().PendingBytes)
}

func TestCSVFieldCountMismatch(t *testing.T) {
	r := NewCSVReassembler(csvOptions(true))
	rows := collect(t, r, []byte("a,b,c\n1,2,3\n4,5\n6,7,8,9\n\n10,11,12\n"))

	assert.Equal(t, [][]string{
		{"1", "2", "3"},
		{"4", "5", "<nil>"},
		{"6", "7", "8"},
		{"10", "11", "12"},
	}, rows)
	assert.Equal(t, int64(2), r.Stats().FieldCountMismatches)
}

func TestCSVHeaderless(t *testing.T) {
	r := NewCSVReassembler(Options{Format: FormatCSV, Delimiter: '\t'})
	rows := collect(t, r, []byte("1\t2\n3\t4\n"))
	assert.Equal(t, []string{"col_1", "col_2"}, r.Columns())
	assert.Len(t, rows, 2)
}

func TestCSVHeaderNamesAreUnique(t *testing.T) {
	assert.Equal(t, []string{"id", "id_2", "col_3", "name", "id_3"}, HeaderNames([]string{"id", "id", " ", " name ", "id"}))
}

func TestCSVByteOrderMarkSplit(t *testing.T) {
	data := "\xef\xbb\xbfname\nx\n"
	r := NewCSVReassembler(csvOptions(true))
	collect(t, r, splitAt(data, 1, 2)...)
	assert.Equal(t, []string{"name"}, r.Columns())
}

func TestCSVPendingLimit(t *testing.T) {
	opts := csvOptions(false)
	opts.MaxPendingBytes = 8
	r := NewCSVReassembler(opts)
	emit := func(*Record) error { return nil }

	require.NoError(t, r.Feed([]byte("1,2\nabc"), emit))
	err := r.Feed([]byte("defghij"), emit)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindResourceExhausted))
	assert.True(t, errors.IsRecoverable(err))
}

func TestPendingTailReleasesLargeChunks(t *testing.T) {
	big := bytes.Repeat([]byte("12345,abcdef\n"), 1<<16)
	emit := func(*Record) error { return nil }

	r := NewCSVReassembler(csvOptions(false))
	require.NoError(t, r.Feed(append(big, "7,par"...), emit))
	assert.Equal(t, "7,par", string(r.pending))
	assert.LessOrEqual(t, cap(r.pending), 2*len("7,par"))

	require.NoError(t, r.Feed([]byte("tial\n"), emit))
	assert.Empty(t, r.pending)

	lines := NewJSONReassembler(Options{Format: FormatJSONLines})
	require.NoError(t, lines.Feed(append(bytes.Repeat([]byte("{\"a\":1}\n"), 1<<16), `{"a"`...), emit))
	assert.Equal(t, `{"a"`, string(lines.pending))
	assert.LessOrEqual(t, cap(lines.pending), 8)

	array := NewJSONReassembler(Options{Format: FormatJSONArray})
	require.NoError(t, array.Feed(append([]byte("["), bytes.Repeat([]byte(`{"a":1},`), 1<<16)...), emit))
	assert.Zero(t, cap(array.pending))
	assert.Equal(t, int64(1<<16), array.Stats().Records)
}

func TestCSVEmitErrorStopsFeed(t *testing.T) {
	r := NewCSVReassembler(csvOptions(false))
	stop := errors.New(errors.KindCancelled, "stop")
	var n int
	err := r.Feed([]byte("1\n2\n3\n"), func(*Record) error {
		n++
		return stop
	})
	assert.Same(t, stop, err)
	assert.Equal(t, 1, n)
}

func TestRecordCanonical(t *testing.T) {
	a := Record{Fields: [][]byte{[]byte("1"), nil, []byte("x")}}
	b := Record{Fields: [][]byte{[]byte("1"), []byte(""), []byte("x")}}
	c := Record{Fields: [][]byte{[]byte("1,"), []byte("x")}}
	assert.Equal(t, a.Canonical(nil), b.Canonical(nil))
	assert.NotEqual(t, a.Canonical(nil), c.Canonical(nil))
}
