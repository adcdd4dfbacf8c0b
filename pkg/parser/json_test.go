package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonRows(t *testing.T, r *JSONReassembler, chunks ...[]byte) []map[string]string {
	t.Helper()
	var out []map[string]string
	emit := func(rec *Record) error {
		row := map[string]string{}
		cols := r.Columns()
		for i, f := range rec.Fields {
			if f != nil {
				row[cols[i]] = string(f)
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

func TestJSONArrayEverySplitPoint(t *testing.T) {
	data := `[
  {"id": 1, "name": "a \"quoted\" } brace", "tags": ["x", "y"]},
  {"id": 2, "user": {"geo": {"lat": 1.5, "deep": {"z": 1}}}, "ok": false, "gone": null}
]`
	want := jsonRows(t, NewJSONReassembler(Options{Format: FormatJSONArray}), []byte(data))
	require.Len(t, want, 2)
	assert.Equal(t, map[string]string{"id": "1", "name": `a "quoted" } brace`, "tags": "[array:2]"}, want[0])
	assert.Equal(t, map[string]string{
		"id":            "2",
		"ok":            "false",
		"user.geo.deep": "[object]",
		"user.geo.lat":  "1.5",
	}, want[1])

	for cut := 1; cut < len(data); cut++ {
		got := jsonRows(t, NewJSONReassembler(Options{Format: FormatJSONArray}), splitAt(data, cut)...)
		require.Equal(t, want, got, "cut at %d", cut)
	}
}

func TestJSONLateKeysAppendColumns(t *testing.T) {
	r := NewJSONReassembler(Options{Format: FormatJSONLines})
	var widths []int
	emit := func(rec *Record) error {
		widths = append(widths, len(rec.Fields))
		return nil
	}
	require.NoError(t, r.Feed([]byte("{\"b\":1,\"a\":2}\n{\"a\":3,\"c\":[1,2,3]}\n"), emit))
	require.NoError(t, r.Finalize(emit))

	assert.Equal(t, []string{"a", "b", "c"}, r.Columns())
	assert.Equal(t, []int{2, 3}, widths)
}

func TestJSONArrayLengths(t *testing.T) {
	r := NewJSONReassembler(Options{Format: FormatJSONLines})
	var lens [][]int
	emit := func(rec *Record) error {
		lens = append(lens, append([]int(nil), rec.ArrayLens...))
		return nil
	}
	require.NoError(t, r.Feed([]byte(`{"v":[1,2],"w":"x"}`+"\n"+`{"v":[]}`), emit))
	require.NoError(t, r.Finalize(emit))
	assert.Equal(t, [][]int{{2, -1}, {0, -1}}, lens)
}

func TestJSONMalformedRecordsAreCounted(t *testing.T) {
	r := NewJSONReassembler(Options{Format: FormatJSONLines})
	rows := jsonRows(t, r, []byte("{\"a\":1}\nnot json\n[1,2]\n\n{\"a\":\n{\"a\":2}"))
	assert.Len(t, rows, 2)
	assert.Equal(t, int64(3), r.Stats().MalformedRecords)

	arr := NewJSONReassembler(Options{Format: FormatJSONArray})
	rows = jsonRows(t, arr, []byte(`[{"a":1}, 42, "str", [1], {"a":2}, {"a":`))
	assert.Len(t, rows, 2)
	assert.Equal(t, int64(4), arr.Stats().MalformedRecords)
}

func TestJSONMaxKeys(t *testing.T) {
	r := NewJSONReassembler(Options{Format: FormatJSONLines, MaxKeys: 2})
	jsonRows(t, r, []byte(`{"a":1,"b":2,"c":3}`))
	assert.Equal(t, []string{"a", "b"}, r.Columns())
}

func TestJSONMaxNestedDepth(t *testing.T) {
	r := NewJSONReassembler(Options{Format: FormatJSONLines, MaxNestedDepth: 1})
	rows := jsonRows(t, r, []byte(`{"a":{"b":1}}`))
	assert.Equal(t, []map[string]string{{"a": "[object]"}}, rows)
}

func TestNewDispatchesOnFormat(t *testing.T) {
	r, err := New(Options{Format: FormatCSV})
	require.NoError(t, err)
	assert.IsType(t, &CSVReassembler{}, r)

	r, err = New(Options{Format: FormatJSONLines})
	require.NoError(t, err)
	assert.IsType(t, &JSONReassembler{}, r)

	r, err = New(Options{Format: FormatAvro})
	require.NoError(t, err)
	assert.IsType(t, &AvroReassembler{}, r)

	_, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}
