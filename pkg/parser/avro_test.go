package parser

import (
	"bytes"
	"testing"
	"time"

	"github.com/linkedin/goavro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/prism/pkg/errors"
)

const eventSchema = `{
  "type": "record", "name": "Event", "namespace": "prism.test",
  "fields": [
    {"name": "id", "type": "long"},
    {"name": "name", "type": ["null", "string"]},
    {"name": "score", "type": "double"},
    {"name": "ok", "type": "boolean"},
    {"name": "tags", "type": {"type": "array", "items": "string"}},
    {"name": "user", "type": {"type": "record", "name": "User", "fields": [
      {"name": "email", "type": "string"},
      {"name": "geo", "type": ["null", {"type": "record", "name": "Geo", "fields": [
        {"name": "lat", "type": "double"}
      ]}]}
    ]}},
    {"name": "attrs", "type": {"type": "map", "values": "long"}},
    {"name": "day", "type": {"type": "int", "logicalType": "date"}}
  ]
}`

// writeOCF writes each batch as its own container block.
func writeOCF(t *testing.T, schema, compression string, batches ...[]interface{}) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := goavro.NewOCFWriter(goavro.OCFConfig{W: &buf, Schema: schema, CompressionName: compression})
	require.NoError(t, err)
	for _, b := range batches {
		require.NoError(t, w.Append(b))
	}
	return buf.Bytes()
}

func eventFile(t *testing.T, compression string) []byte {
	t.Helper()
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	first := map[string]interface{}{
		"id":    int64(1),
		"name":  goavro.Union("string", "alice"),
		"score": 1.5,
		"ok":    true,
		"tags":  []interface{}{"x", "y"},
		"user": map[string]interface{}{
			"email": "a@x.io",
			"geo":   goavro.Union("prism.test.Geo", map[string]interface{}{"lat": 1.25}),
		},
		"attrs": map[string]interface{}{"a": int64(7)},
		"day":   day,
	}
	second := map[string]interface{}{
		"id":    int64(2),
		"name":  nil,
		"score": -0.5,
		"ok":    false,
		"tags":  []interface{}{},
		"user":  map[string]interface{}{"email": "b@x.io", "geo": nil},
		"attrs": map[string]interface{}{},
		"day":   day.AddDate(0, 0, 1),
	}
	return writeOCF(t, eventSchema, compression, []interface{}{first}, []interface{}{second})
}

func avroRows(t *testing.T, r *AvroReassembler, chunks ...[]byte) []map[string]string {
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

func TestAvroEverySplitPoint(t *testing.T) {
	want := []map[string]string{
		{
			"id": "1", "name": "alice", "score": "1.5", "ok": "true", "tags": "[array:2]",
			"user.email": "a@x.io", "user.geo.lat": "1.25", "day": "2024-01-02", "attrs.a": "7",
		},
		{
			"id": "2", "score": "-0.5", "ok": "false", "tags": "[array:0]",
			"user.email": "b@x.io", "day": "2024-01-03",
		},
	}
	columns := []string{"id", "name", "score", "ok", "tags", "user.email", "user.geo.lat", "day", "attrs.a"}

	for _, codec := range []string{"null", "deflate", "snappy", "zstandard"} {
		t.Run(codec, func(t *testing.T) {
			data := eventFile(t, codec)
			r := NewAvroReassembler(Options{Format: FormatAvro})
			require.Equal(t, want, avroRows(t, r, data))
			assert.Equal(t, columns, r.Columns())
			assert.Equal(t, int64(2), r.Stats().Records)
			assert.Zero(t, r.Stats().MalformedRecords)

			for cut := 1; cut < len(data); cut++ {
				got := avroRows(t, NewAvroReassembler(Options{Format: FormatAvro}), splitAt(string(data), cut)...)
				require.Equal(t, want, got, "cut at %d", cut)
			}
		})
	}
}

func TestAvroHeaderOnlyFileHasSchemaColumns(t *testing.T) {
	data := writeOCF(t, eventSchema, "null")
	r := NewAvroReassembler(Options{Format: FormatAvro})
	assert.Empty(t, avroRows(t, r, data))
	assert.Equal(t, []string{"id", "name", "score", "ok", "tags", "user.email", "user.geo.lat", "day"}, r.Columns())
}

func TestAvroNonRecordSchema(t *testing.T) {
	data := writeOCF(t, `"long"`, "deflate", []interface{}{int64(5), int64(-7)})
	r := NewAvroReassembler(Options{Format: FormatAvro})
	assert.Equal(t, []map[string]string{{"value": "5"}, {"value": "-7"}}, avroRows(t, r, data))
	assert.Equal(t, []string{"value"}, r.Columns())
}

func TestAvroMaxNestedDepth(t *testing.T) {
	r := NewAvroReassembler(Options{Format: FormatAvro, MaxNestedDepth: 1})
	rows := avroRows(t, r, eventFile(t, "null"))
	require.Len(t, rows, 2)
	assert.Equal(t, "[object]", rows[0]["user"])
	assert.Equal(t, "[object]", rows[0]["attrs"])
	assert.Equal(t, []string{"id", "name", "score", "ok", "tags", "user", "attrs", "day"}, r.Columns())
}

func TestAvroSyncMarkerMismatch(t *testing.T) {
	data := eventFile(t, "null")
	data[len(data)-1] ^= 0xff

	r := NewAvroReassembler(Options{Format: FormatAvro})
	err := r.Feed(data, func(*Record) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindParse))
	assert.Equal(t, int64(1), r.Stats().Records)
}

func TestAvroTruncatedBlockIsMalformed(t *testing.T) {
	data := eventFile(t, "snappy")
	r := NewAvroReassembler(Options{Format: FormatAvro})
	rows := avroRows(t, r, data[:len(data)-1])
	assert.Len(t, rows, 1)
	assert.Equal(t, int64(1), r.Stats().MalformedRecords)
}

func TestAvroTruncatedHeader(t *testing.T) {
	data := eventFile(t, "null")
	r := NewAvroReassembler(Options{Format: FormatAvro})
	emit := func(*Record) error { return nil }

	require.NoError(t, r.Feed(data[:10], emit))
	err := r.Finalize(emit)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindParse))
}

func TestAvroRejectsOtherInput(t *testing.T) {
	r := NewAvroReassembler(Options{Format: FormatAvro})
	err := r.Feed([]byte("id,name\n1,a\n"), func(*Record) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindParse))
}

func TestAvroPendingLimit(t *testing.T) {
	data := eventFile(t, "null")
	r := NewAvroReassembler(Options{Format: FormatAvro, MaxPendingBytes: 16})

	err := r.Feed(data[:40], func(*Record) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindResourceExhausted))
}
