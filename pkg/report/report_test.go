package report

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/prism/pkg/accumulator"
	"github.com/ajitpratap0/prism/pkg/config"
	"github.com/ajitpratap0/prism/pkg/json"
	"github.com/ajitpratap0/prism/pkg/parser"
	"github.com/ajitpratap0/prism/pkg/quality"
	"github.com/ajitpratap0/prism/pkg/types"
)

func summarize(t *testing.T, name string, ordinal int, toks ...string) accumulator.Summary {
	t.Helper()
	opts, err := accumulator.NewOptions(config.NewProfileConfig())
	require.NoError(t, err)
	c, err := accumulator.NewColumn(name, ordinal, opts)
	require.NoError(t, err)
	for _, tok := range toks {
		c.Observe([]byte(tok), -1)
	}
	return c.Summary()
}

func testMaterializer() *Materializer {
	m := NewMaterializer(OptionsFromConfig(config.NewProfileConfig()))
	m.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return m
}

func TestBinCount(t *testing.T) {
	assert.Equal(t, 10, BinCount(0, 10, 50))
	assert.Equal(t, 10, BinCount(100, 10, 50))
	assert.Equal(t, 21, BinCount(1_000_000, 10, 50))
	assert.Equal(t, 50, BinCount(1<<60, 10, 50))
}

func TestHistogramSumsToCount(t *testing.T) {
	toks := make([]string, 0, 5000)
	for i := 0; i < 5000; i++ {
		toks = append(toks, strconv.Itoa(i%1000))
	}
	s := summarize(t, "v", 0, toks...)
	h := buildHistogram(s.Numeric, 10, 50)
	require.NotNil(t, h)
	require.Len(t, h.Bins, BinCount(5000, 10, 50))

	var total int64
	for i, b := range h.Bins {
		assert.GreaterOrEqual(t, b.Count, int64(0))
		assert.Less(t, b.RangeStart, b.RangeEnd)
		if i > 0 {
			assert.Equal(t, h.Bins[i-1].RangeEnd, b.RangeStart)
		}
		total += b.Count
	}
	assert.Equal(t, int64(5000), total)
	assert.Equal(t, 0.0, h.Bins[0].RangeStart)
	assert.Equal(t, 999.0, h.Bins[len(h.Bins)-1].RangeEnd)

	// Uniform input spreads mass evenly, about 357 values in each of 14 bins.
	for _, b := range h.Bins {
		assert.InDelta(t, 5000.0/float64(len(h.Bins)), float64(b.Count), 60)
	}
}

func TestHistogramConstantColumn(t *testing.T) {
	s := summarize(t, "v", 0, "5", "5", "5", "5")
	h := buildHistogram(s.Numeric, 10, 50)
	assert.Equal(t, &Histogram{Bins: []Bin{{RangeStart: 5, RangeEnd: 5, Count: 4}}}, h)
	assert.Nil(t, buildHistogram(nil, 10, 50))
}

func TestQuantilesClampedToRange(t *testing.T) {
	s := summarize(t, "v", 0, "1", "2", "3", "4", "5", "6", "7", "8", "9", "10")
	ns := numericStats(s.Numeric)
	for _, q := range []float64{ns.P25, ns.P50, ns.P75, ns.P90, ns.P95, ns.P99} {
		assert.GreaterOrEqual(t, q, 1.0)
		assert.LessOrEqual(t, q, 10.0)
	}
	assert.LessOrEqual(t, ns.P25, ns.P50)
	assert.LessOrEqual(t, ns.P50, ns.P99)
}

func endToEndReport(t *testing.T) *Report {
	t.Helper()
	corr := accumulator.NewCorrelation(2)
	corr.Observe([][]byte{[]byte("1"), []byte("x")})
	corr.Observe([][]byte{[]byte("2"), []byte("y")})
	corr.Observe([][]byte{nil, []byte("z")})

	return testMaterializer().Materialize(&Input{
		Columns: []accumulator.Summary{
			summarize(t, "a", 0, "1", "2", ""),
			summarize(t, "b", 1, "x", "y", "z"),
		},
		Correlation:    corr,
		Dialect:        parser.Dialect{Format: parser.FormatCSV, Delimiter: ',', HasHeader: true},
		TotalRows:      3,
		BytesProcessed: 16,
		Elapsed:        25 * time.Millisecond,
		Source:         "inline",
	})
}

func TestMaterializeEndToEnd(t *testing.T) {
	r := endToEndReport(t)

	assert.Equal(t, "csv", r.Format)
	assert.Equal(t, ",", r.Delimiter)
	assert.True(t, r.HasHeader)
	assert.Equal(t, int64(3), r.TotalRows)
	assert.Equal(t, int64(25), r.ElapsedMs)
	assert.Equal(t, "dev", r.Meta.Version)
	assert.Empty(t, r.Correlations, "b is not numeric")

	a := r.Column("a")
	require.NotNil(t, a)
	assert.Equal(t, types.Integer, a.InferredType)
	assert.Equal(t, int64(3), a.Count)
	assert.Equal(t, int64(1), a.MissingCount)
	require.NotNil(t, a.NumericStats)
	assert.Equal(t, 1.5, a.NumericStats.Mean)
	assert.Equal(t, 1.0, a.NumericStats.Min)
	assert.Equal(t, 2.0, a.NumericStats.Max)
	assert.Nil(t, a.CategoricalStats)
	require.NotNil(t, a.Histogram)

	b := r.Column("b")
	require.NotNil(t, b)
	assert.Equal(t, types.String, b.InferredType)
	assert.Equal(t, int64(0), b.MissingCount)
	assert.Nil(t, b.NumericStats)
	require.NotNil(t, b.CategoricalStats)
	assert.Equal(t, []TopValue{
		{Value: "x", Count: 1, Percentage: 33.33},
		{Value: "y", Count: 1, Percentage: 33.33},
		{Value: "z", Count: 1, Percentage: 33.33},
	}, b.CategoricalStats.TopValues)
	assert.Equal(t, &StringStats{MinLength: 1, MaxLength: 1}, b.StringStats)

	assert.Nil(t, r.Column("missing"))
}

func TestCorrelationsOnlyNumericColumns(t *testing.T) {
	corr := accumulator.NewCorrelation(3)
	var xs, ys, zs []string
	for i := 1; i <= 20; i++ {
		x, y, z := strconv.Itoa(i), strconv.Itoa(3*i), strconv.Itoa(i%2)
		xs, ys, zs = append(xs, x), append(ys, y), append(zs, "code"+z)
		corr.Observe([][]byte{[]byte(x), []byte(y), []byte(z)})
	}
	r := testMaterializer().Materialize(&Input{
		Columns: []accumulator.Summary{
			summarize(t, "x", 0, xs...),
			summarize(t, "y", 1, ys...),
			summarize(t, "z", 2, zs...),
		},
		Correlation: corr,
		Dialect:     parser.Dialect{Format: parser.FormatJSONLines},
		TotalRows:   20,
	})
	assert.Equal(t, []Correlation{{ColumnA: "x", ColumnB: "y", Coefficient: 1, Count: 20}}, r.Correlations)
	assert.Empty(t, r.Delimiter)
}

func TestNotes(t *testing.T) {
	s := summarize(t, "v", 0, "1", "2", "3", "x", "y")
	assert.Equal(t, types.Mixed, s.Type)
	assert.Equal(t, []string{noteNumericExceptions}, notes(&s))

	s = summarize(t, "v", 0, "", "")
	assert.Equal(t, []string{noteAllMissing}, notes(&s))
}

func TestDuplicateIssuesReachReport(t *testing.T) {
	r := testMaterializer().Materialize(&Input{
		Columns:    []accumulator.Summary{summarize(t, "a", 0, "1", "1", "1", "2")},
		Dialect:    parser.Dialect{Format: parser.FormatCSV, Delimiter: ';'},
		TotalRows:  4,
		Duplicates: 2,
	})
	assert.Equal(t, int64(2), r.DuplicateRows)
	assert.Equal(t, 50.0, r.DuplicatePercentage)
	require.NotEmpty(t, r.QualityIssues)
	last := r.QualityIssues[len(r.QualityIssues)-1]
	assert.Equal(t, "duplicate_rows", last.ID)
	assert.Equal(t, quality.SeverityError, last.Severity)
}

func TestColumnsEncodeInSchemaOrder(t *testing.T) {
	r := testMaterializer().Materialize(&Input{
		Columns: []accumulator.Summary{
			summarize(t, "zeta", 0, "1"),
			summarize(t, "alpha", 1, "2"),
			summarize(t, "mid", 2, "3"),
		},
		Dialect:   parser.Dialect{Format: parser.FormatCSV, Delimiter: ','},
		TotalRows: 1,
	})

	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, r, false))
	out := buf.String()
	iz, ia, im := strings.Index(out, `"zeta"`), strings.Index(out, `"alpha"`), strings.Index(out, `"mid"`)
	assert.True(t, iz < ia && ia < im, out)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	cols := decoded["columns"].(map[string]interface{})
	assert.Len(t, cols, 3)
	zeta := cols["zeta"].(map[string]interface{})
	assert.Equal(t, "Integer", zeta["inferredType"])
	assert.NotContains(t, zeta, "Name")

	buf.Reset()
	require.NoError(t, EncodeYAML(&buf, r))
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	root := doc.Content[0]
	var columns *yaml.Node
	for i := 0; i < len(root.Content); i += 2 {
		if root.Content[i].Value == "columns" {
			columns = root.Content[i+1]
		}
	}
	require.NotNil(t, columns)
	var keys []string
	for i := 0; i < len(columns.Content); i += 2 {
		keys = append(keys, columns.Content[i].Value)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, keys)
}

func TestPrettyJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, endToEndReport(t), true))
	assert.Contains(t, buf.String(), "\n  \"columns\": {")
}

func TestStructureTreeFromNestedColumns(t *testing.T) {
	r := testMaterializer().Materialize(&Input{
		Columns: []accumulator.Summary{
			summarize(t, "id", 0, "1", "2", "3"),
			summarize(t, "user.name", 1, "a", "b", ""),
			summarize(t, "user.geo.lat", 2, "1.5", "", ""),
			summarize(t, "tags", 3, "[array:2]", "[array:0]", ""),
			summarize(t, "flag", 4, "true", "false", "true"),
		},
		Dialect:   parser.Dialect{Format: parser.FormatJSONLines},
		TotalRows: 3,
	})
	st := r.Structure
	require.NotNil(t, st)
	assert.Equal(t, 3, st.MaxDepth)
	assert.Equal(t, 7, st.TotalPaths)
	assert.Equal(t, int64(3), st.RowsSampled)
	assert.Equal(t, ModeTabular, st.RecommendedMode)

	geo := &TreeNode{Path: "$.user.geo", Depth: 2, Type: NodeObject, Population: 33.33, ChildCount: 1, Children: []*TreeNode{
		{Path: "$.user.geo.lat", Depth: 3, Type: NodeNumber, Population: 33.33, Examples: []string{"1.5"}},
	}}
	want := &TreeNode{Path: "$", Type: NodeObject, Population: 100, ChildCount: 4, Children: []*TreeNode{
		{Path: "$.id", Depth: 1, Type: NodeNumber, Population: 100, Examples: []string{"1", "2", "3"}},
		{Path: "$.user", Depth: 1, Type: NodeObject, Population: 66.67, ChildCount: 2, Children: []*TreeNode{
			{Path: "$.user.name", Depth: 2, Type: NodeString, Population: 66.67, Examples: []string{"a", "b"}},
			geo,
		}},
		{Path: "$.tags", Depth: 1, Type: NodeArray, Population: 66.67},
		{Path: "$.flag", Depth: 1, Type: NodeBoolean, Population: 100, Examples: []string{"true", "false", "true"}},
	}}
	assert.Equal(t, want, st.Tree)

	csv := testMaterializer().Materialize(&Input{
		Columns:   []accumulator.Summary{summarize(t, "a.b", 0, "1")},
		Dialect:   parser.Dialect{Format: parser.FormatCSV, Delimiter: ','},
		TotalRows: 1,
	})
	assert.Nil(t, csv.Structure)
}

func TestStructureLeafTypes(t *testing.T) {
	cases := []struct {
		toks []string
		want NodeType
	}{
		{[]string{"[object]", "[object]"}, NodeObject},
		{[]string{"[object]", "x"}, NodeMixed},
		{[]string{"[array:1]", "4"}, NodeMixed},
		{[]string{"", ""}, NodeNull},
		{[]string{"2024-01-02", "2024-02-03"}, NodeString},
	}
	for _, tc := range cases {
		s := summarize(t, "v", 0, tc.toks...)
		assert.Equal(t, tc.want, leafType(&s), "%v", tc.toks)
	}

	deep := make([]accumulator.Summary, 0, 1)
	deep = append(deep, summarize(t, "a.b.c.d.e.f", 0, "1"))
	st := buildStructure(deep, 1)
	assert.Equal(t, 6, st.MaxDepth)
	assert.Equal(t, ModeTree, st.RecommendedMode)
}
