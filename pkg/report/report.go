// Package report holds the immutable profile report and the materializer
// that builds it from finished column accumulators. Histograms and quantiles
// are read from the quantile sketches here, once, at finalize time.
package report

import (
	"bytes"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/prism/pkg/json"
	"github.com/ajitpratap0/prism/pkg/quality"
	"github.com/ajitpratap0/prism/pkg/types"
)

// Report is the terminal snapshot of a profiling session.
type Report struct {
	Columns Columns `json:"columns" yaml:"columns"`

	Format    string `json:"format" yaml:"format"`
	Delimiter string `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`
	HasHeader bool   `json:"hasHeader" yaml:"hasHeader"`

	TotalRows      int64 `json:"totalRows" yaml:"totalRows"`
	ElapsedMs      int64 `json:"elapsedMs" yaml:"elapsedMs"`
	BytesProcessed int64 `json:"bytesProcessed" yaml:"bytesProcessed"`

	FieldCountMismatches int64   `json:"fieldCountMismatches" yaml:"fieldCountMismatches"`
	MalformedRecords     int64   `json:"malformedRecords" yaml:"malformedRecords"`
	DuplicateRows        int64   `json:"duplicateRows" yaml:"duplicateRows"`
	DuplicatePercentage  float64 `json:"duplicatePercentage" yaml:"duplicatePercentage"`

	Correlations  []Correlation   `json:"correlations,omitempty" yaml:"correlations,omitempty"`
	QualityIssues []quality.Issue `json:"qualityIssues,omitempty" yaml:"qualityIssues,omitempty"`
	Structure     *Structure      `json:"structure,omitempty" yaml:"structure,omitempty"`
	Meta          Meta            `json:"meta" yaml:"meta"`
}

// Meta describes how the report was produced.
type Meta struct {
	GeneratedAt time.Time `json:"generatedAt" yaml:"generatedAt"`
	Version     string    `json:"version" yaml:"version"`
	Source      string    `json:"source,omitempty" yaml:"source,omitempty"`
}

// Column returns the named column, or nil.
func (r *Report) Column(name string) *Column {
	for _, c := range r.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Column is the profile of one column.
type Column struct {
	Name string `json:"-" yaml:"-"`

	Ordinal            int            `json:"ordinal" yaml:"ordinal"`
	InferredType       types.DataType `json:"inferredType" yaml:"inferredType"`
	Count              int64          `json:"count" yaml:"count"`
	MissingCount       int64          `json:"missingCount" yaml:"missingCount"`
	DistinctEstimate   uint64         `json:"distinctEstimate" yaml:"distinctEstimate"`
	NonConformingCount int64          `json:"nonConformingCount" yaml:"nonConformingCount"`
	TypeConsistency    float64        `json:"typeConsistency" yaml:"typeConsistency"`

	NumericStats     *NumericStats     `json:"numericStats,omitempty" yaml:"numericStats,omitempty"`
	CategoricalStats *CategoricalStats `json:"categoricalStats,omitempty" yaml:"categoricalStats,omitempty"`
	StringStats      *StringStats      `json:"stringStats,omitempty" yaml:"stringStats,omitempty"`
	TemporalStats    *TemporalStats    `json:"temporalStats,omitempty" yaml:"temporalStats,omitempty"`
	ArrayStats       *ArrayStats       `json:"arrayStats,omitempty" yaml:"arrayStats,omitempty"`
	Histogram        *Histogram        `json:"histogram,omitempty" yaml:"histogram,omitempty"`

	Notes   []string        `json:"notes,omitempty" yaml:"notes,omitempty"`
	Quality ColumnQuality   `json:"quality" yaml:"quality"`
	PII     quality.PIIType `json:"pii,omitempty" yaml:"pii,omitempty"`
}

// NumericStats are the moments and quantiles of an Integer or Numeric column.
type NumericStats struct {
	Mean     float64 `json:"mean" yaml:"mean"`
	StdDev   float64 `json:"stdDev" yaml:"stdDev"`
	Variance float64 `json:"variance" yaml:"variance"`
	Skewness float64 `json:"skewness" yaml:"skewness"`
	Kurtosis float64 `json:"kurtosis" yaml:"kurtosis"`
	Min      float64 `json:"min" yaml:"min"`
	Max      float64 `json:"max" yaml:"max"`
	P25      float64 `json:"p25" yaml:"p25"`
	P50      float64 `json:"p50" yaml:"p50"`
	P75      float64 `json:"p75" yaml:"p75"`
	P90      float64 `json:"p90" yaml:"p90"`
	P95      float64 `json:"p95" yaml:"p95"`
	P99      float64 `json:"p99" yaml:"p99"`
}

// TopValue is one frequent value.
type TopValue struct {
	Value      string  `json:"value" yaml:"value"`
	Count      uint64  `json:"count" yaml:"count"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// CategoricalStats lists the most frequent values.
type CategoricalStats struct {
	TopValues []TopValue `json:"topValues" yaml:"topValues"`
}

// StringStats are trimmed token length bounds in bytes.
type StringStats struct {
	MinLength int `json:"minLength" yaml:"minLength"`
	MaxLength int `json:"maxLength" yaml:"maxLength"`
}

// TemporalStats is the observed range of a Date or DateTime column. Dates
// render without a time part.
type TemporalStats struct {
	Earliest string `json:"earliest" yaml:"earliest"`
	Latest   string `json:"latest" yaml:"latest"`
}

// ArrayStats are element counts of values flattened from JSON arrays.
type ArrayStats struct {
	MinLength int     `json:"minLength" yaml:"minLength"`
	MaxLength int     `json:"maxLength" yaml:"maxLength"`
	AvgLength float64 `json:"avgLength" yaml:"avgLength"`
}

// Bin is one equal-width histogram interval.
type Bin struct {
	RangeStart float64 `json:"rangeStart" yaml:"rangeStart"`
	RangeEnd   float64 `json:"rangeEnd" yaml:"rangeEnd"`
	Count      int64   `json:"count" yaml:"count"`
}

// Histogram is derived from the quantile sketch at finalize time.
type Histogram struct {
	Bins []Bin `json:"bins" yaml:"bins"`
}

// ColumnQuality carries the quality signals of a column.
type ColumnQuality struct {
	Completeness    float64         `json:"completeness" yaml:"completeness"`
	Uniqueness      float64         `json:"uniqueness" yaml:"uniqueness"`
	TypeConsistency float64         `json:"typeConsistency" yaml:"typeConsistency"`
	Score           float64         `json:"score" yaml:"score"`
	Issues          []quality.Issue `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// Correlation is the Pearson coefficient of two numeric columns.
type Correlation struct {
	ColumnA     string  `json:"columnA" yaml:"columnA"`
	ColumnB     string  `json:"columnB" yaml:"columnB"`
	Coefficient float64 `json:"coefficient" yaml:"coefficient"`
	Count       int64   `json:"count" yaml:"count"`
}

// Columns serialize as a mapping from column name to profile, in schema
// order.
type Columns []*Column

// MarshalJSON writes an ordered object.
func (cs Columns) MarshalJSON() ([]byte, error) {
	buf := json.GetBuffer()
	defer json.PutBuffer(buf)

	buf.WriteByte('{')
	for i, c := range cs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return bytes.Clone(buf.Bytes()), nil
}

// MarshalYAML builds an ordered mapping node.
func (cs Columns) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range cs {
		val := &yaml.Node{}
		if err := val.Encode(c); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c.Name},
			val,
		)
	}
	return node, nil
}

// EncodeJSON writes the report as JSON, indented when pretty is set.
func EncodeJSON(w io.Writer, r *Report, pretty bool) error {
	var (
		out []byte
		err error
	)
	if pretty {
		out, err = json.MarshalIndent(r, "", "  ")
	} else {
		out, err = json.Marshal(r)
	}
	if err != nil {
		return err
	}
	out = append(out, '\n')
	_, err = w.Write(out)
	return err
}

// EncodeYAML writes the report as YAML.
func EncodeYAML(w io.Writer, r *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}
