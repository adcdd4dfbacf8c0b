package report

import (
	"math"
	"time"

	"github.com/ajitpratap0/prism/pkg/accumulator"
	"github.com/ajitpratap0/prism/pkg/config"
	"github.com/ajitpratap0/prism/pkg/parser"
	"github.com/ajitpratap0/prism/pkg/quality"
	"github.com/ajitpratap0/prism/pkg/types"
)

// Version is stamped into Meta of every report.
var Version = "dev"

const (
	noteNumericExceptions = "Potentially numeric with exceptions"
	noteHinted            = "Type set by schema hint"
	noteAllMissing        = "All values missing"
)

// Options tune the materializer.
type Options struct {
	MinHistogramBins  int
	MaxHistogramBins  int
	PIIMatchThreshold float64
}

// OptionsFromConfig takes the report settings from a validated configuration.
func OptionsFromConfig(cfg *config.ProfileConfig) Options {
	return Options{
		MinHistogramBins:  cfg.Quality.MinHistogramBins,
		MaxHistogramBins:  cfg.Quality.MaxHistogramBins,
		PIIMatchThreshold: cfg.Quality.PIIMatchThreshold,
	}
}

// Input is everything a session hands over at finalize.
type Input struct {
	Columns     []accumulator.Summary
	Correlation *accumulator.Correlation

	Dialect parser.Dialect
	Stats   parser.Stats

	TotalRows      int64
	BytesProcessed int64
	Duplicates     int64
	Elapsed        time.Duration
	Source         string
}

// Materializer turns finished accumulator state into a Report.
type Materializer struct {
	opts Options
	now  func() time.Time
}

// NewMaterializer creates a materializer.
func NewMaterializer(opts Options) *Materializer {
	return &Materializer{opts: opts, now: time.Now}
}

// Materialize builds the report. It reads every summary exactly once.
func (m *Materializer) Materialize(in *Input) *Report {
	r := &Report{
		Columns:              make(Columns, 0, len(in.Columns)),
		Format:               string(in.Dialect.Format),
		HasHeader:            in.Dialect.HasHeader,
		TotalRows:            in.TotalRows,
		ElapsedMs:            in.Elapsed.Milliseconds(),
		BytesProcessed:       in.BytesProcessed,
		FieldCountMismatches: in.Stats.FieldCountMismatches,
		MalformedRecords:     in.Stats.MalformedRecords,
		DuplicateRows:        in.Duplicates,
		DuplicatePercentage:  round(quality.DuplicatePercentage(in.Duplicates, in.TotalRows), 2),
		Meta: Meta{
			GeneratedAt: m.now().UTC(),
			Version:     Version,
			Source:      in.Source,
		},
	}
	if in.Dialect.Format == parser.FormatCSV {
		r.Delimiter = string(in.Dialect.Delimiter)
	}

	qopts := quality.Options{PIIMatchThreshold: m.opts.PIIMatchThreshold}
	for i := range in.Columns {
		s := &in.Columns[i]
		c := m.column(s)
		q := quality.Assess(s, qopts)
		c.Quality = ColumnQuality{
			Completeness:    round(q.Completeness, 4),
			Uniqueness:      round(q.Uniqueness, 4),
			TypeConsistency: round(q.TypeConsistency, 4),
			Score:           round(q.Score, 4),
			Issues:          q.Issues,
		}
		c.PII = q.PII
		r.Columns = append(r.Columns, c)
		r.QualityIssues = append(r.QualityIssues, q.Issues...)
	}
	r.QualityIssues = append(r.QualityIssues, quality.DuplicateIssues(in.Duplicates, in.TotalRows)...)
	r.Correlations = m.correlations(in)
	if in.Dialect.Format.IsJSON() || in.Dialect.Format == parser.FormatAvro {
		r.Structure = buildStructure(in.Columns, in.TotalRows)
	}
	return r
}

func (m *Materializer) column(s *accumulator.Summary) *Column {
	c := &Column{
		Name:               s.Name,
		Ordinal:            s.Ordinal,
		InferredType:       s.Type,
		Count:              s.Count,
		MissingCount:       s.Missing,
		DistinctEstimate:   s.Distinct,
		NonConformingCount: s.NonConforming,
		TypeConsistency:    round(quality.TypeConsistency(s.Conforming, s.Present), 4),
	}

	if s.Type.IsNumeric() {
		c.NumericStats = numericStats(s.Numeric)
		c.Histogram = buildHistogram(s.Numeric, m.opts.MinHistogramBins, m.opts.MaxHistogramBins)
	}
	if s.Type.IsCategorical() && len(s.TopValues) > 0 {
		top := make([]TopValue, len(s.TopValues))
		for i, it := range s.TopValues {
			top[i] = TopValue{
				Value:      it.Value,
				Count:      it.Count,
				Percentage: round(float64(it.Count)/float64(s.Present)*100, 2),
			}
		}
		c.CategoricalStats = &CategoricalStats{TopValues: top}
	}
	if s.Shape != nil {
		c.StringStats = &StringStats{MinLength: s.Shape.MinLength, MaxLength: s.Shape.MaxLength}
	}
	if s.Type.IsTemporal() && s.Temporal != nil {
		layout := time.RFC3339
		if s.Temporal.DateOnly {
			layout = time.DateOnly
		}
		c.TemporalStats = &TemporalStats{
			Earliest: s.Temporal.Earliest.Format(layout),
			Latest:   s.Temporal.Latest.Format(layout),
		}
	}
	if s.Arrays != nil {
		c.ArrayStats = &ArrayStats{
			MinLength: s.Arrays.MinLength,
			MaxLength: s.Arrays.MaxLength,
			AvgLength: round(s.Arrays.AvgLength, 2),
		}
	}
	c.Notes = notes(s)
	return c
}

func notes(s *accumulator.Summary) []string {
	var out []string
	if s.Hinted {
		out = append(out, noteHinted)
	}
	switch {
	case s.Type == types.Empty:
		out = append(out, noteAllMissing)
	case (s.Type == types.String || s.Type == types.Mixed) && s.NumericShare > 0.5:
		out = append(out, noteNumericExceptions)
	}
	return out
}

func (m *Materializer) correlations(in *Input) []Correlation {
	if in.Correlation == nil {
		return nil
	}
	byOrdinal := make(map[int]*accumulator.Summary, len(in.Columns))
	for i := range in.Columns {
		byOrdinal[in.Columns[i].Ordinal] = &in.Columns[i]
	}
	pairs := in.Correlation.Pairs(func(ordinal int) bool {
		s, ok := byOrdinal[ordinal]
		return ok && s.Type.IsNumeric()
	})
	if len(pairs) == 0 {
		return nil
	}
	out := make([]Correlation, len(pairs))
	for i, p := range pairs {
		out[i] = Correlation{
			ColumnA:     byOrdinal[p.A].Name,
			ColumnB:     byOrdinal[p.B].Name,
			Coefficient: p.R,
			Count:       p.N,
		}
	}
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
