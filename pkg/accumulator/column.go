package accumulator

import (
	"time"

	"github.com/ajitpratap0/prism/pkg/sketch"
	"github.com/ajitpratap0/prism/pkg/strings"
	"github.com/ajitpratap0/prism/pkg/types"
)

// span locates a buffered window token; start is -1 for a missing value.
type span struct {
	start, end int
}

// Column accumulates one column. While its sample window is open, tokens are
// classified and buffered; when the window locks, the buffer is replayed so
// every statistic sees every value exactly once in source order.
type Column struct {
	name    string
	ordinal int
	opts    *Options

	dataType types.DataType
	locked   bool
	hinted   bool
	reopened bool

	inference    types.Inference
	windowBuf    []byte
	window       []span
	numericShare float64

	count         int64
	missing       int64
	conforming    int64
	nonConforming int64

	cardinality *sketch.Cardinality
	frequency   *sketch.CountMin
	topK        *sketch.TopK
	shape       shapeState
	numeric     *numericState
	temporal    temporalState
	arrays      arrayState
	samples     []string
}

// NewColumn creates a column with its sample window open.
func NewColumn(name string, ordinal int, opts *Options) (*Column, error) {
	card, err := sketch.NewCardinality(opts.RegisterBits)
	if err != nil {
		return nil, err
	}
	freq, err := sketch.NewCountMin(opts.FrequencyWidth, opts.FrequencyDepth)
	if err != nil {
		return nil, err
	}
	return &Column{
		name:        name,
		ordinal:     ordinal,
		opts:        opts,
		cardinality: card,
		frequency:   freq,
		topK:        sketch.NewTopK(opts.TopKWidth),
	}, nil
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Ordinal returns the zero-based column position.
func (c *Column) Ordinal() int { return c.ordinal }

// Type returns the locked type, or Unknown while the window is open.
func (c *Column) Type() types.DataType {
	if !c.locked {
		return types.Unknown
	}
	return c.dataType
}

// Count returns the number of observations, missing included.
func (c *Column) Count() int64 { return c.count + int64(len(c.window)) }

// Hint locks the column type up front. It has no effect once values have
// been observed.
func (c *Column) Hint(t types.DataType) {
	if c.Count() > 0 || t == types.Unknown {
		return
	}
	c.lockAs(t)
	c.hinted = true
}

// ObserveMissing records n absent values.
func (c *Column) ObserveMissing(n int64) {
	for i := int64(0); i < n; i++ {
		c.Observe(nil, -1)
	}
}

// Observe records one raw token. arrayLen is the element count of a value
// flattened from a JSON array, or -1. The token is not retained.
func (c *Column) Observe(tok []byte, arrayLen int) {
	if arrayLen >= 0 {
		c.arrays.observe(arrayLen)
	}
	if c.locked {
		if c.dataType == types.Empty && !c.reopened && !types.IsMissing(tok) {
			c.reopened = true
			c.locked = false
			c.inference.Reset()
		} else {
			c.fold(tok)
			return
		}
	}

	class, _ := types.Classify(tok)
	c.inference.Observe(class)
	if class == types.ClassMissing {
		c.window = append(c.window, span{start: -1})
	} else {
		start := len(c.windowBuf)
		c.windowBuf = append(c.windowBuf, tok...)
		c.window = append(c.window, span{start: start, end: len(c.windowBuf)})
	}

	if int(c.inference.Observed()) >= c.opts.SampleWindowSize {
		c.lock()
	}
}

// lock resolves the window and replays it.
func (c *Column) lock() {
	c.numericShare = c.inference.NumericShare()
	c.lockAs(c.inference.Resolve(c.opts.MajorityThreshold))

	for _, s := range c.window {
		if s.start < 0 {
			c.fold(nil)
		} else {
			c.fold(c.windowBuf[s.start:s.end])
		}
	}
	c.window = nil
	c.windowBuf = nil
}

func (c *Column) lockAs(t types.DataType) {
	c.dataType = t
	c.locked = true
	if t.IsNumeric() && c.numeric == nil {
		c.numeric = newNumericState(c.opts.NewQuantile())
	}
}

// fold applies one token to every statistic under the locked type.
func (c *Column) fold(tok []byte) {
	c.count++
	if types.IsMissing(tok) {
		c.missing++
		return
	}
	trimmed := strings.TrimSpace(tok)

	c.cardinality.Insert(trimmed)
	c.shape.observe(len(trimmed))
	c.topK.Offer(trimmed, uint64(c.frequency.Increment(trimmed)))
	if len(c.samples) < c.opts.SampleValues {
		c.samples = append(c.samples, string(trimmed))
	}

	switch c.dataType {
	case types.String, types.Mixed:
		c.conforming++
		return
	}
	v, ok := types.Coerce(c.dataType, trimmed)
	if !ok {
		c.nonConforming++
		return
	}
	c.conforming++
	switch v.Kind {
	case types.KindInt, types.KindFloat:
		if c.numeric != nil {
			f, _ := v.Float64()
			c.numeric.observe(f)
		}
	case types.KindTemporal:
		c.temporal.observe(v.Time, v.DateOnly)
	}
}

// Finalize locks a still-open window with the counts it has.
func (c *Column) Finalize() {
	if !c.locked {
		c.lock()
	}
}

// RetainedBytes reports the bytes buffered by the open sample window.
func (c *Column) RetainedBytes() int { return len(c.windowBuf) }

// Summary is the final state of a column.
type Summary struct {
	Name    string
	Ordinal int
	Type    types.DataType
	Hinted  bool

	Count         int64
	Missing       int64
	Present       int64
	Conforming    int64
	NonConforming int64
	Distinct      uint64

	// NumericShare is the share of window values that parsed as numbers.
	NumericShare float64

	Numeric   *NumericSummary
	TopValues []sketch.Item
	Shape     *ShapeSummary
	Temporal  *TemporalSummary
	Arrays    *ArraySummary
	// Samples are the leading present values, trimmed.
	Samples []string
}

// Summary finalizes the column and returns its statistics.
func (c *Column) Summary() Summary {
	c.Finalize()
	s := Summary{
		Name:          c.name,
		Ordinal:       c.ordinal,
		Type:          c.dataType,
		Hinted:        c.hinted,
		Count:         c.count,
		Missing:       c.missing,
		Present:       c.count - c.missing,
		Conforming:    c.conforming,
		NonConforming: c.nonConforming,
		NumericShare:  c.numericShare,
		Shape:         c.shape.summary(),
		Temporal:      c.temporal.summary(),
		Arrays:        c.arrays.summary(),
		Samples:       c.samples,
	}
	if s.Present > 0 {
		s.Distinct = c.cardinality.Estimate()
		s.TopValues = c.topK.Items()
	}
	if c.numeric != nil {
		s.Numeric = c.numeric.summary()
	}
	return s
}

type shapeState struct {
	seen     bool
	min, max int
}

func (s *shapeState) observe(n int) {
	if !s.seen {
		s.seen, s.min, s.max = true, n, n
		return
	}
	if n < s.min {
		s.min = n
	}
	if n > s.max {
		s.max = n
	}
}

// ShapeSummary holds string length bounds in bytes.
type ShapeSummary struct {
	MinLength int
	MaxLength int
}

func (s *shapeState) summary() *ShapeSummary {
	if !s.seen {
		return nil
	}
	return &ShapeSummary{MinLength: s.min, MaxLength: s.max}
}

type temporalState struct {
	seen             bool
	dateOnly         bool
	earliest, latest time.Time
}

func (s *temporalState) observe(t time.Time, dateOnly bool) {
	if !s.seen {
		s.seen, s.dateOnly, s.earliest, s.latest = true, dateOnly, t, t
		return
	}
	s.dateOnly = s.dateOnly && dateOnly
	if t.Before(s.earliest) {
		s.earliest = t
	}
	if t.After(s.latest) {
		s.latest = t
	}
}

// TemporalSummary holds the observed time range.
type TemporalSummary struct {
	Earliest time.Time
	Latest   time.Time
	DateOnly bool
}

func (s *temporalState) summary() *TemporalSummary {
	if !s.seen {
		return nil
	}
	return &TemporalSummary{Earliest: s.earliest, Latest: s.latest, DateOnly: s.dateOnly}
}

type arrayState struct {
	n        int64
	sum      int64
	min, max int
}

func (s *arrayState) observe(n int) {
	if s.n == 0 || n < s.min {
		s.min = n
	}
	if s.n == 0 || n > s.max {
		s.max = n
	}
	s.n++
	s.sum += int64(n)
}

// ArraySummary holds element count statistics of JSON array values.
type ArraySummary struct {
	MinLength int
	MaxLength int
	AvgLength float64
}

func (s *arrayState) summary() *ArraySummary {
	if s.n == 0 {
		return nil
	}
	return &ArraySummary{
		MinLength: s.min,
		MaxLength: s.max,
		AvgLength: float64(s.sum) / float64(s.n),
	}
}
