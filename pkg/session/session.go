// Package session implements the profiling session state machine.
//
// A Session consumes ordered byte chunks, reassembles them into records,
// folds every field into its column accumulator and materializes a report
// at end of input. It runs on the caller's goroutine and is not safe for
// concurrent use; Host wraps a Session in a worker goroutine and exposes it
// through message channels.
//
// Lifecycle:
//
//	Idle -> Initializing -> Streaming -> Finalizing -> Completed
//	         \               \
//	          +-> Cancelled   +-> Cancelled          (any) -> Failed
package session

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/prism/pkg/accumulator"
	"github.com/ajitpratap0/prism/pkg/config"
	"github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/metrics"
	"github.com/ajitpratap0/prism/pkg/observability"
	"github.com/ajitpratap0/prism/pkg/parser"
	"github.com/ajitpratap0/prism/pkg/report"
	"github.com/ajitpratap0/prism/pkg/sketch"
	"github.com/ajitpratap0/prism/pkg/types"
)

// State is the lifecycle state of a session.
type State int32

const (
	StateIdle State = iota
	StateInitializing
	StateStreaming
	StateFinalizing
	StateCompleted
	StateCancelled
	StateFailed
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StateInitializing: "initializing",
	StateStreaming:    "streaming",
	StateFinalizing:   "finalizing",
	StateCompleted:    "completed",
	StateCancelled:    "cancelled",
	StateFailed:       "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether the session can accept no further messages.
func (s State) Terminal() bool { return s >= StateCompleted }

// SchemaHints are caller-supplied facts about the input.
type SchemaHints struct {
	// ColumnTypes locks the named columns to a type. Hinted columns skip
	// the sample window.
	ColumnTypes map[string]types.DataType
}

// cancelCheckInterval is how many records pass between cancellation checks
// inside a chunk.
const cancelCheckInterval = 4096

var errCancelled = errors.New(errors.KindCancelled, "session cancelled")

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithContext sets the parent context of the session's trace spans.
func WithContext(ctx context.Context) Option {
	return func(s *Session) { s.ctx = ctx }
}

// WithSizeHint sets the total input size reported in progress events.
func WithSizeHint(n int64) Option {
	return func(s *Session) { s.sizeHint = n }
}

// WithSource names the input in the report metadata.
func WithSource(name string) Option {
	return func(s *Session) { s.source = name }
}

// WithCancelCheck installs a cancellation poll. The session consults it
// before each chunk and periodically between records.
func WithCancelCheck(requested func() bool) Option {
	return func(s *Session) { s.cancelRequested = requested }
}

// Session is one profiling run over one input.
type Session struct {
	id              string
	cfg             *config.ProfileConfig
	log             *zap.Logger
	ctx             context.Context
	emit            func(Event)
	source          string
	sizeHint        int64
	cancelRequested func() bool

	state   State
	hints   SchemaHints
	lastSeq int64
	bytes   int64
	started time.Time

	colOpts      *accumulator.Options
	materializer *report.Materializer
	metrics      *metrics.SessionCollector
	streamSpan   *observability.Span

	sniffBuf    []byte
	dialect     parser.Dialect
	reasm       parser.Reassembler
	columns     []*accumulator.Column
	correlation *accumulator.Correlation
	duplicates  *sketch.DuplicateFilter
	canonical   []byte
	records     int64
}

// New creates an idle session. emit receives every outbound event
// synchronously; it may be nil. cfg is validated and nil means defaults.
func New(cfg *config.ProfileConfig, emit func(Event), opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.NewProfileConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	colOpts, err := accumulator.NewOptions(cfg)
	if err != nil {
		return nil, err
	}
	if emit == nil {
		emit = func(Event) {}
	}

	s := &Session{
		id:           uuid.NewString(),
		cfg:          cfg,
		log:          zap.NewNop(),
		ctx:          context.Background(),
		emit:         emit,
		lastSeq:      -1,
		colOpts:      colOpts,
		materializer: report.NewMaterializer(report.OptionsFromConfig(cfg)),
		metrics:      metrics.NewSessionCollector(""),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("session_id", s.id))
	return s, nil
}

// ID returns the unique identifier of the session.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Columns returns the schema discovered so far, or nil once the session is
// terminal.
func (s *Session) Columns() []ColumnSchema {
	if s.state.Terminal() {
		return nil
	}
	out := make([]ColumnSchema, len(s.columns))
	for i, c := range s.columns {
		out[i] = ColumnSchema{Name: c.Name(), Ordinal: c.Ordinal(), Type: c.Type()}
	}
	return out
}

// Start moves an idle session to Initializing.
func (s *Session) Start(hints SchemaHints) error {
	if s.state != StateIdle {
		return s.violation("start")
	}
	s.hints = hints
	s.started = time.Now()
	s.metrics.Start()
	s.transition(StateInitializing)
	return nil
}

// PushChunk feeds the next chunk. seq must be greater than the previous
// chunk's; a regression fails the session. The chunk is not retained after
// PushChunk returns.
func (s *Session) PushChunk(chunk []byte, seq int64) error {
	if s.state != StateInitializing && s.state != StateStreaming {
		return s.violation("pushChunk")
	}
	if seq <= s.lastSeq {
		return s.fail(errors.Newf(errors.KindProtocol,
			"chunk sequence %d does not follow %d", seq, s.lastSeq))
	}
	s.lastSeq = seq
	if s.cancelled() {
		s.cancel()
		return nil
	}

	s.bytes += int64(len(chunk))
	s.metrics.ObserveChunk(len(chunk))

	if s.state == StateInitializing {
		s.sniffBuf = append(s.sniffBuf, chunk...)
		s.progress()
		if len(s.sniffBuf) >= s.cfg.Input.SniffBytes {
			return s.initialize(false)
		}
		return nil
	}

	if err := s.feed(chunk); err != nil {
		return s.feedFailed(err)
	}
	s.progress()
	return nil
}

// EndOfInput finalizes the session and emits the report.
func (s *Session) EndOfInput() error {
	switch s.state {
	case StateInitializing:
		if err := s.initialize(true); err != nil {
			return err
		}
		if s.state != StateStreaming {
			return nil
		}
		return s.finalize()
	case StateStreaming:
		return s.finalize()
	default:
		return s.violation("endOfInput")
	}
}

// Cancel discards all state and ends the session in Cancelled. It is a
// no-op on a terminal session.
func (s *Session) Cancel() error {
	if s.state.Terminal() {
		return nil
	}
	s.cancel()
	return nil
}

// Abort fails the session with err, typically a SOURCE_ERROR from the chunk
// source. It is a no-op on a terminal session.
func (s *Session) Abort(err error) error {
	if s.state.Terminal() {
		return nil
	}
	return s.fail(err)
}

func (s *Session) initialize(atEOF bool) error {
	_, span := observability.StartSpan(s.ctx, "prism.session.initialize")
	defer span.End()
	span.SetAttribute("session_id", s.id)
	span.SetAttribute("sample_bytes", len(s.sniffBuf))

	dialect, err := ResolveDialect(s.cfg.Input, s.sniffBuf, atEOF)
	if err != nil {
		span.Fail(err)
		return s.fail(err)
	}
	reasm, err := parser.New(parser.Options{
		Format:          dialect.Format,
		Delimiter:       dialect.Delimiter,
		HasHeader:       dialect.HasHeader,
		MaxPendingBytes: s.cfg.Input.MaxPendingBytes,
		MaxNestedDepth:  s.cfg.JSON.MaxNestedDepth,
		MaxKeys:         s.cfg.JSON.MaxKeys,
	})
	if err != nil {
		span.Fail(err)
		return s.fail(err)
	}
	span.SetAttribute("format", string(dialect.Format))

	s.dialect = dialect
	s.reasm = reasm
	s.correlation = accumulator.NewCorrelation(s.cfg.Quality.CorrelationMaxColumns)
	s.duplicates = sketch.NewDuplicateFilter(
		s.cfg.Sketches.DuplicateFilterCapacity,
		s.cfg.Sketches.DuplicateFalsePositiveRate,
	)
	s.metrics.SetFormat(string(dialect.Format))
	s.transition(StateStreaming)

	buffered := s.sniffBuf
	s.sniffBuf = nil
	if err := s.feed(buffered); err != nil {
		return s.feedFailed(err)
	}
	if err := s.syncColumns(); err != nil {
		return s.fail(err)
	}

	schema := s.Columns()
	s.log.Info("session ready",
		zap.String("format", string(dialect.Format)),
		zap.String("delimiter", string(dialect.Delimiter)),
		zap.Bool("has_header", dialect.HasHeader),
		zap.Int("columns", len(schema)))
	s.emit(Event{Kind: EventReady, Dialect: dialect, Schema: schema})
	return nil
}

// ResolveDialect decides the record format of an input from its leading
// sample and the forced input settings. atEOF reports that sample is the
// whole input.
func ResolveDialect(in config.InputConfig, sample []byte, atEOF bool) (parser.Dialect, error) {
	if len(bytes.TrimSpace(sample)) == 0 {
		return parser.Dialect{}, errors.New(errors.KindParse, "input is empty")
	}

	switch in.Format {
	case config.FormatJSON:
		f := parser.DetectFormat(sample)
		if f != parser.FormatJSONArray {
			f = parser.FormatJSONLines
		}
		return parser.Dialect{Format: f}, nil
	case config.FormatAvro:
		return parser.Dialect{Format: parser.FormatAvro}, nil
	case config.FormatCSV:
		return delimited(in, sample, atEOF)
	}
	if f := parser.DetectFormat(sample); f != parser.FormatCSV {
		return parser.Dialect{Format: f}, nil
	}
	return delimited(in, sample, atEOF)
}

func delimited(in config.InputConfig, sample []byte, atEOF bool) (parser.Dialect, error) {
	delim := in.DelimiterByte()
	if delim != 0 && in.HasHeader != nil {
		return parser.Dialect{Format: parser.FormatCSV, Delimiter: delim, HasHeader: *in.HasHeader}, nil
	}

	d, err := parser.SniffDelimited(sample, atEOF)
	if err != nil {
		if delim == 0 {
			return parser.Dialect{}, err
		}
		d = parser.Dialect{Format: parser.FormatCSV, HasHeader: true}
	}
	if delim != 0 {
		d.Delimiter = delim
	}
	if in.HasHeader != nil {
		d.HasHeader = *in.HasHeader
	}
	return d, nil
}

func (s *Session) feed(chunk []byte) error {
	before := s.records
	err := s.reasm.Feed(chunk, s.observe)
	s.metrics.ObserveRecords(s.records - before)
	return err
}

func (s *Session) feedFailed(err error) error {
	if errors.IsKind(err, errors.KindCancelled) {
		s.cancel()
		return nil
	}
	return s.fail(err)
}

func (s *Session) observe(rec *parser.Record) error {
	if err := s.syncColumns(); err != nil {
		return err
	}
	for i, c := range s.columns {
		var field []byte
		arrayLen := -1
		if i < len(rec.Fields) {
			field = rec.Fields[i]
		}
		if i < len(rec.ArrayLens) {
			arrayLen = rec.ArrayLens[i]
		}
		c.Observe(field, arrayLen)
	}
	s.correlation.Observe(rec.Fields)
	s.canonical = rec.Canonical(s.canonical[:0])
	s.duplicates.Observe(s.canonical)

	s.records++
	if s.records == int64(s.colOpts.SampleWindowSize) {
		s.logLockedTypes()
	}
	if s.records%cancelCheckInterval == 0 && s.cancelled() {
		return errCancelled
	}
	return nil
}

// syncColumns creates accumulators for columns the reassembler discovered
// since the last record. Late columns are back-filled with one missing
// value per earlier record.
func (s *Session) syncColumns() error {
	names := s.reasm.Columns()
	for i := len(s.columns); i < len(names); i++ {
		c, err := accumulator.NewColumn(names[i], i, s.colOpts)
		if err != nil {
			return errors.Wrap(err, errors.KindInternal, "failed to create column accumulator")
		}
		if t, ok := s.hints.ColumnTypes[names[i]]; ok {
			c.Hint(t)
		}
		c.ObserveMissing(s.records)
		s.columns = append(s.columns, c)
	}
	return nil
}

func (s *Session) logLockedTypes() {
	if ce := s.log.Check(zap.DebugLevel, "sample window closed"); ce != nil {
		fields := make([]zap.Field, 0, len(s.columns))
		for _, c := range s.columns {
			fields = append(fields, zap.Stringer(c.Name(), c.Type()))
		}
		ce.Write(fields...)
	}
}

func (s *Session) finalize() error {
	s.transition(StateFinalizing)
	timer := metrics.NewTimer()
	_, span := observability.StartSpan(s.ctx, "prism.session.finalize")
	defer span.End()
	span.SetAttribute("session_id", s.id)

	before := s.records
	err := s.reasm.Finalize(s.observe)
	s.metrics.ObserveRecords(s.records - before)
	if err != nil {
		span.Fail(err)
		return s.feedFailed(err)
	}
	if err := s.syncColumns(); err != nil {
		span.Fail(err)
		return s.fail(err)
	}

	summaries := make([]accumulator.Summary, len(s.columns))
	var nonConforming int64
	for i, c := range s.columns {
		summaries[i] = c.Summary()
		nonConforming += summaries[i].NonConforming
	}
	stats := s.reasm.Stats()
	rep := s.materializer.Materialize(&report.Input{
		Columns:        summaries,
		Correlation:    s.correlation,
		Dialect:        s.dialect,
		Stats:          stats,
		TotalRows:      s.records,
		BytesProcessed: s.bytes,
		Duplicates:     s.duplicates.Duplicates(),
		Elapsed:        time.Since(s.started),
		Source:         s.source,
	})

	s.metrics.ObserveAnomalies(string(errors.KindFieldCountMismatch), stats.FieldCountMismatches)
	s.metrics.ObserveAnomalies(string(errors.KindUnsupportedCoercion), nonConforming)
	s.metrics.ObserveAnomalies("malformed_record", stats.MalformedRecords)
	s.metrics.ObserveAnomalies("duplicate_row", rep.DuplicateRows)
	s.metrics.ObserveFinalize(timer.Stop())
	span.SetAttribute("columns", len(summaries))
	span.SetAttribute("records", s.records)

	s.transition(StateCompleted)
	s.release()
	s.metrics.Finish(metrics.OutcomeCompleted)
	s.log.Info("session completed",
		zap.Int64("rows", rep.TotalRows),
		zap.Int("columns", len(rep.Columns)),
		zap.Int64("bytes", rep.BytesProcessed),
		zap.Int64("elapsed_ms", rep.ElapsedMs))
	s.emit(Event{Kind: EventReport, Report: rep})
	return nil
}

func (s *Session) cancel() {
	s.transition(StateCancelled)
	s.release()
	s.metrics.Finish(metrics.OutcomeCancelled)
	s.log.Info("session cancelled", zap.Int64("records", s.records))
	s.emit(Event{Kind: EventCancelled})
}

// fail moves the session to Failed and emits the error event. The returned
// error is the structured form of err.
func (s *Session) fail(err error) error {
	var e *errors.Error
	if !errors.As(err, &e) {
		e = errors.Wrap(err, errors.KindInternal, "unexpected session failure")
	}
	if e.RecordIndex < 0 && (e.Kind == errors.KindParse || e.Kind == errors.KindResourceExhausted) && s.reasm != nil {
		e.RecordIndex = s.records
	}

	from := s.state
	s.transition(StateFailed)
	s.release()
	s.metrics.Finish(metrics.OutcomeFailed)
	s.log.Error("session failed",
		zap.Stringer("from", from),
		zap.String("kind", string(e.Kind)),
		zap.Int64("record_index", e.RecordIndex),
		zap.Error(e))
	s.emit(Event{Kind: EventError, Err: newErrorEvent(e)})
	return e
}

// violation rejects a message that is not allowed in the current state.
// The state does not change and no event is emitted.
func (s *Session) violation(op string) error {
	return errors.Newf(errors.KindProtocol, "%s is not allowed in state %s", op, s.state)
}

func (s *Session) cancelled() bool {
	return s.cancelRequested != nil && s.cancelRequested()
}

func (s *Session) progress() {
	s.emit(Event{Kind: EventProgress, BytesProcessed: s.bytes, TotalBytesHint: s.sizeHint})
}

func (s *Session) transition(to State) {
	if s.state == StateStreaming && s.streamSpan != nil {
		s.streamSpan.SetAttribute("records", s.records)
		s.streamSpan.SetAttribute("bytes", s.bytes)
		s.streamSpan.End()
		s.streamSpan = nil
	}
	s.log.Debug("session state", zap.Stringer("from", s.state), zap.Stringer("to", to))
	s.state = to
	if to == StateStreaming {
		_, s.streamSpan = observability.StartSpan(s.ctx, "prism.session.stream")
		s.streamSpan.SetAttribute("session_id", s.id)
	}
}

// release drops every reference to accumulator and parser state.
func (s *Session) release() {
	s.sniffBuf = nil
	s.reasm = nil
	s.columns = nil
	s.correlation = nil
	s.duplicates = nil
	s.canonical = nil
}
