// Package pipeline drives chunk sources through profiling sessions.
//
// # Overview
//
// A Runner pumps one ChunkSource into a session Host and collects the
// outcome. RunAll profiles several inputs concurrently, each in its own
// independent session.
//
// # Basic Usage
//
//	runner := pipeline.NewRunner(cfg, logger)
//	rep, err := runner.Run(ctx, src, "users.csv", session.SchemaHints{})
//
// Cancelling ctx cancels the session cooperatively; Run then returns a
// CANCELLED error.
package pipeline

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/prism/pkg/config"
	"github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/report"
	"github.com/ajitpratap0/prism/pkg/session"
	"github.com/ajitpratap0/prism/pkg/source"
)

// ProgressFunc observes the progress events of a run.
type ProgressFunc func(name string, processed, total int64)

// Runner profiles inputs with one configuration.
type Runner struct {
	cfg      *config.ProfileConfig
	logger   *zap.Logger
	progress ProgressFunc
}

// NewRunner creates a runner. A nil logger discards logs.
func NewRunner(cfg *config.ProfileConfig, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, logger: logger.With(zap.String("component", "pipeline"))}
}

// OnProgress installs a progress observer. It runs on the event goroutine
// and must not block.
func (r *Runner) OnProgress(fn ProgressFunc) *Runner {
	r.progress = fn
	return r
}

type outcome struct {
	report *report.Report
	err    error
}

// Run profiles src to completion. The source is not closed.
func (r *Runner) Run(ctx context.Context, src source.ChunkSource, name string, hints session.SchemaHints) (*report.Report, error) {
	logger := r.logger.With(zap.String("source", name))
	h, err := session.NewHost(r.cfg,
		session.WithLogger(logger),
		session.WithContext(ctx),
		session.WithSizeHint(src.SizeHint()),
		session.WithSource(name),
	)
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("session_id", h.SessionID()))

	stop := context.AfterFunc(ctx, h.Cancel)
	defer stop()

	done := make(chan outcome, 1)
	go r.collect(h, name, logger, done)

	start := time.Now()
	r.pump(ctx, h, src, hints, logger)
	res := <-done

	if res.err != nil {
		logger.Warn("profiling did not complete",
			zap.String("kind", string(errors.KindOf(res.err))),
			zap.Duration("duration", time.Since(start)))
		return nil, res.err
	}
	return res.report, nil
}

// pump feeds the host until the source is exhausted or the session stops
// accepting chunks.
func (r *Runner) pump(ctx context.Context, h *session.Host, src source.ChunkSource, hints session.SchemaHints, logger *zap.Logger) {
	if err := h.Start(hints); err != nil {
		h.Cancel()
		return
	}
	for {
		chunk, err := src.Next(ctx)
		if err == io.EOF {
			_ = h.EndOfInput()
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				h.Cancel()
				return
			}
			logger.Error("chunk source failed", zap.Error(err))
			if !errors.IsKind(err, errors.KindSource) {
				err = errors.Wrap(err, errors.KindSource, "failed to read input")
			}
			_ = h.Abort(err)
			return
		}
		if err := h.PushChunk(chunk.Data, chunk.Seq); err != nil {
			// the session already ended; its terminal event says why
			return
		}
	}
}

func (r *Runner) collect(h *session.Host, name string, logger *zap.Logger, done chan<- outcome) {
	var res outcome
	for ev := range h.Events() {
		switch ev.Kind {
		case session.EventReady:
			logger.Debug("session ready",
				zap.String("format", string(ev.Dialect.Format)),
				zap.Int("columns", len(ev.Schema)))
		case session.EventProgress:
			if r.progress != nil {
				r.progress(name, ev.BytesProcessed, ev.TotalBytesHint)
			}
		case session.EventReport:
			res.report = ev.Report
		case session.EventError:
			e := errors.New(ev.Err.Kind, ev.Err.Message).WithRecord(ev.Err.RecordIndex)
			for k, v := range ev.Err.Details {
				e.WithDetail(k, v)
			}
			res.err = e
		case session.EventCancelled:
			res.err = errors.New(errors.KindCancelled, "profiling cancelled")
		}
	}
	done <- res
}
