package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/prism/pkg/report"
	"github.com/ajitpratap0/prism/pkg/session"
	"github.com/ajitpratap0/prism/pkg/source"
)

// Job is one input of a multi-input run. Open is called when the job is
// scheduled, so at most the concurrency limit of sources is open at once.
type Job struct {
	Name  string
	Open  func() (source.ChunkSource, error)
	Hints session.SchemaHints
}

// Result is the outcome of one job.
type Result struct {
	Name   string
	Report *report.Report
	Err    error
}

// RunAll profiles every job with at most concurrency sessions in flight.
// Results are in job order. A failed job does not stop the others.
func (r *Runner) RunAll(ctx context.Context, jobs []Job, concurrency int) []Result {
	results := make([]Result, len(jobs))
	var g errgroup.Group
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			results[i] = r.runJob(ctx, job)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runner) runJob(ctx context.Context, job Job) Result {
	res := Result{Name: job.Name}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	src, err := job.Open()
	if err != nil {
		res.Err = err
		return res
	}
	defer func() {
		if err := src.Close(); err != nil {
			r.logger.Warn("failed to close source", zap.String("source", job.Name), zap.Error(err))
		}
	}()
	res.Report, res.Err = r.Run(ctx, src, job.Name, job.Hints)
	return res
}
