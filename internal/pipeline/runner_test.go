package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/prism/pkg/config"
	"github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/session"
	"github.com/ajitpratap0/prism/pkg/source"
	"github.com/ajitpratap0/prism/pkg/testutil"
	"github.com/ajitpratap0/prism/pkg/types"
)

func csvInput(rows int) []byte {
	var sb strings.Builder
	sb.WriteString("id,amount,city\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "%d,%d.5,city%d\n", i, i%50, i%7)
	}
	return []byte(sb.String())
}

func TestRunProfilesSource(t *testing.T) {
	data := csvInput(1000)
	var mu sync.Mutex
	var last int64
	runner := NewRunner(config.NewProfileConfig(), zaptest.NewLogger(t)).
		OnProgress(func(name string, processed, total int64) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, "mem.csv", name)
			assert.Equal(t, int64(len(data)), total)
			last = processed
		})

	rep, err := runner.Run(context.Background(), source.NewBytesSource(data, 1000), "mem.csv", session.SchemaHints{})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), rep.TotalRows)
	assert.Equal(t, "mem.csv", rep.Meta.Source)
	assert.Equal(t, types.Integer, rep.Column("id").InferredType)
	assert.Equal(t, types.Numeric, rep.Column("amount").InferredType)

	mu.Lock()
	assert.Equal(t, int64(len(data)), last)
	mu.Unlock()
}

func TestRunProfilesJSONLines(t *testing.T) {
	data := []byte(testutil.SyntheticJSONL(300))
	runner := NewRunner(config.NewProfileConfig(), testutil.TestLogger(t))

	rep, err := runner.Run(testutil.TestContext(t), source.NewBytesSource(data, 512), "events.jsonl", session.SchemaHints{})
	require.NoError(t, err)
	assert.Equal(t, "jsonl", rep.Format)
	assert.Equal(t, int64(300), rep.TotalRows)
	require.NotNil(t, rep.Column("user.name"))
	extra := rep.Column("extra")
	require.NotNil(t, extra)
	assert.Equal(t, int64(200), extra.MissingCount)
}

type flakySource struct {
	*source.BytesSource
	failAt int
	calls  int
	err    error
	onFail func()
}

func (f *flakySource) Next(ctx context.Context) (source.Chunk, error) {
	f.calls++
	if f.calls == f.failAt {
		if f.onFail != nil {
			f.onFail()
			return source.Chunk{}, ctx.Err()
		}
		return source.Chunk{}, f.err
	}
	return f.BytesSource.Next(ctx)
}

func TestRunReportsSourceErrors(t *testing.T) {
	src := &flakySource{
		BytesSource: source.NewBytesSource(csvInput(500), 256),
		failAt:      4,
		err:         io.ErrUnexpectedEOF,
	}
	runner := NewRunner(config.NewProfileConfig(), zaptest.NewLogger(t))
	rep, err := runner.Run(context.Background(), src, "flaky.csv", session.SchemaHints{})
	assert.Nil(t, rep)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindSource))
	assert.True(t, errors.IsRecoverable(err))
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &flakySource{
		BytesSource: source.NewBytesSource(csvInput(500), 256),
		failAt:      3,
		onFail:      cancel,
	}
	runner := NewRunner(config.NewProfileConfig(), zaptest.NewLogger(t))
	rep, err := runner.Run(ctx, src, "slow.csv", session.SchemaHints{})
	assert.Nil(t, rep)
	assert.True(t, errors.IsKind(err, errors.KindCancelled))
}

func TestRunReportsParseErrors(t *testing.T) {
	runner := NewRunner(config.NewProfileConfig(), nil)
	_, err := runner.Run(context.Background(), source.NewBytesSource(nil, 16), "empty.csv", session.SchemaHints{})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindParse))
}

func TestRunAllKeepsJobOrder(t *testing.T) {
	runner := NewRunner(config.NewProfileConfig(), zaptest.NewLogger(t))
	openBytes := func(rows int) func() (source.ChunkSource, error) {
		return func() (source.ChunkSource, error) {
			return source.NewBytesSource(csvInput(rows), 512), nil
		}
	}
	jobs := []Job{
		{Name: "a.csv", Open: openBytes(10)},
		{Name: "missing.csv", Open: func() (source.ChunkSource, error) {
			return nil, errors.New(errors.KindSource, "no such file")
		}},
		{Name: "b.csv", Open: openBytes(300)},
		{Name: "c.csv", Open: openBytes(42)},
	}

	results := runner.RunAll(context.Background(), jobs, 2)
	require.Len(t, results, 4)
	assert.Equal(t, "a.csv", results[0].Name)
	assert.Equal(t, int64(10), results[0].Report.TotalRows)
	assert.True(t, errors.IsKind(results[1].Err, errors.KindSource))
	assert.Nil(t, results[1].Report)
	assert.Equal(t, int64(300), results[2].Report.TotalRows)
	assert.Equal(t, int64(42), results[3].Report.TotalRows)
}
