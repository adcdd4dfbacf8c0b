// Package source supplies ordered byte chunks to profiling sessions.
//
// A ChunkSource yields chunks of arbitrary size in input order until io.EOF.
// Chunk boundaries carry no meaning; the session reassembles records across
// them.
package source

import (
	"bufio"
	"context"
	"io"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/ajitpratap0/prism/pkg/clients"
	"github.com/ajitpratap0/prism/pkg/compression"
	"github.com/ajitpratap0/prism/pkg/config"
	"github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/pool"
)

// DefaultChunkSize is used when Options.ChunkSize is not positive.
const DefaultChunkSize = 1 << 20

// Chunk is one slice of input. Data is only valid until the next call to
// Next.
type Chunk struct {
	Data []byte
	Seq  int64
}

// ChunkSource produces the chunks of one input.
type ChunkSource interface {
	// Next returns the next chunk, or io.EOF after the last one. Read
	// failures are SOURCE_ERROR.
	Next(ctx context.Context) (Chunk, error)
	// SizeHint is the total input size in bytes, or 0 when unknown. For a
	// compressed input it is the compressed size.
	SizeHint() int64
	Close() error
}

// Options configure how inputs are opened.
type Options struct {
	ChunkSize int
	// Compression forces a decompressor; Auto detects it.
	Compression compression.Algorithm
	// Region is the object store region for s3:// inputs.
	Region string
	// Anonymous skips credential lookup for public buckets.
	Anonymous bool
	// HTTP configures http(s) downloads; nil uses the client defaults.
	HTTP *clients.HTTPConfig
	// Logger receives client diagnostics; nil discards them.
	Logger *zap.Logger
}

// OptionsFromConfig takes the input settings of a validated configuration.
func OptionsFromConfig(cfg *config.ProfileConfig) (Options, error) {
	alg, err := compression.ParseAlgorithm(cfg.Input.Compression)
	if err != nil {
		return Options{}, errors.Wrap(err, errors.KindConfig, "invalid compression setting")
	}
	return Options{ChunkSize: cfg.Input.ChunkSize, Compression: alg}, nil
}

func (o Options) chunkSize() int {
	if o.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return o.ChunkSize
}

// ReaderSource reads chunks from an io.Reader into one reused buffer.
type ReaderSource struct {
	r      io.Reader
	closer io.Closer
	buf    []byte
	size   int64
	seq    int64
	done   bool
}

// NewReaderSource wraps r. sizeHint may be 0. If r is an io.Closer, Close
// closes it.
func NewReaderSource(r io.Reader, chunkSize int, sizeHint int64) *ReaderSource {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	rs := &ReaderSource{r: r, buf: pool.GlobalBufferPool.Get(chunkSize), size: sizeHint}
	if c, ok := r.(io.Closer); ok {
		rs.closer = c
	}
	return rs
}

// Next reads up to one chunk. Short reads are returned as they come.
func (rs *ReaderSource) Next(ctx context.Context) (Chunk, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Chunk{}, err
		}
		if rs.done || rs.buf == nil {
			return Chunk{}, io.EOF
		}
		n, err := rs.r.Read(rs.buf)
		if err == io.EOF {
			rs.done = true
		} else if err != nil {
			rs.done = true
			return Chunk{}, errors.Wrap(err, errors.KindSource, "failed to read input")
		}
		if n > 0 {
			c := Chunk{Data: rs.buf[:n], Seq: rs.seq}
			rs.seq++
			return c, nil
		}
	}
}

func (rs *ReaderSource) SizeHint() int64 { return rs.size }

// Close releases the chunk buffer and closes the underlying reader.
func (rs *ReaderSource) Close() error {
	if rs.buf != nil {
		pool.GlobalBufferPool.Put(rs.buf)
		rs.buf = nil
	}
	if rs.closer != nil {
		c := rs.closer
		rs.closer = nil
		return c.Close()
	}
	return nil
}

// BytesSource serves an in-memory input in fixed-size slices without
// copying.
type BytesSource struct {
	data  []byte
	size  int
	off   int
	seq   int64
	total int64
}

// NewBytesSource splits data into chunks of chunkSize bytes.
func NewBytesSource(data []byte, chunkSize int) *BytesSource {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &BytesSource{data: data, size: chunkSize, total: int64(len(data))}
}

func (bs *BytesSource) Next(ctx context.Context) (Chunk, error) {
	if err := ctx.Err(); err != nil {
		return Chunk{}, err
	}
	if bs.off >= len(bs.data) {
		return Chunk{}, io.EOF
	}
	end := bs.off + bs.size
	if end > len(bs.data) {
		end = len(bs.data)
	}
	c := Chunk{Data: bs.data[bs.off:end], Seq: bs.seq}
	bs.off = end
	bs.seq++
	return c, nil
}

func (bs *BytesSource) SizeHint() int64 { return bs.total }

func (bs *BytesSource) Close() error { return nil }

// NewDecompressingSource reads r, decompressing it when opts or the stream
// itself call for it. With Auto, the leading bytes are matched against known
// magic numbers and name's extension is the fallback. sizeHint is the size
// of the raw stream.
func NewDecompressingSource(r io.Reader, name string, sizeHint int64, opts Options) (ChunkSource, error) {
	br := bufio.NewReaderSize(r, 4096)
	alg := opts.Compression
	if alg == "" || alg == compression.Auto {
		header, err := br.Peek(compression.HeaderSize)
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return nil, errors.Wrap(err, errors.KindSource, "failed to read input header").
				WithDetail("source", name)
		}
		alg = compression.Detect(header)
		if alg == compression.None {
			alg = compression.FromExtension(name)
		}
	}

	dr, err := compression.NewReader(br, alg)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindSource, "failed to open decompressor").
			WithDetail("source", name).
			WithDetail("compression", string(alg))
	}
	closers := multiCloser{dr}
	if c, ok := r.(io.Closer); ok {
		closers = append(closers, c)
	}
	rs := NewReaderSource(dr, opts.chunkSize(), sizeHint)
	rs.closer = closers
	return rs, nil
}

// OpenFile opens path on fs as a chunk source.
func OpenFile(fs afero.Fs, path string, opts Options) (ChunkSource, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindSource, "failed to open input").
			WithDetail("path", path)
	}
	var size int64
	if info, err := f.Stat(); err == nil {
		if info.IsDir() {
			f.Close()
			return nil, errors.New(errors.KindSource, "input is a directory").
				WithDetail("path", path)
		}
		size = info.Size()
	}
	src, err := NewDecompressingSource(f, path, size, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	return src, nil
}

// multiCloser closes every element, keeping the first error.
type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
