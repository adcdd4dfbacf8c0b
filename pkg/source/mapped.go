package source

import (
	"bytes"
	"context"
	"io"

	"github.com/ajitpratap0/prism/pkg/compression"
	"github.com/ajitpratap0/prism/pkg/errors"
	"github.com/ajitpratap0/prism/pkg/mmap"
)

// MappedSource serves a memory-mapped local file in chunk-sized windows
// without copying. Chunks alias the mapping and are invalid after Close.
type MappedSource struct {
	m    *mmap.Reader
	size int64
	off  int64
	seq  int64
}

// MapFile opens path as a mapped source. A compressed file is decompressed
// from the mapping through the regular reader path.
func MapFile(path string, opts Options) (ChunkSource, error) {
	if !mmap.Supported() {
		return nil, errors.New(errors.KindSource, "memory mapping is not supported on this platform")
	}
	m, err := mmap.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindSource, "failed to map input").
			WithDetail("path", path)
	}

	alg := opts.Compression
	if alg == "" || alg == compression.Auto {
		header, _ := m.Slice(0, compression.HeaderSize)
		alg = compression.Detect(header)
		if alg == compression.None {
			alg = compression.FromExtension(path)
		}
	}
	if alg != compression.None {
		data, _ := m.Slice(0, m.Len())
		opts.Compression = alg
		src, err := NewDecompressingSource(&mappedReader{Reader: bytes.NewReader(data), m: m}, path, m.Len(), opts)
		if err != nil {
			m.Close()
			return nil, err
		}
		return src, nil
	}
	return &MappedSource{m: m, size: int64(opts.chunkSize())}, nil
}

func (ms *MappedSource) Next(ctx context.Context) (Chunk, error) {
	if err := ctx.Err(); err != nil {
		return Chunk{}, err
	}
	data, err := ms.m.Slice(ms.off, ms.size)
	if err != nil {
		if err == io.EOF {
			return Chunk{}, io.EOF
		}
		return Chunk{}, errors.Wrap(err, errors.KindSource, "failed to read mapped input")
	}
	c := Chunk{Data: data, Seq: ms.seq}
	ms.off += int64(len(data))
	ms.seq++
	return c, nil
}

func (ms *MappedSource) SizeHint() int64 { return ms.m.Len() }

// Close unmaps the file.
func (ms *MappedSource) Close() error { return ms.m.Close() }

// mappedReader reads a mapping and unmaps it on Close.
type mappedReader struct {
	*bytes.Reader
	m *mmap.Reader
}

func (r *mappedReader) Close() error { return r.m.Close() }
