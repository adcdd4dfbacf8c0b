// Package compression detects and streams compressed inputs and outputs for
// Prism.
//
// Inputs are recognized by their magic bytes, or by file extension for
// formats that have none (raw deflate). Every reader decompresses
// incrementally, so a compressed source is profiled with the same bounded
// memory as a plain one.
//
// # Supported Algorithms
//
//   - Gzip (.gz) and Deflate (.deflate)
//   - Zstd (.zst)
//   - LZ4 frames (.lz4)
//   - S2 (.s2) and Snappy framed streams (.sz)
//
// # Basic Usage
//
//	alg := compression.Detect(header)
//	rc, err := compression.NewReader(r, alg)
//	defer rc.Close()
package compression

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm identifies a compression format.
type Algorithm string

const (
	None    Algorithm = "none"
	Gzip    Algorithm = "gzip"
	Snappy  Algorithm = "snappy"
	LZ4     Algorithm = "lz4"
	Zstd    Algorithm = "zstd"
	S2      Algorithm = "s2"
	Deflate Algorithm = "deflate"
	// Auto asks the caller to detect the format.
	Auto Algorithm = "auto"
)

// Level trades speed for ratio when writing.
type Level int

const (
	Fastest Level = 1
	Default Level = 5
	Better  Level = 7
	Best    Level = 9
)

func (l Level) String() string {
	switch l {
	case Fastest:
		return "fastest"
	case Default:
		return "default"
	case Better:
		return "better"
	case Best:
		return "best"
	default:
		return "unknown"
	}
}

// HeaderSize is how many leading bytes Detect needs.
const HeaderSize = 10

var magics = []struct {
	alg   Algorithm
	magic []byte
}{
	{Gzip, []byte{0x1f, 0x8b}},
	{Zstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{LZ4, []byte{0x04, 0x22, 0x4d, 0x18}},
	{Snappy, []byte("\xff\x06\x00\x00sNaPpY")},
	{S2, []byte("\xff\x06\x00\x00S2sTwO")},
}

var extensions = map[string]Algorithm{
	".gz":      Gzip,
	".gzip":    Gzip,
	".zst":     Zstd,
	".zstd":    Zstd,
	".lz4":     LZ4,
	".s2":      S2,
	".sz":      Snappy,
	".deflate": Deflate,
}

// Detect identifies a stream by its leading bytes. Unknown headers are None.
func Detect(header []byte) Algorithm {
	for _, m := range magics {
		if bytes.HasPrefix(header, m.magic) {
			return m.alg
		}
	}
	return None
}

// FromExtension identifies a file by its name, or None.
func FromExtension(name string) Algorithm {
	if alg, ok := extensions[strings.ToLower(filepath.Ext(name))]; ok {
		return alg
	}
	return None
}

// TrimExtension strips a compression extension from name, so
// "users.csv.gz" yields "users.csv".
func TrimExtension(name string) string {
	if FromExtension(name) == None {
		return name
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// ParseAlgorithm parses a configured algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch alg := Algorithm(strings.ToLower(s)); alg {
	case "", Auto:
		return Auto, nil
	case None, Gzip, Snappy, LZ4, Zstd, S2, Deflate:
		return alg, nil
	}
	return "", fmt.Errorf("unsupported compression algorithm: %s", s)
}

// NewReader returns a streaming decompressor over r. Closing it does not
// close r.
func NewReader(r io.Reader, alg Algorithm) (io.ReadCloser, error) {
	switch alg {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		return gzip.NewReader(r)
	case Deflate:
		return flate.NewReader(r), nil
	case Zstd:
		d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case S2:
		return io.NopCloser(s2.NewReader(r)), nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	}
	return nil, fmt.Errorf("unsupported compression algorithm: %s", alg)
}

// NewWriter returns a streaming compressor writing to w. Close flushes the
// stream but does not close w.
func NewWriter(w io.Writer, alg Algorithm, level Level) (io.WriteCloser, error) {
	switch alg {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriterLevel(w, mapFlateLevel(level))
	case Deflate:
		return flate.NewWriter(w, mapFlateLevel(level))
	case Zstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(mapZstdLevel(level)))
	case LZ4:
		lw := lz4.NewWriter(w)
		if err := lw.Apply(lz4.CompressionLevelOption(mapLZ4Level(level))); err != nil {
			return nil, err
		}
		return lw, nil
	case S2:
		if level >= Better {
			return s2.NewWriter(w, s2.WriterBetterCompression()), nil
		}
		return s2.NewWriter(w), nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	}
	return nil, fmt.Errorf("unsupported compression algorithm: %s", alg)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func mapFlateLevel(level Level) int {
	switch level {
	case Fastest:
		return flate.BestSpeed
	case Best:
		return flate.BestCompression
	case Better:
		return 7
	default:
		return flate.DefaultCompression
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Better:
		return lz4.Level5
	case Best:
		return lz4.Level9
	default:
		return lz4.Level1
	}
}
