package source

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/prism/pkg/compression"
	"github.com/ajitpratap0/prism/pkg/config"
	"github.com/ajitpratap0/prism/pkg/errors"
)

const input = "id,name\n1,alice\n2,bob\n3,carol\n"

func readAll(t *testing.T, src ChunkSource) ([]byte, int) {
	t.Helper()
	var out []byte
	chunks := 0
	for {
		c, err := src.Next(context.Background())
		if err == io.EOF {
			return out, chunks
		}
		require.NoError(t, err)
		assert.Equal(t, int64(chunks), c.Seq)
		out = append(out, c.Data...)
		chunks++
	}
}

func TestBytesSource(t *testing.T) {
	src := NewBytesSource([]byte(input), 5)
	assert.Equal(t, int64(len(input)), src.SizeHint())
	got, chunks := readAll(t, src)
	assert.Equal(t, input, string(got))
	assert.Equal(t, (len(input)+4)/5, chunks)
	assert.NoError(t, src.Close())
}

func TestReaderSourceHonorsContext(t *testing.T) {
	src := NewReaderSource(bytes.NewReader([]byte(input)), 8, 0)
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestReaderSourceWrapsReadErrors(t *testing.T) {
	src := NewReaderSource(failingReader{}, 8, 0)
	_, err := src.Next(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindSource))
	assert.True(t, errors.IsRecoverable(err))
	_, err = src.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func writeCompressed(t *testing.T, fs afero.Fs, path string, alg compression.Algorithm) int64 {
	t.Helper()
	var buf bytes.Buffer
	w, err := compression.NewWriter(&buf, alg, compression.Default)
	require.NoError(t, err)
	_, err = w.Write([]byte(input))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0o644))
	return int64(buf.Len())
}

func TestOpenFileDecompresses(t *testing.T) {
	fs := afero.NewMemMapFs()
	opts := Options{ChunkSize: 7, Compression: compression.Auto}

	require.NoError(t, afero.WriteFile(fs, "/data/plain.csv", []byte(input), 0o644))
	cases := map[string]compression.Algorithm{
		"/data/plain.csv":     compression.None,
		"/data/users.csv.gz":  compression.Gzip,
		"/data/users.csv.zst": compression.Zstd,
		"/data/users.csv.lz4": compression.LZ4,
		"/data/users.deflate": compression.Deflate,
		// misleading extension, detected by magic bytes
		"/data/users.bin": compression.S2,
	}
	for path, alg := range cases {
		t.Run(path, func(t *testing.T) {
			size := int64(len(input))
			if alg != compression.None {
				size = writeCompressed(t, fs, path, alg)
			}
			src, err := OpenFile(fs, path, opts)
			require.NoError(t, err)
			defer src.Close()

			assert.Equal(t, size, src.SizeHint())
			got, _ := readAll(t, src)
			assert.Equal(t, input, string(got))
		})
	}
}

func TestOpenFileErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := OpenFile(fs, "/missing.csv", Options{})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindSource))

	require.NoError(t, fs.MkdirAll("/dir", 0o755))
	_, err = OpenFile(fs, "/dir", Options{})
	assert.True(t, errors.IsKind(err, errors.KindSource))

	require.NoError(t, afero.WriteFile(fs, "/bad.gz", []byte("not gzip at all"), 0o644))
	_, err = OpenFile(fs, "/bad.gz", Options{Compression: compression.Gzip})
	assert.True(t, errors.IsKind(err, errors.KindSource))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.NewProfileConfig()
	cfg.Input.ChunkSize = 4096
	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 4096, opts.ChunkSize)
	assert.Equal(t, compression.Auto, opts.Compression)

	cfg.Input.Compression = "rar"
	_, err = OptionsFromConfig(cfg)
	assert.True(t, errors.IsKind(err, errors.KindConfig))
}
