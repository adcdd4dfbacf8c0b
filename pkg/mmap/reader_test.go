package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderSlices(t *testing.T) {
	if !Supported() {
		t.Skip("mmap unsupported")
	}
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n3,4\n"), 0o600))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, int64(12), r.Len())

	b, err := r.Slice(0, 4)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(b))

	b, err = r.Slice(8, 100)
	require.NoError(t, err)
	assert.Equal(t, "3,4\n", string(b))

	_, err = r.Slice(12, 4)
	assert.Equal(t, io.EOF, err)
	_, err = r.Slice(-1, 4)
	assert.Error(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}

func TestOpenEmptyAndMissing(t *testing.T) {
	if !Supported() {
		t.Skip("mmap unsupported")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	r, err := Open(path)
	require.NoError(t, err)
	_, err = r.Slice(0, 1)
	assert.Equal(t, io.EOF, err)
	require.NoError(t, r.Close())

	_, err = Open(filepath.Join(dir, "missing"))
	assert.Error(t, err)
	_, err = Open(dir)
	assert.Error(t, err)
}
