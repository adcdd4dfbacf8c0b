// Package mmap provides read-only memory-mapped files for sequential,
// zero-copy scanning of large uncompressed inputs.
package mmap

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Supported reports whether the platform can map files.
func Supported() bool { return supported }

// Reader is a read-only mapping of a whole file. Slices it returns alias the
// mapping and are invalid after Close.
type Reader struct {
	file     *os.File
	data     []byte
	pageSize int

	mu     sync.Mutex
	closed bool
}

// Open maps filename. The kernel is advised that access is sequential.
// An empty file yields a Reader with no data.
func Open(filename string) (*Reader, error) {
	file, err := os.Open(filename) //nolint:gosec // G304: path is chosen by the caller
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() {
		file.Close()
		return nil, fmt.Errorf("%s is a directory", filename)
	}

	r := &Reader{file: file, pageSize: os.Getpagesize()}
	if stat.Size() == 0 {
		return r, nil
	}

	data, err := mmap(int(file.Fd()), int(stat.Size()))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to mmap file: %w", err)
	}
	// advice is a hint; mapping works without it
	_ = adviseSequential(data)
	r.data = data
	return r, nil
}

// Len returns the mapped size.
func (r *Reader) Len() int64 { return int64(len(r.data)) }

// Slice returns the bytes in [offset, offset+length), truncated at the end of
// the file, and asks the kernel to prefetch the following window. It returns
// io.EOF at or past the end.
func (r *Reader) Slice(offset, length int64) ([]byte, error) {
	size := int64(len(r.data))
	if offset < 0 {
		return nil, fmt.Errorf("negative offset %d", offset)
	}
	if offset >= size {
		return nil, io.EOF
	}
	end := offset + length
	if end > size {
		end = size
	}
	r.prefetch(end, end+length)
	return r.data[offset:end], nil
}

// prefetch advises the kernel to read ahead the page-aligned range.
func (r *Reader) prefetch(start, end int64) {
	size := int64(len(r.data))
	page := int64(r.pageSize)
	start = (start / page) * page
	if end > size {
		end = size
	}
	if end <= start {
		return
	}
	_ = adviseWillNeed(r.data[start:end])
}

// Close unmaps and closes the file. It is idempotent.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.data != nil {
		err = munmap(r.data)
		r.data = nil
	}
	if closeErr := r.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
