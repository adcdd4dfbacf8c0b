//go:build !linux && !darwin

package mmap

import "errors"

const supported = false

var errUnsupported = errors.New("memory mapping is not supported on this platform")

func mmap(int, int) ([]byte, error) { return nil, errUnsupported }

func munmap([]byte) error { return nil }

func adviseSequential([]byte) error { return nil }

func adviseWillNeed([]byte) error { return nil }
