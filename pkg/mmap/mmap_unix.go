//go:build linux || darwin

package mmap

import "syscall"

const supported = true

func mmap(fd int, length int) ([]byte, error) {
	return syscall.Mmap(fd, 0, length, syscall.PROT_READ, syscall.MAP_SHARED)
}

func munmap(b []byte) error {
	return syscall.Munmap(b)
}

func adviseSequential(b []byte) error {
	return syscall.Madvise(b, syscall.MADV_SEQUENTIAL)
}

func adviseWillNeed(b []byte) error {
	return syscall.Madvise(b, syscall.MADV_WILLNEED)
}
