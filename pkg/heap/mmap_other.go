//go:build !linux

package heap

import (
	"os"

	"golang.org/x/sys/unix"
)

func mmapRegion(f *os.File, offset int64, length int) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), offset, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func munmapRegion(data []byte) error {
	return unix.Munmap(data)
}

// mremapInPlace has no portable equivalent outside Linux; the caller
// always falls back to mapping a fresh fragment for the grown range.
func mremapInPlace(data []byte, newLength int) ([]byte, bool, error) {
	return nil, false, nil
}

// madviseRemove is a no-op outside Linux: hole-punching freed pages is
// an optional reclaim hint, not a correctness requirement.
func madviseRemove(data []byte) error {
	return nil
}
