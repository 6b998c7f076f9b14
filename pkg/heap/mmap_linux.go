//go:build linux

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

// mremapInPlace tries to extend data to newLength at its current virtual
// address (no MREMAP_MAYMOVE). ok is false, with no error, when the
// kernel cannot grant the extension there; the caller maps a fresh
// fragment instead. A non-nil err is reserved for conditions that mean
// the mapping itself is no longer usable.
func mremapInPlace(data []byte, newLength int) (grown []byte, ok bool, err error) {
	grown, mErr := unix.Mremap(data, newLength, 0)
	if mErr != nil {
		return nil, false, nil
	}
	return grown, true, nil
}

// madviseRemove hole-punches the page so the kernel can reclaim its
// backing disk blocks immediately instead of waiting for truncation.
func madviseRemove(data []byte) error {
	return unix.Madvise(data, unix.MADV_REMOVE)
}
