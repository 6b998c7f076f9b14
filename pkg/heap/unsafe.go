package heap

import "unsafe"

// wordAt returns a pointer to the 4-byte word at offset within data,
// suitable for atomic/futex use. Callers only ever pass offsets chosen to
// be 4-byte aligned (mmap'd pages start page-aligned).
func wordAt(data []byte, offset int) *uint32 {
	return (*uint32)(unsafe.Pointer(&data[offset]))
}
