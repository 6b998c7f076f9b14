package bnode

import "unsafe"

// wordAt returns a pointer to the 4-byte word at offset within data, for
// use as a futex-backed latch word. Offsets passed in this package are
// always 0, which is page-aligned and therefore word-aligned.
func wordAt(data []byte, offset int) *int32 {
	return (*int32)(unsafe.Pointer(&data[offset]))
}
