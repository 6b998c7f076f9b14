package lock

import "unsafe"

// wordPtr reinterprets an *int32 as *uint32 so the signed RWMutex state
// word can be passed through the futex syscall, which operates on raw
// 32-bit words without regard to signedness.
func wordPtr(p *int32) *uint32 {
	return (*uint32)(unsafe.Pointer(p))
}
