//go:build linux

package lock

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux futex(2) operation codes. x/sys/unix exposes SYS_FUTEX (the
// syscall number) but not these op values, so they are defined here.
const (
	futexWaitOp = 0 // FUTEX_WAIT
	futexWakeOp = 1 // FUTEX_WAKE
)

// futexWait blocks the calling goroutine while *addr == expected. It
// returns once the word changes or a waker calls futexWake; spurious
// wakeups are expected and handled by the caller's retry loop.
func futexWait(addr *uint32, expected uint32) {
	_, _, errno := unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWaitOp),
		uintptr(expected),
		0, 0, 0)
	// EAGAIN (word already changed) and EINTR are both fine: the caller
	// re-checks the word on the next loop iteration.
	_ = errno
}

// futexWake wakes up to n goroutines blocked in futexWait on addr.
func futexWake(addr *uint32, n int) {
	unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWakeOp),
		uintptr(n),
		0, 0, 0)
}
