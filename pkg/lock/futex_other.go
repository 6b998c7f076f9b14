//go:build !linux

package lock

import (
	"runtime"
	"time"
)

// futexWait and futexWake back the word-based primitives on platforms
// without a native futex syscall. Waiters poll with a short sleep
// instead of blocking in the kernel; functional, not performance-
// equivalent to the Linux path.
func futexWait(addr *uint32, expected uint32) {
	runtime.Gosched()
	time.Sleep(50 * time.Microsecond)
}

func futexWake(addr *uint32, n int) {
	// No-op: waiters on this platform poll instead of blocking.
}
