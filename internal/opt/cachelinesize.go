//go:build !stripeset_cachelinesize_64 && !stripeset_cachelinesize_128

package opt

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// CacheLineSize_ is the padding unit used to keep stripe locks and stripe
// counters on separate cache lines. Taken from `golang.org/x/sys/cpu`.
const CacheLineSize_ = unsafe.Sizeof(cpu.CacheLinePad{})
