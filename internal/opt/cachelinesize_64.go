//go:build stripeset_cachelinesize_64

package opt

// CacheLineSize_ forced to 64 bytes via the stripeset_cachelinesize_64 tag.
const CacheLineSize_ uintptr = 64
