//go:build stripeset_cachelinesize_128

package opt

// CacheLineSize_ forced to 128 bytes via the stripeset_cachelinesize_128 tag.
const CacheLineSize_ uintptr = 128
