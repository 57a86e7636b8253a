package stripeset

import (
	"runtime"
	"time"
)

// ============================================================================
// Private Constants
// ============================================================================

const (
	intSize = 32 << (^uint(0) >> 63) // 32 or 64
	maxInt  = 1<<(intSize-1) - 1     // MaxInt32 or MaxInt64 depending on intSize.
)

// Resize configuration
const (
	// maxTableLen is the largest bucket array the resize controller builds;
	// reaching it pins the budget at maxInt.
	maxTableLen = 0x7FEFFFFF
	// minBucketsPerWorker: old buckets each rehash worker must at least own
	// before the rehash goes parallel.
	minBucketsPerWorker = 1 << 14
	// rehashOverPartition: over-partition factor to smooth out uneven chains
	rehashOverPartition = 4
)

// ============================================================================
// Utility Functions
// ============================================================================

// calcParallelism calculates the number of goroutines for parallel processing.
//
// Parameters:
//   - items: Number of items to process.
//   - threshold: Minimum items per goroutine to enable parallel processing.
//   - cpus: Number of available CPU cores.
//
// Returns:
//   - chunkSz: Number of items processed per goroutine.
//   - chunks: Suggested degree of parallelism (number of goroutines).
//
//go:nosplit
func calcParallelism(items, threshold, cpus int) (chunkSz, chunks int) {
	// If the items are too small, use single-threaded processing.
	if items <= threshold || cpus <= 1 {
		return items, 1
	}

	chunks = min(items/threshold, cpus)

	chunkSz = (items + chunks - 1) / chunks

	return chunkSz, chunks
}

// nextTableLen returns the bucket count following n: the smallest odd
// number >= 2n+1 that is not divisible by 3, 5 or 7. It reports true when
// the result had to be clamped to maxTableLen.
func nextTableLen(n int) (int, bool) {
	if n > (maxTableLen-1)/2 {
		return maxTableLen, true
	}
	newLen := n*2 + 1
	for newLen%3 == 0 || newLen%5 == 0 || newLen%7 == 0 {
		newLen += 2
	}
	if newLen > maxTableLen {
		return maxTableLen, true
	}
	return newLen, false
}

// calcBudget is the number of elements a stripe may hold before an Add
// asks for a resize.
func calcBudget(tableLen, lockLen int) int {
	return max(1, tableLen/lockLen)
}

// checkedAdd adds b to a, panicking with ErrCountOverflow instead of
// wrapping.
func checkedAdd(a, b int) int {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		panic(overflowError(a, b))
	}
	return s
}

// ============================================================================
// Locker Utilities
// ============================================================================

// noCopy may be added to structs which must not be copied
// after the first use.
//
// See https://golang.org/issues/8005#issuecomment-190753527
// for details.
//
// Note that it must not be embedded, due to the Lock and Unlock methods.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

const maxSpins = 16

// delay backs off a waiting goroutine: a few yields first, then a sleep.
func delay(spins *int) {
	if *spins < maxSpins {
		*spins++
		runtime.Gosched()
		return
	}
	*spins = 0
	// time.Sleep with non-zero duration (≈Millisecond level) works
	// effectively as backoff under high concurrency.
	// The 500µs duration is derived from Facebook/folly's implementation:
	// https://github.com/facebook/folly/blob/main/folly/synchronization/detail/Sleeper.h
	time.Sleep(500 * time.Microsecond)
}
