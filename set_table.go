package stripeset

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/llxisdsh/stripeset/internal/opt"
)

// node is one chain link. item and hash never change after publication;
// next is rewritten only by the stripe lock holder when a successor is
// unlinked, and it always points to an older node, so chains cannot cycle.
type node[T any] struct {
	item T
	hash uintptr
	next atomic.Pointer[node[T]]
}

// setOptions is the per-set configuration shared by every snapshot.
type setOptions[T any] struct {
	hash      hashFunc[T]
	equal     equalFunc[T]
	initLen   int
	growLocks bool
	fair      bool
}

// setTable is one storage snapshot. Its arrays never change length; a
// resize or Clear builds a new snapshot and swaps it in.
type setTable[T any] struct {
	buckets []atomic.Pointer[node[T]]
	locks   []sync.Locker
	counts  []stripeCounter
	// budget is the per-stripe item limit. It only changes in place when a
	// sparse table doubles it instead of resizing.
	budget     atomic.Int64
	opts       *setOptions[T]
	generation uint64
}

func newSetTable[T any](
	opts *setOptions[T],
	tableLen int,
	locks []sync.Locker,
	generation uint64,
) *setTable[T] {
	t := &setTable[T]{
		buckets:    make([]atomic.Pointer[node[T]], tableLen),
		locks:      locks,
		counts:     make([]stripeCounter, len(locks)),
		opts:       opts,
		generation: generation,
	}
	t.budget.Store(int64(calcBudget(tableLen, len(locks))))
	return t
}

//go:nosplit
func bucketIndex(hash uintptr, tableLen int) int {
	return int(hash % uintptr(tableLen))
}

//go:nosplit
func lockIndex(bucket, lockLen int) int {
	return bucket % lockLen
}

// bucketAndLock maps a hash to its bucket and the stripe guarding it.
func (t *setTable[T]) bucketAndLock(hash uintptr) (bucket, lock int) {
	bucket = bucketIndex(hash, len(t.buckets))
	return bucket, lockIndex(bucket, len(t.locks))
}

// sumCounts adds up the stripe counters with overflow checks. It is exact
// only while every stripe is held.
func (t *setTable[T]) sumCounts() int {
	var sum int
	for i := range t.counts {
		sum = checkedAdd(sum, t.counts[i].load())
	}
	return sum
}

// walk visits every node of the snapshot in bucket order.
func (t *setTable[T]) walk(fn func(n *node[T]) bool) bool {
	for i := range t.buckets {
		for n := t.buckets[i].Load(); n != nil; n = n.next.Load() {
			if !fn(n) {
				return false
			}
		}
	}
	return true
}

// ============================================================================
// Stripe Counters
// ============================================================================

// stripeCounter counts the items guarded by one stripe. Only the stripe
// lock holder writes it; the atomic lets the resize controller read an
// approximate total without taking every stripe.
type stripeCounter struct {
	n atomic.Int64
	_ [(opt.CacheLineSize_ - unsafe.Sizeof(atomic.Int64{})%opt.CacheLineSize_) %
		opt.CacheLineSize_ * opt.PaddingMult_]byte
}

func (c *stripeCounter) load() int {
	return int(c.n.Load())
}

// add applies delta and returns the new value. It panics with
// ErrCountOverflow before storing a value outside the range of int.
func (c *stripeCounter) add(delta int) int {
	n := checkedAdd(c.load(), delta)
	c.n.Store(int64(n))
	return n
}
