package stripeset

import (
	"fmt"
	"hash/maphash"
	"iter"
	"runtime"
	"strings"
	"sync/atomic"
)

// Set is a thread-safe, resizable hash set built on lock striping.
//
// Core advantages:
//   - Lock-free Contains, Lookup and enumeration
//   - Writers on different stripes never contend
//   - Zero-value ready with lazy initialization
//   - Custom hash and equality support
//
// Usage recommendations:
//   - Direct declaration: var s Set[string]
//   - Pre-size hot sets: NewSet[string](WithCapacity(1 << 16))
//
// Notes:
//   - Set must not be copied after first use.
//   - Count, IsEmpty, Clear, CopyTo, ToSlice and Stats take every stripe;
//     avoid calling them on hot paths.
type Set[T comparable] struct {
	_     noCopy
	table atomic.Pointer[setTable[T]]

	resizes       atomic.Uint32
	lockGrowths   atomic.Uint32
	budgetGrowths atomic.Uint32
}

// NewSet creates a new, empty Set.
//
// Parameters:
//   - options: WithConcurrencyLevel, WithCapacity, WithComparer,
//     WithFairLocks
//
// Returns ErrInvalidConcurrencyLevel or ErrInvalidCapacity (wrapped) for
// out-of-range options, and ErrComparerType when WithComparer was built for
// a different element type.
func NewSet[T comparable](options ...func(*SetConfig)) (*Set[T], error) {
	var cfg SetConfig
	for _, o := range options {
		o(&cfg)
	}
	if err := cfg.validate(runtime.GOMAXPROCS(0)); err != nil {
		return nil, err
	}
	if err := checkComparer[T](&cfg); err != nil {
		return nil, err
	}
	s := &Set[T]{}
	s.table.Store(newRootTable[T](&cfg))
	return s, nil
}

// NewSetFrom creates a Set holding the items of the sequence. Items that
// are equal under the set's comparer collapse into one.
func NewSetFrom[T comparable](
	items iter.Seq[T],
	options ...func(*SetConfig),
) (*Set[T], error) {
	if items == nil {
		return nil, ErrNilCollection
	}
	s, err := NewSet[T](options...)
	if err != nil {
		return nil, err
	}
	s.AddAll(items)
	return s, nil
}

func newRootTable[T comparable](cfg *SetConfig) *setTable[T] {
	hash, equal := resolveComparer[T](cfg, maphash.MakeSeed())
	opts := &setOptions[T]{
		hash:      hash,
		equal:     equal,
		initLen:   cfg.capacity,
		growLocks: !cfg.concurrencySet,
		fair:      cfg.fairLocks,
	}
	locks := newStripeLocks(cfg.concurrencyLevel, cfg.fairLocks)
	return newSetTable(opts, cfg.capacity, locks, 0)
}

func (s *Set[T]) loadTable() *setTable[T] {
	if t := s.table.Load(); t != nil {
		return t
	}
	return s.slowInit()
}

//go:noinline
func (s *Set[T]) slowInit() *setTable[T] {
	var cfg SetConfig
	// defaults never fail validation
	_ = cfg.validate(runtime.GOMAXPROCS(0))
	t := newRootTable[T](&cfg)
	if s.table.CompareAndSwap(nil, t) {
		return t
	}
	return s.table.Load()
}

// Add inserts item and reports whether it was not already present.
//
// Panics with a wrapped ErrCountOverflow if a stripe counter would
// overflow.
func (s *Set[T]) Add(item T) bool {
	table := s.loadTable()
	hash := table.opts.hash(item)
	for {
		added, resize, ok := s.addTo(table, hash, item)
		if !ok {
			table = s.table.Load()
			continue
		}
		if resize {
			s.growTable(table)
		}
		return added
	}
}

// addTo inserts into one snapshot. ok is false when the snapshot was
// replaced before the stripe was acquired and the caller must retry.
func (s *Set[T]) addTo(
	table *setTable[T],
	hash uintptr,
	item T,
) (added, resize, ok bool) {
	b, l := table.bucketAndLock(hash)
	lock := table.locks[l]
	lock.Lock()
	defer lock.Unlock()

	if s.table.Load() != table {
		return false, false, false
	}
	head := &table.buckets[b]
	for n := head.Load(); n != nil; n = n.next.Load() {
		if n.hash == hash && table.opts.equal(n.item, item) {
			return false, false, true
		}
	}
	count := table.counts[l].add(1)
	nn := &node[T]{item: item, hash: hash}
	nn.next.Store(head.Load())
	head.Store(nn)
	return true, int64(count) > table.budget.Load(), true
}

// TryRemove deletes item and reports whether it was present.
func (s *Set[T]) TryRemove(item T) bool {
	table := s.table.Load()
	if table == nil {
		return false
	}
	hash := table.opts.hash(item)
	for {
		removed, ok := s.removeFrom(table, hash, item)
		if ok {
			return removed
		}
		table = s.table.Load()
	}
}

func (s *Set[T]) removeFrom(
	table *setTable[T],
	hash uintptr,
	item T,
) (removed, ok bool) {
	b, l := table.bucketAndLock(hash)
	lock := table.locks[l]
	lock.Lock()
	defer lock.Unlock()

	if s.table.Load() != table {
		return false, false
	}
	var prev *node[T]
	for n := table.buckets[b].Load(); n != nil; prev, n = n, n.next.Load() {
		if n.hash != hash || !table.opts.equal(n.item, item) {
			continue
		}
		// n keeps its next pointer so readers parked on it can move on.
		if prev == nil {
			table.buckets[b].Store(n.next.Load())
		} else {
			prev.next.Store(n.next.Load())
		}
		table.counts[l].add(-1)
		return true, true
	}
	return false, true
}

// Contains reports whether item is in the set. It never blocks.
func (s *Set[T]) Contains(item T) bool {
	_, ok := s.Lookup(item)
	return ok
}

// Lookup returns the stored element equal to item. With a custom comparer
// the stored element may differ from item.
func (s *Set[T]) Lookup(item T) (actual T, ok bool) {
	table := s.table.Load()
	if table == nil {
		return
	}
	hash := table.opts.hash(item)
	b := bucketIndex(hash, len(table.buckets))
	for n := table.buckets[b].Load(); n != nil; n = n.next.Load() {
		if n.hash == hash && table.opts.equal(n.item, item) {
			return n.item, true
		}
	}
	return
}

// lockAll acquires every stripe of the live snapshot and returns it.
// Stripe 0 is shared by all snapshots and is taken first; once it is held
// no resize or Clear can publish, so the reloaded snapshot is stable.
func (s *Set[T]) lockAll() *setTable[T] {
	table := s.loadTable()
	table.locks[0].Lock()
	table = s.table.Load()
	acquireLocks(table.locks, 1, len(table.locks))
	return table
}

func unlockAll[T any](table *setTable[T]) {
	releaseLocks(table.locks, 0, len(table.locks))
}

// Count returns the number of elements at a single point in time.
func (s *Set[T]) Count() int {
	if s.table.Load() == nil {
		return 0
	}
	table := s.lockAll()
	defer unlockAll(table)
	return table.sumCounts()
}

// IsEmpty reports whether the set holds no elements.
func (s *Set[T]) IsEmpty() bool {
	if s.table.Load() == nil {
		return true
	}
	table := s.lockAll()
	defer unlockAll(table)
	for i := range table.counts {
		if table.counts[i].load() != 0 {
			return false
		}
	}
	return true
}

// Clear removes all elements. The set goes back to its initial bucket
// count and keeps its stripe locks.
func (s *Set[T]) Clear() {
	if s.table.Load() == nil {
		return
	}
	table := s.lockAll()
	defer unlockAll(table)
	tableLen := max(table.opts.initLen, len(table.locks))
	s.table.Store(newSetTable(table.opts, tableLen, table.locks, table.generation+1))
}

// CopyTo copies the elements into dst starting at offset.
//
// It fails with ErrInvalidOffset for a negative offset and with
// ErrBufferTooSmall when dst[offset:] cannot hold every element; in both
// cases dst is left untouched.
func (s *Set[T]) CopyTo(dst []T, offset int) error {
	if offset < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOffset, offset)
	}
	if s.table.Load() == nil {
		return checkRoom(len(dst), offset, 0)
	}
	table := s.lockAll()
	defer unlockAll(table)
	if err := checkRoom(len(dst), offset, table.sumCounts()); err != nil {
		return err
	}
	i := offset
	table.walk(func(n *node[T]) bool {
		dst[i] = n.item
		i++
		return true
	})
	return nil
}

func checkRoom(dstLen, offset, count int) error {
	if offset > dstLen || dstLen-offset < count {
		return fmt.Errorf("%w: need %d from offset %d, have %d",
			ErrBufferTooSmall, count, offset, dstLen)
	}
	return nil
}

// ToSlice returns the elements at a single point in time.
func (s *Set[T]) ToSlice() []T {
	if s.table.Load() == nil {
		return nil
	}
	table := s.lockAll()
	defer unlockAll(table)
	items := make([]T, 0, table.sumCounts())
	table.walk(func(n *node[T]) bool {
		items = append(items, n.item)
		return true
	})
	return items
}

// AddAll adds every item of the sequence and returns how many were new.
func (s *Set[T]) AddAll(items iter.Seq[T]) int {
	var added int
	for item := range items {
		if s.Add(item) {
			added++
		}
	}
	return added
}

// Range calls yield for each element until it returns false.
//
// Range is weakly consistent: it walks the snapshot that is live when it
// starts, without locks. Elements added or removed during the walk may or
// may not be seen, but no element is yielded twice and the walk always
// terminates.
func (s *Set[T]) Range(yield func(item T) bool) {
	table := s.table.Load()
	if table == nil {
		return
	}
	table.walk(func(n *node[T]) bool {
		return yield(n.item)
	})
}

// All returns an iterator over the elements, for use with range-over-func.
// Each call starts a fresh walk; see Range for consistency.
func (s *Set[T]) All() iter.Seq[T] {
	return s.Range
}

// String renders the elements as {a, b, c}.
func (s *Set[T]) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	s.Range(func(item T) bool {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		fmt.Fprint(&sb, item)
		return true
	})
	sb.WriteByte('}')
	return sb.String()
}
