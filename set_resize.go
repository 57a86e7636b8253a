package stripeset

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// growTable runs after an Add pushed a stripe over its budget. table is
// the snapshot the Add saw; if another goroutine already replaced it there
// is nothing left to do.
//
// A sparse table (fewer than a quarter as many items as buckets) means
// the items hash onto few stripes, so the budget is doubled instead of
// growing the table.
func (s *Set[T]) growTable(table *setTable[T]) {
	locks := table.locks
	locks[0].Lock()
	held := 1
	defer func() {
		releaseLocks(locks, 0, held)
	}()

	if s.table.Load() != table {
		return
	}

	tableLen := len(table.buckets)
	if table.sumCounts() < tableLen/4 {
		budget := table.budget.Load()
		if budget > maxInt/2 {
			budget = maxInt
		} else {
			budget *= 2
		}
		table.budget.Store(budget)
		s.budgetGrowths.Add(1)
		return
	}

	newLen, maximized := nextTableLen(tableLen)
	if newLen <= tableLen {
		// already at maxTableLen
		table.budget.Store(maxInt)
		return
	}

	acquireLocks(locks, 1, len(locks))
	held = len(locks)

	newLocks := locks
	if table.opts.growLocks && len(locks) < maxLockNumber {
		newLocks = growStripeLocks(locks, len(locks)*2, table.opts.fair)
		s.lockGrowths.Add(1)
	}

	newTable := newSetTable(table.opts, newLen, newLocks, table.generation+1)
	rehash(table, newTable, runtime.GOMAXPROCS(0))
	if maximized {
		newTable.budget.Store(maxInt)
	}
	s.table.Store(newTable)
	s.resizes.Add(1)
}

// rehash copies every node of table into fresh nodes of newTable. The old
// nodes are left untouched so lock-free readers of table stay valid.
//
// Large tables are split into chunks copied by an errgroup of at most cpus
// workers. Workers push onto bucket heads with CAS and count into private
// per-stripe slices that are merged at the end.
func rehash[T any](table, newTable *setTable[T], cpus int) {
	tableLen := len(table.buckets)
	chunkSz, chunks := calcParallelism(
		tableLen,
		minBucketsPerWorker,
		cpus,
	)
	if chunks == 1 {
		mergeCounts(newTable, copyBuckets(table, 0, tableLen, newTable, false))
		return
	}

	chunks = min(chunks*rehashOverPartition, tableLen)
	chunkSz = (tableLen + chunks - 1) / chunks
	deltas := make([][]int, chunks)
	var g errgroup.Group
	g.SetLimit(cpus)
	for c := range chunks {
		start := c * chunkSz
		end := min(start+chunkSz, tableLen)
		if start >= end {
			break
		}
		g.Go(func() error {
			deltas[c] = copyBuckets(table, start, end, newTable, true)
			return nil
		})
	}
	_ = g.Wait()

	for _, counts := range deltas {
		mergeCounts(newTable, counts)
	}
}

// copyBuckets copies old buckets [start, end) and returns the number of
// nodes added per stripe of newTable. shared selects CAS pushes for when
// other workers write newTable too.
func copyBuckets[T any](
	table *setTable[T],
	start, end int,
	newTable *setTable[T],
	shared bool,
) []int {
	counts := make([]int, len(newTable.locks))
	for i := start; i < end; i++ {
		for n := table.buckets[i].Load(); n != nil; n = n.next.Load() {
			b, l := newTable.bucketAndLock(n.hash)
			nn := &node[T]{item: n.item, hash: n.hash}
			head := &newTable.buckets[b]
			if !shared {
				nn.next.Store(head.Load())
				head.Store(nn)
			} else {
				for {
					old := head.Load()
					nn.next.Store(old)
					if head.CompareAndSwap(old, nn) {
						break
					}
				}
			}
			counts[l] = checkedAdd(counts[l], 1)
		}
	}
	return counts
}

func mergeCounts[T any](newTable *setTable[T], counts []int) {
	for i, n := range counts {
		if n != 0 {
			newTable.counts[i].add(n)
		}
	}
}
