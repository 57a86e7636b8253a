package stripeset

import (
	"fmt"
	"strings"
)

// SetStats is Set statistics.
//
// Warning: set statistics are intended to be used for diagnostic
// purposes, not for production code. This means that breaking changes
// may be introduced into this struct even between minor releases.
type SetStats struct {
	// Buckets is the number of buckets in the live table.
	Buckets int
	// EmptyBuckets is the number of buckets with an empty chain.
	EmptyBuckets int
	// Locks is the number of stripe locks.
	Locks int
	// Budget is the number of items a stripe may hold before an Add
	// triggers a resize.
	Budget int
	// Size is the exact number of elements, found by walking every chain.
	Size int
	// Counter is the sum of the stripe counters. Stats holds every stripe,
	// so it always equals Size.
	Counter int
	// MinChain is the length of the shortest chain.
	MinChain int
	// MaxChain is the length of the longest chain.
	MaxChain int
	// Generation is the number of tables the set has replaced, counting
	// resizes and clears.
	Generation uint64
	// TotalResizes is the number of times the table grew.
	TotalResizes uint32
	// LockGrowths is the number of times the lock array doubled.
	LockGrowths uint32
	// BudgetDoublings is the number of times a sparse table doubled its
	// budget instead of growing.
	BudgetDoublings uint32
}

// Stats returns statistics for the Set. Just like other set methods, this
// one is thread-safe. Yet it's an O(N) operation that holds every stripe,
// so it should be used only for diagnostics or debugging purposes.
func (s *Set[T]) Stats() SetStats {
	stats := SetStats{
		TotalResizes:    s.resizes.Load(),
		LockGrowths:     s.lockGrowths.Load(),
		BudgetDoublings: s.budgetGrowths.Load(),
	}
	if s.table.Load() == nil {
		return stats
	}
	table := s.lockAll()
	defer unlockAll(table)

	stats.Buckets = len(table.buckets)
	stats.Locks = len(table.locks)
	stats.Budget = int(table.budget.Load())
	stats.Counter = table.sumCounts()
	stats.Generation = table.generation
	stats.MinChain = maxInt
	for i := range table.buckets {
		var chain int
		for n := table.buckets[i].Load(); n != nil; n = n.next.Load() {
			chain++
		}
		if chain == 0 {
			stats.EmptyBuckets++
		}
		stats.Size += chain
		stats.MinChain = min(stats.MinChain, chain)
		stats.MaxChain = max(stats.MaxChain, chain)
	}
	return stats
}

// String returns string representation of set stats.
func (s SetStats) String() string {
	var sb strings.Builder
	sb.WriteString("SetStats{\n")
	fmt.Fprintf(&sb, "Buckets:         %d\n", s.Buckets)
	fmt.Fprintf(&sb, "EmptyBuckets:    %d\n", s.EmptyBuckets)
	fmt.Fprintf(&sb, "Locks:           %d\n", s.Locks)
	fmt.Fprintf(&sb, "Budget:          %d\n", s.Budget)
	fmt.Fprintf(&sb, "Size:            %d\n", s.Size)
	fmt.Fprintf(&sb, "Counter:         %d\n", s.Counter)
	fmt.Fprintf(&sb, "MinChain:        %d\n", s.MinChain)
	fmt.Fprintf(&sb, "MaxChain:        %d\n", s.MaxChain)
	fmt.Fprintf(&sb, "Generation:      %d\n", s.Generation)
	fmt.Fprintf(&sb, "TotalResizes:    %d\n", s.TotalResizes)
	fmt.Fprintf(&sb, "LockGrowths:     %d\n", s.LockGrowths)
	fmt.Fprintf(&sb, "BudgetDoublings: %d\n", s.BudgetDoublings)
	sb.WriteString("}\n")
	return sb.String()
}
