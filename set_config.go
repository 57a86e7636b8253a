package stripeset

import (
	"fmt"
)

// ============================================================================
// Configuration
// ============================================================================

const (
	// defaultCapacity is the initial bucket count when no hint is given.
	defaultCapacity = 31
	// maxLockNumber caps lock array growth during resize.
	maxLockNumber = 1024
)

// SetConfig defines configurable options for Set initialization.
type SetConfig struct {
	// concurrencyLevel is the initial number of stripe locks. Zero means
	// "not specified": the set starts with GOMAXPROCS stripes and is allowed
	// to double its lock array on resize up to maxLockNumber. An explicit
	// level pins the lock array size for the lifetime of the set.
	concurrencyLevel int
	concurrencySet   bool

	// capacity is the initial bucket count hint. It is raised to the
	// concurrency level so that every stripe guards at least one bucket.
	capacity    int
	capacitySet bool

	// hash and equal override element hashing and equality. Stored as any
	// because SetConfig is not generic; resolveComparer asserts the concrete
	// function types.
	hash  any
	equal any

	// fairLocks selects FIFO ticket locks for the stripes.
	fairLocks bool
}

// WithConcurrencyLevel sets the number of stripe locks. Values below 1 make
// the constructor fail with ErrInvalidConcurrencyLevel.
//
// An explicit concurrency level also disables lock array growth, so the
// number of stripes stays exactly n.
func WithConcurrencyLevel(n int) func(*SetConfig) {
	return func(c *SetConfig) {
		c.concurrencyLevel = n
		c.concurrencySet = true
	}
}

// WithCapacity sets the initial number of buckets. A negative value makes
// the constructor fail with ErrInvalidCapacity.
func WithCapacity(n int) func(*SetConfig) {
	return func(c *SetConfig) {
		c.capacity = n
		c.capacitySet = true
	}
}

// WithComparer sets custom hashing and equality for the elements.
//
// Parameters:
//   - hash: returns the hash code of an item. Items that compare equal
//     must return the same hash. Pass nil to keep the built-in hasher.
//   - equal: reports whether two items are the same set member. Pass nil to
//     use ==.
//
// Usage:
//
//	// case-insensitive string set
//	s, _ := NewSet[string](WithComparer(
//		func(s string) uint64 { return maphash.String(seed, strings.ToLower(s)) },
//		strings.EqualFold,
//	))
//
// Notes:
//   - Both functions run while a stripe lock is held; keep them short and
//     never call back into the same set.
func WithComparer[T comparable](
	hash func(item T) uint64,
	equal func(a, b T) bool,
) func(*SetConfig) {
	return func(c *SetConfig) {
		if hash != nil {
			c.hash = hash
		}
		if equal != nil {
			c.equal = equal
		}
	}
}

// WithFairLocks makes every stripe a FIFO ticket lock instead of a
// sync.Mutex. Writers contending on the same stripe are then served in
// arrival order, at the cost of spinning while they wait.
func WithFairLocks() func(*SetConfig) {
	return func(c *SetConfig) {
		c.fairLocks = true
	}
}

// validate checks the option values and fills in defaults.
func (c *SetConfig) validate(cpus int) error {
	if c.concurrencySet {
		if c.concurrencyLevel < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidConcurrencyLevel, c.concurrencyLevel)
		}
	} else {
		c.concurrencyLevel = max(1, cpus)
	}
	if c.capacitySet {
		if c.capacity < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidCapacity, c.capacity)
		}
	} else {
		c.capacity = defaultCapacity
	}
	c.capacity = max(c.capacity, c.concurrencyLevel, 1)
	return nil
}
