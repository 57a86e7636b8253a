package stripeset

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/llxisdsh/stripeset/internal/opt"
)

// ============================================================================
// Stripe Locks
// ============================================================================

// mutexStripe is the default stripe lock, padded so that neighbouring
// stripes do not share a cache line.
type mutexStripe struct {
	mu sync.Mutex
	_  [(opt.CacheLineSize_ - unsafe.Sizeof(sync.Mutex{})%opt.CacheLineSize_) %
		opt.CacheLineSize_ * opt.PaddingMult_]byte
}

func (s *mutexStripe) Lock()   { s.mu.Lock() }
func (s *mutexStripe) Unlock() { s.mu.Unlock() }

// ticketStripe is a fair, FIFO stripe lock.
//
// Unlike sync.Mutex, which allows "barging" (newcomers can steal the lock),
// it hands the stripe to goroutines in the exact order they called Lock.
//
// Implementation: the classic ticket algorithm.
//   - Lock(): takes a ticket, waits until serving == ticket.
//   - Unlock(): increments serving, admitting the next ticket holder.
//
// Waiters yield and then sleep (see delay), so a resize that holds every
// stripe does not burn a CPU per blocked writer.
type ticketStripe struct {
	next    atomic.Uint32
	serving atomic.Uint32
	_       [(opt.CacheLineSize_ - 8%opt.CacheLineSize_) %
		opt.CacheLineSize_ * opt.PaddingMult_]byte
}

func (s *ticketStripe) Lock() {
	my := s.next.Add(1) - 1
	var spins int
	for s.serving.Load() != my {
		delay(&spins)
	}
}

func (s *ticketStripe) Unlock() {
	s.serving.Add(1)
}

func newStripe(fair bool) sync.Locker {
	if fair {
		return &ticketStripe{}
	}
	return &mutexStripe{}
}

// newStripeLocks creates n stripe locks.
func newStripeLocks(n int, fair bool) []sync.Locker {
	locks := make([]sync.Locker, n)
	for i := range locks {
		locks[i] = newStripe(fair)
	}
	return locks
}

// growStripeLocks returns a lock array of length n that starts with the
// existing locks, so stripe i stays the same lock object across snapshots.
func growStripeLocks(locks []sync.Locker, n int, fair bool) []sync.Locker {
	grown := make([]sync.Locker, n)
	copy(grown, locks)
	for i := len(locks); i < n; i++ {
		grown[i] = newStripe(fair)
	}
	return grown
}

// acquireLocks locks stripes [from, to) in ascending order. Ascending
// acquisition is the only deadlock-avoidance rule of the set: every path
// that holds more than one stripe takes them low to high.
func acquireLocks(locks []sync.Locker, from, to int) {
	for i := from; i < to; i++ {
		locks[i].Lock()
	}
}

// releaseLocks unlocks stripes [from, to).
func releaseLocks(locks []sync.Locker, from, to int) {
	for i := from; i < to; i++ {
		locks[i].Unlock()
	}
}
