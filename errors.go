package stripeset

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConcurrencyLevel is returned when the requested number of
	// stripes is less than one.
	ErrInvalidConcurrencyLevel = errors.New("stripeset: concurrency level must be at least 1")
	// ErrInvalidCapacity is returned for a negative capacity hint.
	ErrInvalidCapacity = errors.New("stripeset: capacity must not be negative")
	// ErrNilCollection is returned by NewSetFrom when the item sequence is nil.
	ErrNilCollection = errors.New("stripeset: initial collection is nil")
	// ErrInvalidOffset is returned by CopyTo for a negative offset.
	ErrInvalidOffset = errors.New("stripeset: offset must not be negative")
	// ErrBufferTooSmall is returned by CopyTo when the destination cannot
	// hold every element from offset onwards. Nothing is copied.
	ErrBufferTooSmall = errors.New("stripeset: destination buffer is too small")
	// ErrCountOverflow is the panic value (wrapped) raised when an element
	// counter would exceed the range of int.
	ErrCountOverflow = errors.New("stripeset: element count overflow")
	// ErrComparerType is returned when WithComparer was instantiated for a
	// type other than the set's element type.
	ErrComparerType = errors.New("stripeset: comparer does not match the element type")
)

func overflowError(a, b int) error {
	return fmt.Errorf("%w: %d%+d", ErrCountOverflow, a, b)
}
