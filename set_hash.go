package stripeset

import (
	"fmt"
	"hash/maphash"
	"reflect"
	"unsafe"
)

// ============================================================================
// Element Hashing
// ============================================================================

type (
	// hashFunc returns the hash code of an element.
	hashFunc[T any] func(item T) uintptr
	// equalFunc reports whether two elements are the same set member.
	equalFunc[T any] func(a, b T) bool
)

// Hasher can be implemented by element types to provide their own hash
// code, as an alternative to WithComparer.
//
// It is detected when the set is initialized and takes precedence over the
// built-in hasher, but is overridden by an explicit WithComparer.
//
// Usage:
//
//	type HostName string
//
//	func (h HostName) HashCode() uint64 {
//		return maphash.String(seed, strings.ToLower(string(h)))
//	}
type Hasher interface {
	HashCode() uint64
}

// Equaler can be implemented by element types to provide their own
// equality. Elements that are Equal must have the same HashCode.
//
// Usage:
//
//	func (h HostName) Equal(other HostName) bool {
//		return strings.EqualFold(string(h), string(other))
//	}
type Equaler[T any] interface {
	Equal(other T) bool
}

// checkComparer rejects WithComparer functions built for another type.
func checkComparer[T comparable](cfg *SetConfig) error {
	if cfg.hash != nil {
		if _, ok := cfg.hash.(func(item T) uint64); !ok {
			return fmt.Errorf("%w: hash is %T", ErrComparerType, cfg.hash)
		}
	}
	if cfg.equal != nil {
		if _, ok := cfg.equal.(func(a, b T) bool); !ok {
			return fmt.Errorf("%w: equal is %T", ErrComparerType, cfg.equal)
		}
	}
	return nil
}

// resolveComparer picks hash and equality for T.
//
// Priority (highest to lowest):
//   - WithComparer
//   - Hasher / Equaler[T] implemented by T or *T
//   - built-in hashing (seeded) and ==
func resolveComparer[T comparable](
	cfg *SetConfig,
	seed maphash.Seed,
) (hashFunc[T], equalFunc[T]) {
	hash, equal := parseElementInterface[T]()

	if h, ok := cfg.hash.(func(item T) uint64); ok {
		hash = func(item T) uintptr {
			return foldHash(h(item))
		}
	}
	if e, ok := cfg.equal.(func(a, b T) bool); ok {
		equal = e
	}

	if hash == nil {
		hash = defaultHasher[T](seed)
	}
	if equal == nil {
		equal = func(a, b T) bool {
			return a == b
		}
	}
	return hash, equal
}

func parseElementInterface[T comparable]() (hash hashFunc[T], equal equalFunc[T]) {
	var zero T
	if _, ok := any(zero).(Hasher); ok {
		hash = func(item T) uintptr {
			return foldHash(any(item).(Hasher).HashCode())
		}
	} else if _, ok := any(&zero).(Hasher); ok {
		hash = func(item T) uintptr {
			return foldHash(any(&item).(Hasher).HashCode())
		}
	}
	if _, ok := any(zero).(Equaler[T]); ok {
		equal = func(a, b T) bool {
			return any(a).(Equaler[T]).Equal(b)
		}
	} else if _, ok := any(&zero).(Equaler[T]); ok {
		equal = func(a, b T) bool {
			return any(&a).(Equaler[T]).Equal(b)
		}
	}
	return
}

// defaultHasher returns the built-in hasher for T.
//
// Integer kinds hash to their own value: bucket counts are odd and avoid
// small prime factors, so sequential keys spread evenly. Strings and all
// other comparable types go through hash/maphash with the set's seed.
func defaultHasher[T comparable](seed maphash.Seed) hashFunc[T] {
	kType := reflect.TypeFor[T]()
	if kType == nil {
		return comparableHasher[T](seed)
	}
	switch kType.Kind() {
	case reflect.Int, reflect.Uint, reflect.Uintptr:
		return func(item T) uintptr {
			return *(*uintptr)(unsafe.Pointer(&item))
		}
	case reflect.Int64, reflect.Uint64:
		return func(item T) uintptr {
			return foldHash(*(*uint64)(unsafe.Pointer(&item)))
		}
	case reflect.Int32, reflect.Uint32:
		return func(item T) uintptr {
			return uintptr(*(*uint32)(unsafe.Pointer(&item)))
		}
	case reflect.Int16, reflect.Uint16:
		return func(item T) uintptr {
			return uintptr(*(*uint16)(unsafe.Pointer(&item)))
		}
	case reflect.Int8, reflect.Uint8:
		return func(item T) uintptr {
			return uintptr(*(*uint8)(unsafe.Pointer(&item)))
		}
	case reflect.String:
		return func(item T) uintptr {
			return foldHash(maphash.String(seed, *(*string)(unsafe.Pointer(&item))))
		}
	default:
		return comparableHasher[T](seed)
	}
}

func comparableHasher[T comparable](seed maphash.Seed) hashFunc[T] {
	return func(item T) uintptr {
		return foldHash(maphash.Comparable(seed, item))
	}
}

// foldHash narrows a 64-bit hash to uintptr, mixing the high half in on
// 32-bit platforms.
//
//go:nosplit
func foldHash(h uint64) uintptr {
	if intSize == 32 {
		return uintptr(h ^ h>>32)
	}
	return uintptr(h)
}
