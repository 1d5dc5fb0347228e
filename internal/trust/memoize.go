package trust

import "sync"

// Memoize wraps a loader so it runs at most once, no matter how many
// goroutines call the returned function concurrently; every later call
// returns the first call's result. This is the "memoizing wrapper
// guarantees at-most-one parse of any PEM input" contract of spec.md §4.A,
// and the Go standard library already has the primitive the original
// implements by hand as a cache type: sync.OnceValues.
//
// Per spec.md §9, memoization is an optimization, not part of the
// contract: two calls must return equivalent values unless a dynamic swap
// happened in between, which Memoize trivially satisfies by construction.
func Memoize[T any](load func() (T, error)) func() (T, error) {
	return sync.OnceValues(load)
}
