package trust

import (
	"crypto/x509"
	"sync"
)

var (
	nativeOnce  sync.Once
	nativeStore *Store
	nativeErr   error
)

// NativeStore loads the OS trust store at first access and memoizes the
// result, matching the "native-roots variant loads the OS trust store at
// first access" contract of spec.md §4.A. sync.Once is the standard-library
// at-most-once primitive the original hand-rolls with OnceLock; there is no
// third-party replacement more idiomatic than the one already in std.
func NativeStore() (*Store, error) {
	nativeOnce.Do(func() {
		pool, err := x509.SystemCertPool()
		if err != nil {
			nativeErr = err
			return
		}
		nativeStore = &Store{pool: pool}
	})
	return nativeStore, nativeErr
}
