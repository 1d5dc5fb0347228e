package ca

import "sync"

// BootstrapCodes is the single-use auth-code bootstrap mechanism that
// guards certificate issuance (spec.md §4.B step 1). Each code is valid
// for exactly one successful Consume; the original treats this as a
// pre-shared value per client configuration (original_source's
// client_config.rs), which is what this type models: a small, mutex
// guarded set rather than a database.
type BootstrapCodes struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewBootstrapCodes seeds the one-shot code set with codes.
func NewBootstrapCodes(codes ...string) *BootstrapCodes {
	active := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		active[code] = struct{}{}
	}
	return &BootstrapCodes{active: active}
}

// Consume reports whether code was still valid, and if so removes it so it
// can never be consumed again.
func (b *BootstrapCodes) Consume(code string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.active[code]; !ok {
		return false
	}
	delete(b.active, code)
	return true
}

// Add registers an additional one-shot code, e.g. when provisioning a new
// client out of band.
func (b *BootstrapCodes) Add(code string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active[code] = struct{}{}
}
