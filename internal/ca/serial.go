package ca

import (
	"crypto/rand"
	"math/big"
)

// randomSerial allocates a 20-byte cryptographically random serial number,
// per spec.md §4.B step 2. All security-relevant randomness must come from
// a cryptographic RNG (spec.md §9) — never the non-cryptographic rand seed
// the original flags as a non-core helper.
func randomSerial() (*big.Int, error) {
	bytes := make([]byte, 20)
	if _, err := rand.Read(bytes); err != nil {
		return nil, err
	}
	// Ensure the top bit is clear so the integer is always positive, per
	// the DER encoding rules for INTEGER.
	bytes[0] &= 0x7f
	return new(big.Int).SetBytes(bytes), nil
}
