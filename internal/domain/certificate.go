package domain

import (
	"crypto"
	"crypto/x509"
)

// CertificateBundle is a leaf certificate plus the private key that matches
// it and any intermediates needed to complete the chain up to a trust
// anchor. intermediates MAY be empty for directly root-signed leaves.
type CertificateBundle struct {
	Leaf          *x509.Certificate
	PrivateKey    crypto.Signer
	Intermediates []*x509.Certificate
}

// Chain returns the leaf followed by its intermediates, the shape
// crypto/tls.Certificate.Certificate expects (DER-encoded, leaf first).
func (b *CertificateBundle) Chain() [][]byte {
	chain := make([][]byte, 0, 1+len(b.Intermediates))
	chain = append(chain, b.Leaf.Raw)
	for _, intermediate := range b.Intermediates {
		chain = append(chain, intermediate.Raw)
	}
	return chain
}
