// Package trust builds and caches the trust anchors the gateway and its
// clients verify peers against: the trust-store capability (component A
// of the tunnel gateway) described by spec.md §4.A.
package trust

import (
	"crypto/x509"
)

// Store is a bag of root certificates. It is immutable after construction;
// rotation happens by building a new Store and swapping it through a
// dynamicconfig.Cell, never by mutating one in place.
//
// A Store is always handed around by pointer, never copied by value: this
// is the "Arc<X509Store> vs X509Store" ownership question the original
// implementation left unresolved between two parallel module versions.
// Pointer-sharing is the natural Go equivalent of the newer, sharing-owned
// form and is what every constructor in this package returns.
type Store struct {
	pool  *x509.CertPool
	certs []*x509.Certificate
}

// NewStore builds a Store from an explicit list of root certificates.
func NewStore(certs []*x509.Certificate) *Store {
	pool := x509.NewCertPool()
	for _, cert := range certs {
		pool.AddCert(cert)
	}
	return &Store{pool: pool, certs: certs}
}

// Pool returns the certificate pool for use as tls.Config.RootCAs/ClientCAs.
func (s *Store) Pool() *x509.CertPool {
	return s.pool
}

// Certificates returns the roots in the store, for lookups a CertPool
// cannot answer directly (e.g. finding a signer certificate by subject).
func (s *Store) Certificates() []*x509.Certificate {
	return s.certs
}

// BySubjectCommonName returns the first root whose subject CommonName
// matches name, used to recover the signer of a signed identity extension.
func (s *Store) BySubjectCommonName(name string) (*x509.Certificate, bool) {
	for _, cert := range s.certs {
		if cert.Subject.CommonName == name {
			return cert, true
		}
	}
	return nil, false
}
