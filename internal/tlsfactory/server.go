// Package tlsfactory builds the two crypto/tls configurations the system
// needs: a server acceptor for the gateway's inbound tunnel handshakes, and
// a client connector for the remote client's outbound handshake to the
// gateway. This is component C of the tunnel gateway (spec.md §4.C).
package tlsfactory

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"github.com/sufield/trz-gateway/internal/ca"
	"github.com/sufield/trz-gateway/internal/domain"
	"github.com/sufield/trz-gateway/internal/dynamicconfig"
	"github.com/sufield/trz-gateway/internal/trust"
)

// ServerMaterial is the gateway-side TLS identity that can rotate without a
// restart: its own server certificate plus the trust store used to verify
// inbound client certificates' signed extensions.
type ServerMaterial struct {
	Bundle         *domain.CertificateBundle
	ClientTrust    *trust.Store
	ExpectedSigner string
}

// Server builds a *tls.Config for the gateway's inbound tunnel listener.
// It requires client authentication and re-reads cell on every new
// handshake via GetConfigForClient, so rotating the gateway's certificate
// or the client trust store requires no restart (spec.md §4.C). This is
// the *inner* tunnel handshake only (spec.md §4.F step 2) — the outer
// HTTPS surface uses Outer instead, since mutual auth at the outer layer
// would make certificate issuance (which presents no client cert yet)
// impossible.
func Server(cell *dynamicconfig.Cell[ServerMaterial]) *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		NextProtos: []string{"h2"},
		ClientAuth: tls.RequireAndVerifyClientCert,
		GetConfigForClient: func(*tls.ClientHelloInfo) (*tls.Config, error) {
			material := cell.Get()
			return &tls.Config{
				MinVersion: tls.VersionTLS12,
				NextProtos: []string{"h2"},
				ClientAuth: tls.RequireAndVerifyClientCert,
				Certificates: []tls.Certificate{{
					Certificate: material.Bundle.Chain(),
					PrivateKey:  material.Bundle.PrivateKey,
					Leaf:        material.Bundle.Leaf,
				}},
				ClientCAs: material.ClientTrust.Pool(),
				VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
					return verifyClientCert(rawCerts, material.ClientTrust, material.ExpectedSigner)
				},
			}, nil
		},
	}
}

// Outer builds a server-auth-only *tls.Config for the gateway's outer
// HTTPS surface (status, certificate issuance, the tunnel upgrade
// request itself): no client certificate is requested or required,
// since the bootstrap certificate-issuance endpoint is reached by
// clients that have no leaf yet (spec.md §4.D). Mutual authentication
// belongs to the inner tunnel handshake Server builds, not here. It
// shares cell with Server so rotating the gateway's own certificate
// rotates both surfaces together.
func Outer(cell *dynamicconfig.Cell[ServerMaterial]) *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		NextProtos: []string{"h2"},
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			bundle := cell.Get().Bundle
			return &tls.Certificate{
				Certificate: bundle.Chain(),
				PrivateKey:  bundle.PrivateKey,
				Leaf:        bundle.Leaf,
			}, nil
		},
	}
}

// verifyClientCert runs the custom client-certificate verifier hook:
// standard path validation already ran (tls.RequireAndVerifyClientCert),
// so this only needs to check the signed identity extension
// (spec.md §4.C).
func verifyClientCert(rawCerts [][]byte, clientTrust *trust.Store, expectedSigner string) error {
	if len(rawCerts) == 0 {
		return domain.ErrHandshakeFailed
	}
	leaf, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrHandshakeFailed, err)
	}
	return ca.Verify(leaf, clientTrust, expectedSigner)
}
