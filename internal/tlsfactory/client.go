package tlsfactory

import (
	"crypto/tls"

	"github.com/sufield/trz-gateway/internal/domain"
	"github.com/sufield/trz-gateway/internal/trust"
)

// Client builds the *tls.Config the remote client uses to perform the
// inner, client-role TLS handshake against the gateway's server acceptor
// (spec.md §4.C). It verifies the gateway's server certificate against
// gatewayTrust using standard WebPKI rules — which requires serverName,
// the gateway's certificate CN/SAN, since crypto/tls refuses to build a
// ClientHello without either a ServerName or InsecureSkipVerify — and
// presents bundle as its own client certificate.
func Client(gatewayTrust *trust.Store, bundle *domain.CertificateBundle, serverName string) *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		NextProtos: []string{"h2"},
		ServerName: serverName,
		RootCAs:    gatewayTrust.Pool(),
		Certificates: []tls.Certificate{{
			Certificate: bundle.Chain(),
			PrivateKey:  bundle.PrivateKey,
			Leaf:        bundle.Leaf,
		}},
	}
}
