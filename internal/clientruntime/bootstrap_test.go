package clientruntime_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"log/slog"
	"math/big"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/trz-gateway/internal/ca"
	"github.com/sufield/trz-gateway/internal/clientruntime"
	"github.com/sufield/trz-gateway/internal/domain"
	"github.com/sufield/trz-gateway/internal/gatewayhttp"
)

func selfSignedCA(t *testing.T, cn string) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ca.GenerateKey()
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, key
}

func issuanceServer(t *testing.T, authCode string) *httptest.Server {
	t.Helper()
	rootCert, rootKey := selfSignedCA(t, "primary-ca")
	authority := ca.New(rootCert, rootKey, "primary-ca", ca.NewBootstrapCodes(authCode))

	router := chi.NewRouter()
	gatewayhttp.RegisterCertificateIssuance(router, authority, slog.Default())
	return httptest.NewServer(router)
}

func TestCertificateIssuerIssueRoundTrip(t *testing.T) {
	t.Parallel()

	ts := issuanceServer(t, "abc")
	defer ts.Close()

	issuer := &clientruntime.CertificateIssuer{BaseURL: ts.URL, AuthCode: "abc", Name: "client-1"}
	bundle, err := issuer.Issue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "client-1", bundle.Leaf.Subject.CommonName)
	assert.NotNil(t, bundle.PrivateKey)
}

func TestCertificateIssuerRejectsBadAuthCode(t *testing.T) {
	t.Parallel()

	ts := issuanceServer(t, "abc")
	defer ts.Close()

	issuer := &clientruntime.CertificateIssuer{BaseURL: ts.URL, AuthCode: "wrong", Name: "client-1"}
	_, err := issuer.Issue(context.Background())
	require.ErrorIs(t, err, domain.ErrAuthRejected)
}

func TestLeafCacheReusesUnexpiredLeaf(t *testing.T) {
	t.Parallel()

	// The bootstrap auth code is single-use; a second Get call must
	// not issue again while the cached leaf is still fresh, or this
	// would fail trying to consume an already-consumed code.
	ts := issuanceServer(t, "abc")
	defer ts.Close()

	issuer := &clientruntime.CertificateIssuer{BaseURL: ts.URL, AuthCode: "abc", Name: "client-1"}
	cache := clientruntime.NewLeafCache(issuer)

	first, err := cache.Get(context.Background())
	require.NoError(t, err)
	second, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
}
