package ca_test

import (
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sufield/trz-gateway/internal/ca"
	"github.com/sufield/trz-gateway/internal/domain"
	"github.com/sufield/trz-gateway/internal/trust"
)

func newTestCA(t *testing.T, name string) (*ca.CA, *trust.Store) {
	t.Helper()

	key, err := ca.GenerateKey()
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: name},
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

	store := trust.NewStore([]*x509.Certificate{cert})
	authority := ca.New(cert, key, name, ca.NewBootstrapCodes("abc"))
	return authority, store
}

// Invariant 1: a successfully issued leaf verifies against its issuer's
// trust store and name.
func TestIssueThenVerifySucceeds(t *testing.T) {
	t.Parallel()

	authority, store := newTestCA(t, "primary-ca")
	leafKey, err := ca.GenerateKey()
	require.NoError(t, err)

	leafPEM, err := authority.Issue(ca.IssueRequest{
		AuthCode:  "abc",
		PublicKey: &leafKey.PublicKey,
		Name:      "host-1",
	})
	require.NoError(t, err)

	leaf := parsePEMCert(t, leafPEM)
	require.NoError(t, ca.Verify(leaf, store, "primary-ca"))
}

func TestIssueRejectsReusedAuthCode(t *testing.T) {
	t.Parallel()

	authority, _ := newTestCA(t, "primary-ca")
	leafKey, err := ca.GenerateKey()
	require.NoError(t, err)

	req := ca.IssueRequest{AuthCode: "abc", PublicKey: &leafKey.PublicKey, Name: "host-1"}
	_, err = authority.Issue(req)
	require.NoError(t, err)

	_, err = authority.Issue(req)
	require.ErrorIs(t, err, domain.ErrAuthRejected)
}

// Invariant 2 / Scenario S3: a leaf whose signed extension names a
// different issuer fails verification against the expected signer.
func TestVerifyRejectsWrongSigner(t *testing.T) {
	t.Parallel()

	_, primaryStore := newTestCA(t, "primary-ca")
	otherCA, _ := newTestCA(t, "other-ca")

	leafKey, err := ca.GenerateKey()
	require.NoError(t, err)
	leafPEM, err := otherCA.Issue(ca.IssueRequest{AuthCode: "abc", PublicKey: &leafKey.PublicKey, Name: "host-1"})
	require.NoError(t, err)
	leaf := parsePEMCert(t, leafPEM)

	err = ca.Verify(leaf, primaryStore, "primary-ca")
	require.Error(t, err)
	require.True(t, err == domain.ErrWrongSigner || err == domain.ErrSignatureInvalid)
}

func TestVerifyRejectsMissingExtension(t *testing.T) {
	t.Parallel()

	_, store := newTestCA(t, "primary-ca")

	key, err := ca.GenerateKey()
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "no-extension"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	err = ca.Verify(cert, store, "primary-ca")
	require.ErrorIs(t, err, domain.ErrExtensionMissing)
}

func parsePEMCert(t *testing.T, data []byte) *x509.Certificate {
	t.Helper()
	block, _ := pem.Decode(data)
	require.NotNil(t, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	return cert
}
