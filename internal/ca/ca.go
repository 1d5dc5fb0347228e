// Package ca implements the certificate authority: it signs short-lived
// client leaf certificates carrying a signed identity extension, and later
// revalidates that extension independently of standard chain validation.
// This is component B of the tunnel gateway (spec.md §4.B).
package ca

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"time"

	"github.com/sufield/trz-gateway/internal/domain"
	"github.com/sufield/trz-gateway/internal/trust"
)

// Default leaf lifetime and clock-skew allowance, matching the original's
// short-lived-leaf design (spec.md §1): the root CA key stays sealed while
// leaves rotate often.
const (
	DefaultLeafLifetime = 24 * time.Hour
	DefaultClockSkew    = 5 * time.Minute
)

// CA is the certificate authority: it signs leaves with Key and stamps the
// signed identity extension with Name as the signer identity.
type CA struct {
	Cert *x509.Certificate
	Key  crypto.Signer
	Name string

	LeafLifetime time.Duration
	ClockSkew    time.Duration

	bootstrap *BootstrapCodes
}

// New builds a CA that issues leaves signed by cert/key, identifying itself
// as name in every signed extension it stamps.
func New(cert *x509.Certificate, key crypto.Signer, name string, bootstrap *BootstrapCodes) *CA {
	return &CA{
		Cert:         cert,
		Key:          key,
		Name:         name,
		LeafLifetime: DefaultLeafLifetime,
		ClockSkew:    DefaultClockSkew,
		bootstrap:    bootstrap,
	}
}

// IssueRequest is the authenticated request to mint a new leaf, the wire
// shape of POST /remote/certificate (spec.md §6).
type IssueRequest struct {
	AuthCode  string
	PublicKey crypto.PublicKey
	Name      string
}

// Issue mints a new leaf certificate for req, per the six steps of
// spec.md §4.B. Only ErrAuthRejected is ever returned verbatim to a
// caller; every other failure should be collapsed to a generic error by
// the HTTP layer (spec.md §4.D).
func (c *CA) Issue(req IssueRequest) ([]byte, error) {
	if !c.bootstrap.Consume(req.AuthCode) {
		return nil, domain.ErrAuthRejected
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, fmt.Errorf("%w: serial: %v", domain.ErrSignFailed, err)
	}

	signedExtValue, err := c.signExtension(req.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: signed extension: %v", domain.ErrSignFailed, err)
	}

	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: req.Name},
		NotBefore:    now.Add(-c.ClockSkew),
		NotAfter:     now.Add(c.LeafLifetime),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		ExtraExtensions: []pkix.Extension{
			{Id: domain.SignedExtensionOID, Value: signedExtValue},
		},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, c.Cert, req.PublicKey, c.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSignFailed, err)
	}

	return EncodeCertificatePEM(der), nil
}

// signExtension computes the DER-encoded signed identity extension value
// for identity, signed by the CA's own key (spec.md §4.B step 4).
func (c *CA) signExtension(identity string) ([]byte, error) {
	signed := domain.SignedBytes(c.Name, identity)
	signature, err := signData(c.Key, signed)
	if err != nil {
		return nil, err
	}
	ext := domain.SignedExtension{SignerName: c.Name, Identity: identity, Signature: signature}
	return ext.Marshal()
}

func signData(key crypto.Signer, data []byte) ([]byte, error) {
	digest := sha256Sum(data)
	return key.Sign(rand.Reader, digest, crypto.SHA256)
}

// Verify revalidates the signed identity extension of leaf against store
// and expectedSigner, independently of standard chain validation
// (spec.md §4.B, Verify).
func Verify(leaf *x509.Certificate, store *trust.Store, expectedSigner string) error {
	ext, found := findExtension(leaf)
	if !found {
		return domain.ErrExtensionMissing
	}
	parsed, err := domain.UnmarshalSignedExtension(ext.Value)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExtensionMissing, err)
	}
	if parsed.SignerName != expectedSigner {
		return domain.ErrWrongSigner
	}
	signer, ok := store.BySubjectCommonName(parsed.SignerName)
	if !ok {
		return domain.ErrWrongSigner
	}
	signed := domain.SignedBytes(parsed.SignerName, parsed.Identity)
	if err := verifySignature(signer.PublicKey, signed, parsed.Signature); err != nil {
		return domain.ErrSignatureInvalid
	}
	return nil
}

func findExtension(cert *x509.Certificate) (pkix.Extension, bool) {
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(domain.SignedExtensionOID) {
			return ext, true
		}
	}
	return pkix.Extension{}, false
}

func verifySignature(pub crypto.PublicKey, data, signature []byte) error {
	digest := sha256Sum(data)
	switch key := pub.(type) {
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(key, digest, signature) {
			return fmt.Errorf("ecdsa signature verification failed")
		}
		return nil
	default:
		return fmt.Errorf("unsupported signer public key type %T", pub)
	}
}

// GenerateKey creates the P-256 elliptic-curve key used for both leaf keys
// and CA keys, mirroring the original's EC/P-256 choice (x509/key.rs).
func GenerateKey() (*ecdsa.PrivateKey, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrKeyGen, err)
	}
	return key, nil
}
