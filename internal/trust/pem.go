package trust

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
)

// PEMStore parses a concatenation of "-----BEGIN CERTIFICATE-----"
// delimited blocks into a Store. Unparseable blocks are logged and
// skipped without aborting the whole parse, per spec.md §4.A.
func PEMStore(logger *slog.Logger, data []byte) (*Store, error) {
	var certs []*x509.Certificate
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			logger.Warn("skipping non-certificate PEM block", "type", block.Type)
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			logger.Warn("skipping unparseable certificate block", "error", err)
			continue
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("trust: no certificates parsed from PEM input")
	}
	return NewStore(certs), nil
}

// PEMCertificateAndKey parses a single PEM bundle containing a leaf
// certificate, its private key, and zero or more intermediates, in any
// order. It is the certificate-config capability of spec.md §4.A.
func PEMCertificateAndKey(data []byte) (leaf *x509.Certificate, intermediates []*x509.Certificate, keyDER []byte, err error) {
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch block.Type {
		case "CERTIFICATE":
			cert, parseErr := x509.ParseCertificate(block.Bytes)
			if parseErr != nil {
				return nil, nil, nil, fmt.Errorf("trust: parse certificate: %w", parseErr)
			}
			if leaf == nil {
				leaf = cert
			} else {
				intermediates = append(intermediates, cert)
			}
		case "EC PRIVATE KEY", "PRIVATE KEY":
			keyDER = block.Bytes
		default:
			// Ignore anything else; mirrors the lenient PEM-block parsing
			// policy of the trust store loader above.
		}
	}
	if leaf == nil {
		return nil, nil, nil, fmt.Errorf("trust: no leaf certificate found in PEM input")
	}
	if keyDER == nil {
		return nil, nil, nil, fmt.Errorf("trust: no private key found in PEM input")
	}
	return leaf, intermediates, keyDER, nil
}

// ParsePrivateKey parses a DER-encoded private key in either of the
// two encodings PEMCertificateAndKey accepts ("EC PRIVATE KEY" /
// "PRIVATE KEY"), returning it as the crypto.Signer every certificate
// bundle in this system is keyed by.
func ParsePrivateKey(der []byte) (crypto.Signer, error) {
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("trust: parse private key: %w", err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("trust: private key of type %T is not a crypto.Signer", key)
	}
	return signer, nil
}
