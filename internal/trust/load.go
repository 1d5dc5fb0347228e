package trust

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sufield/trz-gateway/internal/domain"
)

// LoadStoreFile reads and parses a PEM trust-store file at path.
func LoadStoreFile(logger *slog.Logger, path string) (*Store, error) {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 - config-supplied path
	if err != nil {
		return nil, fmt.Errorf("trust: read trust store file: %w", err)
	}
	return PEMStore(logger, data)
}

// LoadCertificateAndKeyFile reads a PEM bundle file containing a leaf
// certificate, its key, and optional intermediates, and assembles it
// into a domain.CertificateBundle.
func LoadCertificateAndKeyFile(certPath, keyPath string) (*domain.CertificateBundle, error) {
	certData, err := os.ReadFile(filepath.Clean(certPath)) // #nosec G304 - config-supplied path
	if err != nil {
		return nil, fmt.Errorf("trust: read certificate file: %w", err)
	}
	keyData, err := os.ReadFile(filepath.Clean(keyPath)) // #nosec G304 - config-supplied path
	if err != nil {
		return nil, fmt.Errorf("trust: read key file: %w", err)
	}

	leaf, intermediates, keyDER, err := PEMCertificateAndKey(append(certData, keyData...))
	if err != nil {
		return nil, err
	}
	signer, err := ParsePrivateKey(keyDER)
	if err != nil {
		return nil, err
	}
	return &domain.CertificateBundle{Leaf: leaf, PrivateKey: signer, Intermediates: intermediates}, nil
}
