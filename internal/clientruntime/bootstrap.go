package clientruntime

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sufield/trz-gateway/internal/ca"
	"github.com/sufield/trz-gateway/internal/domain"
)

// DefaultRenewalWindow is how far ahead of a leaf's expiry Bootstrapping
// treats it as due for renewal (spec.md §4.H Bootstrapping).
const DefaultRenewalWindow = 6 * time.Hour

// issueCertificateRequest mirrors gatewayhttp's POST /remote/certificate
// wire shape (spec.md §6).
type issueCertificateRequest struct {
	AuthCode  string `json:"auth_code"`
	PublicKey string `json:"public_key"`
	Name      string `json:"name"`
}

// CertificateIssuer calls the gateway's certificate endpoint with a
// freshly generated key, the configured auth code, and the client's
// requested name.
type CertificateIssuer struct {
	BaseURL    string
	AuthCode   string
	Name       string
	HTTPClient *http.Client
}

// Issue generates a new key and requests a leaf for it, the HTTP half of
// spec.md §4.H Bootstrapping step 1.
func (i *CertificateIssuer) Issue(ctx context.Context) (*domain.CertificateBundle, error) {
	key, err := ca.GenerateKey()
	if err != nil {
		return nil, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("clientruntime: marshal public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	reqBody, err := json.Marshal(issueCertificateRequest{
		AuthCode:  i.AuthCode,
		PublicKey: string(pubPEM),
		Name:      i.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("clientruntime: marshal issue request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, i.BaseURL+"/remote/certificate", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := i.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("clientruntime: certificate request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("clientruntime: read certificate response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		block, _ := pem.Decode(body)
		if block == nil {
			return nil, fmt.Errorf("clientruntime: malformed leaf PEM in certificate response")
		}
		leaf, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("clientruntime: parse issued leaf: %w", err)
		}
		return &domain.CertificateBundle{Leaf: leaf, PrivateKey: key}, nil
	case http.StatusUnauthorized:
		return nil, domain.ErrAuthRejected
	default:
		return nil, fmt.Errorf("clientruntime: certificate request failed: %s: %s", resp.Status, string(body))
	}
}

// LeafCache holds the most recently issued leaf and re-issues it once
// it enters its renewal window, serializing concurrent callers so that
// spawned connections sharing one runtime never race each other into
// issuing (and consuming the one-shot auth code) twice.
type LeafCache struct {
	issuer        *CertificateIssuer
	renewalWindow time.Duration

	mu     sync.Mutex
	bundle *domain.CertificateBundle
}

// NewLeafCache builds a LeafCache backed by issuer.
func NewLeafCache(issuer *CertificateIssuer) *LeafCache {
	return &LeafCache{issuer: issuer, renewalWindow: DefaultRenewalWindow}
}

// Get returns a leaf valid well beyond the renewal window, issuing a
// new one if there is no cached leaf or the cached one is due for
// renewal (spec.md §4.H Bootstrapping).
func (c *LeafCache) Get(ctx context.Context) (*domain.CertificateBundle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bundle != nil && time.Until(c.bundle.Leaf.NotAfter) > c.renewalWindow {
		return c.bundle, nil
	}

	bundle, err := c.issuer.Issue(ctx)
	if err != nil {
		return nil, err
	}
	c.bundle = bundle
	return bundle, nil
}
