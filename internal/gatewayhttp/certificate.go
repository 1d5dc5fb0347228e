package gatewayhttp

import (
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sufield/trz-gateway/internal/ca"
	"github.com/sufield/trz-gateway/internal/domain"
)

// issueCertificateRequest is the wire shape of POST /remote/certificate
// (spec.md §6).
type issueCertificateRequest struct {
	AuthCode  string `json:"auth_code"`
	PublicKey string `json:"public_key"`
	Name      string `json:"name"`
}

// RegisterCertificateIssuance wires POST /remote/certificate against
// authority, mapping 4.B failures to the status codes spec.md §4.D
// names: AuthRejected → 401, parse errors → 400, everything else →
// 500.
func RegisterCertificateIssuance(router chi.Router, authority *ca.CA, logger *slog.Logger) {
	router.Post("/remote/certificate", func(w http.ResponseWriter, r *http.Request) {
		var req issueCertificateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}

		block, _ := pem.Decode([]byte(req.PublicKey))
		if block == nil {
			http.Error(w, "invalid public_key PEM", http.StatusBadRequest)
			return
		}
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			http.Error(w, "invalid public_key", http.StatusBadRequest)
			return
		}

		leafPEM, err := authority.Issue(ca.IssueRequest{
			AuthCode:  req.AuthCode,
			PublicKey: pub,
			Name:      req.Name,
		})
		switch {
		case err == nil:
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write(leafPEM)
		case errors.Is(err, domain.ErrAuthRejected):
			http.Error(w, "auth code rejected", http.StatusUnauthorized)
		default:
			logger.Error("certificate issuance failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	})
}

