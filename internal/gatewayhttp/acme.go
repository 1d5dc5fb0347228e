package gatewayhttp

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
)

// acmeResponder serves ACME HTTP-01 challenge responses for an
// external process rotating the gateway's own server certificate.
// ACME issuance itself is out of scope (spec.md §1); this only serves
// the challenge surface.
type acmeResponder struct {
	mu         sync.RWMutex
	keyAuthzes map[string]string
}

func newACMEResponder() *acmeResponder {
	return &acmeResponder{keyAuthzes: make(map[string]string)}
}

// Publish makes keyAuthorization available at
// /.well-known/acme-challenge/{token}.
func (a *acmeResponder) Publish(token, keyAuthorization string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keyAuthzes[token] = keyAuthorization
}

// Withdraw removes a previously published challenge response.
func (a *acmeResponder) Withdraw(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.keyAuthzes, token)
}

func (a *acmeResponder) handle(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	a.mu.RLock()
	keyAuthorization, ok := a.keyAuthzes[token]
	a.mu.RUnlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte(keyAuthorization))
}
