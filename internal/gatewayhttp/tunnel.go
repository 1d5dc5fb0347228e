package gatewayhttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sufield/trz-gateway/internal/domain"
)

// TunnelUpgrader is the minimal surface internal/tunnel.Listener
// exposes, letting gatewayhttp depend only on this interface and
// avoid an import cycle between the two packages.
type TunnelUpgrader interface {
	HandleUpgrade(w http.ResponseWriter, r *http.Request, declaredClientID domain.ClientID)
}

// RegisterTunnelUpgrade wires GET /remote/tunnel/{client_id} to
// listener, per spec.md §4.D/§4.F. {client_id} is advisory only; the
// authoritative identity comes from the client certificate's signed
// extension during the nested TLS handshake.
func RegisterTunnelUpgrade(router chi.Router, listener TunnelUpgrader) {
	router.Get("/remote/tunnel/{client_id}", func(w http.ResponseWriter, r *http.Request) {
		declared := domain.ClientID(chi.URLParam(r, "client_id"))
		listener.HandleUpgrade(w, r, declared)
	})
}
