package tunnel

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/yamux"
	"google.golang.org/grpc"

	"github.com/sufield/trz-gateway/internal/ca"
	"github.com/sufield/trz-gateway/internal/domain"
	"github.com/sufield/trz-gateway/internal/dynamicconfig"
	"github.com/sufield/trz-gateway/internal/grpcpipe"
	"github.com/sufield/trz-gateway/internal/registry"
	"github.com/sufield/trz-gateway/internal/tlsfactory"
	"github.com/sufield/trz-gateway/internal/wsio"
)

const handshakeTimeout = 15 * time.Second

// ServiceRegisterer registers application (and health) gRPC services
// onto the inbound server for every accepted tunnel.
type ServiceRegisterer func(*grpc.Server)

// Listener is the gateway-side tunnel acceptor (spec.md §4.F). One
// Listener serves every upgraded WebSocket; HandleUpgrade is called
// once per inbound connection.
type Listener struct {
	upgrader   websocket.Upgrader
	tlsCell    *dynamicconfig.Cell[tlsfactory.ServerMaterial]
	registry   *registry.Registry
	registerer ServiceRegisterer
	logger     *slog.Logger
}

// NewListener builds a Listener that accepts tunnels authenticated
// against tlsCell's trust material, registering connections in reg
// and serving, on each inbound tunnel's gateway-hosted gRPC server,
// whatever registerer wires up (at minimum healthpb.HealthService).
func NewListener(tlsCell *dynamicconfig.Cell[tlsfactory.ServerMaterial], reg *registry.Registry, registerer ServiceRegisterer, logger *slog.Logger) *Listener {
	return &Listener{
		upgrader:   websocket.Upgrader{},
		tlsCell:    tlsCell,
		registry:   reg,
		registerer: registerer,
		logger:     logger,
	}
}

// HandleUpgrade upgrades r to a WebSocket, runs the inner TLS server
// handshake, verifies the client's signed identity extension, and
// registers the resulting connection — the seven steps of spec.md §4.F.
func (l *Listener) HandleUpgrade(w http.ResponseWriter, r *http.Request, declaredClientID domain.ClientID) {
	ws, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	conn := wsio.New(ws)

	if err := l.serve(r.Context(), conn, declaredClientID); err != nil {
		l.logger.Warn("tunnel closed", "declared_client_id", declaredClientID, "error", err)
	}
}

func (l *Listener) serve(ctx context.Context, conn *wsio.Conn, declaredClientID domain.ClientID) error {
	defer conn.Close()

	material := l.tlsCell.Get()
	tlsConn := tls.Server(conn, tlsfactory.Server(l.tlsCell))

	handshakeCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	if err := tlsConn.HandshakeContext(handshakeCtx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrHandshakeFailed, err)
	}

	peerCerts := tlsConn.ConnectionState().PeerCertificates
	if len(peerCerts) == 0 {
		return domain.ErrHandshakeFailed
	}
	identity, err := l.verifyIdentity(peerCerts[0], material, declaredClientID)
	if err != nil {
		return err
	}

	session, err := yamux.Server(tlsConn, yamux.DefaultConfig())
	if err != nil {
		return fmt.Errorf("tunnel: yamux session: %w", err)
	}
	defer session.Close()

	inboundStream, err := session.Accept()
	if err != nil {
		return fmt.Errorf("tunnel: accept inbound stream: %w", err)
	}
	outboundStream, err := session.Open()
	if err != nil {
		return fmt.Errorf("tunnel: open outbound stream: %w", err)
	}

	outboundConn, err := grpcpipe.DialOverConn(outboundStream)
	if err != nil {
		return fmt.Errorf("tunnel: dial outbound channel: %w", err)
	}
	defer outboundConn.Close()

	connID := l.registry.NewConnectionID()
	registryConn := &registry.Connection{ID: connID, Channel: registry.NewChannel(outboundConn)}
	l.registry.Add(identity, registryConn)
	defer l.registry.Remove(identity, connID)

	inboundServer := grpc.NewServer()
	if l.registerer != nil {
		l.registerer(inboundServer)
	}

	serveDone := make(chan error, 1)
	go func() { serveDone <- grpcpipe.ServeOnce(inboundServer, inboundStream) }()

	select {
	case err := <-serveDone:
		inboundServer.Stop()
		return err
	case <-ctx.Done():
		inboundServer.Stop()
		<-serveDone
		return ctx.Err()
	}
}

// verifyIdentity re-runs the signed-extension check explicitly (defense
// in depth beyond the TLS verifier already installed by tlsfactory),
// and prefers the certificate identity over declaredClientID on
// mismatch, per spec.md §4.F step 3.
func (l *Listener) verifyIdentity(leaf *x509.Certificate, material tlsfactory.ServerMaterial, declaredClientID domain.ClientID) (domain.ClientID, error) {
	if err := ca.Verify(leaf, material.ClientTrust, material.ExpectedSigner); err != nil {
		return "", err
	}
	var identity domain.ClientID
	for _, ext := range leaf.Extensions {
		if ext.Id.Equal(domain.SignedExtensionOID) {
			parsed, err := domain.UnmarshalSignedExtension(ext.Value)
			if err != nil {
				return "", fmt.Errorf("%w: %v", domain.ErrExtensionMissing, err)
			}
			identity = domain.ClientID(parsed.Identity)
			break
		}
	}
	if identity != declaredClientID {
		l.logger.Info("declared client id disagrees with certificate identity",
			"declared", declaredClientID, "certificate", identity)
	}
	return identity, nil
}
