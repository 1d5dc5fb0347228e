package clientruntime

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/yamux"
	"google.golang.org/grpc"

	"github.com/sufield/trz-gateway/internal/domain"
	"github.com/sufield/trz-gateway/internal/grpcpipe"
	"github.com/sufield/trz-gateway/internal/healthpb"
	"github.com/sufield/trz-gateway/internal/tlsfactory"
	"github.com/sufield/trz-gateway/internal/trust"
	"github.com/sufield/trz-gateway/internal/wsio"
)

const handshakeTimeout = 15 * time.Second

// ApplicationRegisterer registers the client-hosted application gRPC
// services onto the server the gateway dispatches to through the
// registry (spec.md §4.G/§4.H). Health is wired separately; nil is a
// valid registerer for a client with no application services.
type ApplicationRegisterer func(*grpc.Server)

// session is one established tunnel connection from the remote
// client's side: the inner TLS client handshake over the WebSocket,
// split by yamux into the gateway-accepted stream (carrying the
// client's outbound Health gRPC client) and the gateway-opened stream
// (carrying the client's application gRPC server).
type session struct {
	wsConn       *wsio.Conn
	yamuxSession *yamux.Session
	appServer    *grpc.Server
	healthConn   *grpc.ClientConn
	healthClient healthpb.HealthServiceClient
}

// dialSession performs the Connecting state's work (spec.md §4.H):
// WebSocket dial, inner TLS client handshake, yamux session, and
// wiring of both gRPC directions. serverName is the gateway's outer
// certificate CN/SAN, used both to verify the outer wss:// dial (when
// it is not otherwise publicly trusted) and as the inner TLS client
// handshake's required ServerName.
func dialSession(ctx context.Context, dialURL string, gatewayTrust *trust.Store, bundle *domain.CertificateBundle, serverName string, appRegisterer ApplicationRegisterer) (*session, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: serverName,
			RootCAs:    gatewayTrust.Pool(),
		},
	}
	ws, resp, err := dialer.DialContext(ctx, dialURL, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("clientruntime: websocket dial: %w", err)
	}
	if resp != nil {
		defer resp.Body.Close()
	}
	conn := wsio.New(ws)

	tlsConn := tls.Client(conn, tlsfactory.Client(gatewayTrust, bundle, serverName))
	handshakeCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	if err := tlsConn.HandshakeContext(handshakeCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrHandshakeFailed, err)
	}

	yamuxSession, err := yamux.Client(tlsConn, yamux.DefaultConfig())
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("clientruntime: yamux session: %w", err)
	}

	// The stream this side opens is the one tunnel.Listener accepts
	// and serves its Health service on; this side dials a gRPC client
	// over the same stream to make outbound health pings.
	healthStream, err := yamuxSession.Open()
	if err != nil {
		yamuxSession.Close()
		return nil, fmt.Errorf("clientruntime: open health stream: %w", err)
	}
	// The stream tunnel.Listener opens is the one this side accepts
	// and serves its application services on, dispatched to by the
	// gateway's registry.
	appStream, err := yamuxSession.Accept()
	if err != nil {
		yamuxSession.Close()
		return nil, fmt.Errorf("clientruntime: accept application stream: %w", err)
	}

	healthConn, err := grpcpipe.DialOverConn(healthStream)
	if err != nil {
		yamuxSession.Close()
		return nil, fmt.Errorf("clientruntime: dial health channel: %w", err)
	}

	appServer := grpc.NewServer()
	if appRegisterer != nil {
		appRegisterer(appServer)
	}
	go func() { _ = grpcpipe.ServeOnce(appServer, appStream) }()

	return &session{
		wsConn:       conn,
		yamuxSession: yamuxSession,
		appServer:    appServer,
		healthConn:   healthConn,
		healthClient: healthpb.NewHealthServiceClient(healthConn),
	}, nil
}

// Close tears down every resource the session holds, in dependency
// order (spec.md §5's "resources are released on scope exit").
func (s *session) Close() {
	s.appServer.Stop()
	s.healthConn.Close()
	s.yamuxSession.Close()
	s.wsConn.Close()
}
