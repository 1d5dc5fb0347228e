// Package grpcpipe runs a gRPC client or server over a single
// already-established net.Conn — typically one side of a yamux
// session multiplexed inside a tunnel's inner TLS connection — instead
// of over a conventionally dialed/listened socket. Both
// internal/tunnel (gateway side) and internal/clientruntime (remote
// client side) share this: each tunnel carries two independent gRPC
// sessions running in opposite directions over one physical pipe.
package grpcpipe

import (
	"context"
	"errors"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// DialOverConn builds a *grpc.ClientConn whose transport is exactly
// conn — no further dialing, no TLS (the pipe is already secured by
// the tunnel's inner TLS handshake). conn is handed out exactly once; any
// reconnect attempt grpc-go makes after that fails, matching the
// one-stream-per-session model of the tunnel.
func DialOverConn(conn net.Conn) (*grpc.ClientConn, error) {
	var mu sync.Mutex
	consumed := false
	dialer := func(context.Context, string) (net.Conn, error) {
		mu.Lock()
		defer mu.Unlock()
		if consumed {
			return nil, errors.New("grpcpipe: stream already consumed")
		}
		consumed = true
		return conn, nil
	}

	return grpc.NewClient("passthrough:///pipe",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
}

// singleConnListener is a net.Listener that yields exactly one
// pre-accepted net.Conn, then blocks until closed. grpc.Server.Serve
// needs a net.Listener, but a pipe-based gRPC session runs over one
// already-established stream rather than a socket the server itself
// accepts connections on.
type singleConnListener struct {
	once   sync.Once
	connCh chan net.Conn
	addr   net.Addr
	closed chan struct{}
}

func newSingleConnListener(conn net.Conn) *singleConnListener {
	l := &singleConnListener{
		connCh: make(chan net.Conn, 1),
		addr:   conn.LocalAddr(),
		closed: make(chan struct{}),
	}
	l.connCh <- conn
	return l
}

func (l *singleConnListener) Accept() (net.Conn, error) {
	select {
	case conn, ok := <-l.connCh:
		if !ok {
			return nil, net.ErrClosed
		}
		return conn, nil
	case <-l.closed:
		return nil, net.ErrClosed
	}
}

func (l *singleConnListener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

func (l *singleConnListener) Addr() net.Addr { return l.addr }

// ServeOnce runs server.Serve on exactly one already-accepted
// connection, returning once the stream (and therefore the gRPC
// session on it) ends.
func ServeOnce(server *grpc.Server, conn net.Conn) error {
	lis := newSingleConnListener(conn)
	err := server.Serve(lis)
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
