package registry

import (
	"context"

	"google.golang.org/grpc"

	"github.com/sufield/trz-gateway/internal/domain"
)

// grpcChannel lets a *grpc.ClientConn be stored as a Connection's
// Channel and recovered by the dispatcher.
type grpcChannel struct {
	conn *grpc.ClientConn
}

// NewChannel wraps conn as a registry Channel, suitable for
// Connection.Channel.
func NewChannel(conn *grpc.ClientConn) Channel {
	return grpcChannel{conn: conn}
}

// ClientFor returns a grpc.ClientConnInterface that dispatches every
// call to the least-loaded live connection for id, tracking in-flight
// load the way the original's PendingRequests decorator does
// (spec.md §4.G).
func (r *Registry) ClientFor(id domain.ClientID) grpc.ClientConnInterface {
	return &dispatcher{registry: r, clientID: id}
}

type dispatcher struct {
	registry *Registry
	clientID domain.ClientID
}

func (d *dispatcher) pick() (*Connection, *grpc.ClientConn, error) {
	conn, err := d.registry.Pick(d.clientID)
	if err != nil {
		return nil, nil, err
	}
	ch, ok := conn.Channel.(grpcChannel)
	if !ok {
		return nil, nil, domain.ErrNotRegistered
	}
	return conn, ch.conn, nil
}

func (d *dispatcher) Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error {
	conn, grpcConn, err := d.pick()
	if err != nil {
		return err
	}
	done := conn.Begin()
	defer done()
	return grpcConn.Invoke(ctx, method, args, reply, opts...)
}

func (d *dispatcher) NewStream(ctx context.Context, desc *grpc.StreamDesc, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	conn, grpcConn, err := d.pick()
	if err != nil {
		return nil, err
	}
	done := conn.Begin()
	stream, err := grpcConn.NewStream(ctx, desc, method, opts...)
	if err != nil {
		done()
		return nil, err
	}
	return &trackedStream{ClientStream: stream, done: done}, nil
}

// trackedStream marks the in-flight call complete once the stream is
// drained or closed, whichever happens first.
type trackedStream struct {
	grpc.ClientStream
	done     func()
	finished bool
}

func (s *trackedStream) RecvMsg(m any) error {
	err := s.ClientStream.RecvMsg(m)
	if err != nil {
		s.finish()
	}
	return err
}

func (s *trackedStream) CloseSend() error {
	err := s.ClientStream.CloseSend()
	s.finish()
	return err
}

func (s *trackedStream) finish() {
	if s.finished {
		return
	}
	s.finished = true
	s.done()
}
