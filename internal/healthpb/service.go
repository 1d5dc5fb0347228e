package healthpb

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/sufield/trz-gateway/internal/rpccodec"
)

// serviceName is the fully qualified gRPC service name, matching what
// protoc would derive from a "trz.tunnel.v1.HealthService" package.
const serviceName = "trz.tunnel.v1.HealthService"

// HealthServiceServer is the server API for HealthService.
type HealthServiceServer interface {
	Ping(context.Context, *Ping) (*Pong, error)
}

// UnimplementedHealthServiceServer can be embedded to have forward
// compatible implementations, matching protoc-gen-go-grpc convention.
type UnimplementedHealthServiceServer struct{}

func (UnimplementedHealthServiceServer) Ping(context.Context, *Ping) (*Pong, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Ping not implemented")
}

// HealthServiceClient is the client API for HealthService.
type HealthServiceClient interface {
	Ping(ctx context.Context, in *Ping, opts ...grpc.CallOption) (*Pong, error)
}

type healthServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewHealthServiceClient builds a HealthServiceClient dispatching
// through cc — typically a *grpc.ClientConn over the tunnel, or a
// registry.Registry.ClientFor result on the gateway side.
func NewHealthServiceClient(cc grpc.ClientConnInterface) HealthServiceClient {
	return &healthServiceClient{cc: cc}
}

func (c *healthServiceClient) Ping(ctx context.Context, in *Ping, opts ...grpc.CallOption) (*Pong, error) {
	out := new(Pong)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(rpccodec.Name)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Ping", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// RegisterHealthServiceServer registers srv with s, the shape
// protoc-gen-go-grpc generates for every service.
func RegisterHealthServiceServer(s grpc.ServiceRegistrar, srv HealthServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

func pingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Ping)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HealthServiceServer).Ping(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Ping"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HealthServiceServer).Ping(ctx, req.(*Ping))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*HealthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: pingHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "health.proto",
}

// DelayFor converts a Ping's optional delay into a time.Duration,
// zero when unset.
func DelayFor(p *Ping) time.Duration {
	if p == nil || p.DelayMillis == nil {
		return 0
	}
	return time.Duration(*p.DelayMillis) * time.Millisecond
}

