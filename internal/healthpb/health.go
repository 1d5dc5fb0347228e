// Package healthpb defines the tunnel health-check RPC: a Ping sent by
// the remote client to the gateway's inbound gRPC server, answered with a Pong,
// optionally after an artificial delay used to probe timeout handling
// (spec.md §4.I). The service shape follows what protoc-gen-go-grpc
// would generate from a one-method Ping/Pong service, so swapping in
// real generated code later is a drop-in change; messages are marshaled
// with internal/rpccodec instead of protoc-generated protobuf bindings,
// since no protobuf toolchain runs in this environment.
package healthpb

// Ping is the health-check request. DelayMillis, when non-nil, asks
// the responder to wait that long before replying — used to exercise
// client-side timeout behavior (spec.md §8, invariant 5).
type Ping struct {
	ConnectionID string `json:"connection_id"`
	DelayMillis  *int64 `json:"delay_millis,omitempty"`
}

// Pong is the health-check response. It carries no payload beyond
// having arrived.
type Pong struct{}
