// Package rpccodec provides a JSON grpc/encoding.Codec, standing in
// for protoc-generated protobuf bindings: no protobuf toolchain runs
// in this environment, so every message on the tunnel is plain Go
// structs marshaled as JSON instead of wire-format protobuf. Swapping
// in real generated code later only requires registering the
// standard "proto" codec in its place (spec.md §4.I / DESIGN.md).
package rpccodec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// Name is the codec name negotiated via grpc.CallContentSubtype and
// registered with encoding.RegisterCodec.
const Name = "json"

// Codec implements encoding.Codec using encoding/json.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rpccodec: marshal: %w", err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("rpccodec: unmarshal: %w", err)
	}
	return nil
}

func (Codec) Name() string { return Name }

// Register installs Codec as the named codec "json" with grpc's global
// encoding registry. Call once during process init, before any
// grpc.NewClient/grpc.NewServer that references Name.
func Register() {
	encoding.RegisterCodec(Codec{})
}
