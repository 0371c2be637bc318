package serializer

import "github.com/ValentinKolb/rmemstore/rpc/common"

// IRPCSerializer is the interface for all envelope serializers.
// The client serializes requests and deserializes responses, the server does the opposite.
type IRPCSerializer interface {
	// SerializeRequest serializes a request envelope into a byte array
	SerializeRequest(req common.Request) ([]byte, error)
	// DeserializeRequest deserializes a byte array into a request envelope
	DeserializeRequest(b []byte, req *common.Request) error
	// SerializeResponse serializes a response envelope into a byte array
	SerializeResponse(resp common.Response) ([]byte, error)
	// DeserializeResponse deserializes a byte array into a response envelope.
	// Implementations must not keep references to b after returning.
	DeserializeResponse(b []byte, resp *common.Response) error
	// Name returns the name of the serializer (e.g. "protobuf")
	Name() string
}
