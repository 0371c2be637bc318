// Package serializer converts request and response envelopes to and from the
// bytes carried inside a frame. The frame layer treats these bytes as opaque,
// so any implementation can be combined with any transport.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - protobufSerializerImpl: The protobuf wire format of the rmemstore message
//     schema, encoded by hand with protowire. This is the format understood by
//     rmemstored and the one to use in production.
//
//   - jsonSerializerImpl: JSON encoding, useful for debugging against the
//     development server.
//
//   - gobSerializerImpl: Go's gob encoding, only usable between Go peers.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	s := serializer.NewProtobufSerializer()
//	data, err := s.SerializeRequest(*common.NewGetRequest([]byte("key")))
//	// ... send data ...
//	var resp common.Response
//	err = s.DeserializeResponse(receivedData, &resp)
package serializer
