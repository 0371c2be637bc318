// Package transport defines the interfaces and errors shared by all transport
// implementations of the rmemstore client and development server.
//
// Every transport speaks the same protocol on a reliable byte stream: each
// envelope is serialized and written as a frame
//
//	frame := varint(len) bytes[len]
//
// and responses are matched to requests by the id inside the envelope, so many
// requests can be in flight on one connection and answered in any order.
//
// Key Components:
//
//   - IRPCClientTransport: Client side, owns one connection and multiplexes
//     concurrent requests over it.
//
//   - IRPCServerTransport: Server side, accepts connections and calls a
//     ServerHandleFunc for every request.
//
//   - Errors: ErrConnectionClosed, ErrClientClosed, ErrMalformedEnvelope,
//     ErrUnknownRequestID and ErrFrameTooLarge describe why a connection stopped.
//     Use errors.Is to check them.
package transport
