// Package rpc contains the client side transport of rmemstore and the
// development server used to test it.
//
// The package is organized into several subpackages:
//
//   - common: Envelopes (Request, Response, Value), configuration structures
//     and logging.
//
//   - varint: The unsigned varint codec used for frame length prefixes.
//
//   - serializer: Envelope serialization. protobuf is the wire format of
//     rmemstore servers, json and gob are available for debugging.
//
//   - transport: Framing and request multiplexing (base) with TCP and Unix
//     socket connectors.
//
//   - client: The typed Put/Get client.
//
//   - server: Request dispatch of the development server.
package rpc
