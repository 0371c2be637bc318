// Package common provides the data structures shared by every part of the
// rmemstore client and the development server.
//
// The package focuses on:
//   - Request and response envelopes exchanged over a connection
//   - The Value type (blob, string or map) stored by the server
//   - Configuration structures for client and server components
//   - Custom logging implementation integrated with Dragonboat's logger facade
//
// Key Components:
//
//   - Request / Response: The envelopes carried by every frame. The ID field
//     correlates a response with the request that caused it and is assigned by
//     the client transport. A Response that carries neither a Value nor
//     Ok == true is an application level failure, which is a normal outcome
//     and not a transport error.
//
//   - Value: Tagged union mirroring the server's value schema. Values marshal
//     to JSON as {"blob": ...}, {"string": ...} or {"map": {...}}.
//
//   - ClientConfig / ServerConfig: Connection, socket and framing options with
//     String() renderers used by the command line tools.
//
//   - Logger: Custom formatting for all named loggers (transport/rpc, rpc, cli).
package common
