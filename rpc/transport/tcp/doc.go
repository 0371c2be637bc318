// Package tcp implements the TCP transport of the rmemstore RPC client and
// the development server. It only provides connectors for the base package,
// framing and request multiplexing live there.
//
// Key Components:
//
//   - clientConnector: dials the endpoint (host:port) and applies the socket
//     options of ClientConfig.Transport
//
//   - serverConnector: listens on the endpoint and applies the socket options
//     of ServerConfig.Transport to every accepted connection
//
// Socket options left at their zero value keep the operating system default,
// except TCPNoDelay which is always applied.
package tcp
