// Package unix implements the rmemstore transport over Unix domain sockets
// for clients and servers running on the same machine.
//
// The endpoint is the path of the socket file. The server removes a stale
// socket file at that path before listening.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners and accepts connections
//
// Everything above the connection (framing, multiplexing, worker pools) is
// shared with the tcp package through package base.
package unix
