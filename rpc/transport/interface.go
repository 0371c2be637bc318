package transport

import (
	"context"
	"github.com/ValentinKolb/rmemstore/rpc/common"
	"io"
	"net"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received.
// The transport copies the request id into the returned response.
type ServerHandleFunc func(req common.Request) (resp common.Response)

// IRPCServerTransport is the interface for the RPC server transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler is called for every request received on any connection
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and serves connections until Close is called
	Listen(config common.ServerConfig) error
	// Ready is closed once the transport accepts connections or Listen failed
	Ready() <-chan struct{}
	// Addr returns the listening address, nil before Ready is closed or if Listen failed
	Addr() net.Addr
	// Close stops listening and closes all open connections
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport.
// A client transport owns exactly one connection, requests are multiplexed over it.
type IRPCClientTransport interface {
	// Connect establishes the connection with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and waits for the matching response.
	// The request id is assigned by the transport. Canceling ctx stops waiting
	// but does not withdraw the request.
	Send(ctx context.Context, req common.Request) (resp common.Response, err error)
	// Done is closed once the connection stopped receiving responses
	Done() <-chan struct{}
	// Err returns the reason the connection stopped, nil while it is running
	Err() error
	// WriteMetrics writes the connection metrics in Prometheus text format
	WriteMetrics(w io.Writer)
	// Close closes the transport connection
	Close() error
}
