package client

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/rmemstore/rpc/common"
	"github.com/ValentinKolb/rmemstore/rpc/transport"
)

// IMemstore is the typed client interface of an rmemstore server.
// All methods are safe for concurrent use, calls are multiplexed over one connection.
type IMemstore interface {
	// Put stores value under key. An error wrapping ErrRejected is returned if
	// the server did not accept the value.
	Put(ctx context.Context, key []byte, value *common.Value) error
	// Get returns the value of key. The boolean return value indicates whether a value for the key was found.
	Get(ctx context.Context, key []byte) (value *common.Value, loaded bool, err error)
	// Close closes the connection to the server
	Close() error
}

// NewRPCMemstore creates a new RPC memstore client
// The function connects the transport with the given config
// It returns an IMemstore and an error
func NewRPCMemstore(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
) (IMemstore, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	return &rpcMemstore{
		rpcClientAdapter{
			config:    config,
			transport: transport,
		},
	}, nil
}

type rpcMemstore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see IMemstore)
// --------------------------------------------------------------------------

func (c *rpcMemstore) Put(ctx context.Context, key []byte, value *common.Value) error {
	resp, err := c.invokeRPCRequest(ctx, common.NewPutRequest(key, value))
	if err != nil {
		return err
	}
	if resp.Failed() {
		return fmt.Errorf("put %q: %w", key, ErrRejected)
	}
	return nil
}

func (c *rpcMemstore) Get(ctx context.Context, key []byte) (*common.Value, bool, error) {
	resp, err := c.invokeRPCRequest(ctx, common.NewGetRequest(key))
	if err != nil {
		return nil, false, err
	}
	// Case miss: no value in the response
	if resp.Value == nil {
		return nil, false, nil
	}
	return resp.Value, true, nil
}

func (c *rpcMemstore) Close() error {
	return c.transport.Close()
}
