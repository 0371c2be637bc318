package base

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/rmemstore/rpc/common"
	"github.com/ValentinKolb/rmemstore/rpc/serializer"
	"github.com/ValentinKolb/rmemstore/rpc/transport"
	"io"
	"sync"
)

// clientTransport implements the client transport independent of the
// specific transport medium (unix, tcp, etc.) on top of a single ClientConn
type clientTransport struct {
	connector  IClientConnector
	serializer serializer.IRPCSerializer
	config     common.ClientConfig

	mu   sync.RWMutex
	conn *ClientConn
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector, s serializer.IRPCSerializer) transport.IRPCClientTransport {
	return &clientTransport{
		connector:  connector,
		serializer: s,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if config.Endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return fmt.Errorf("transport is already connected to %s", t.config.Endpoint)
	}

	conn, err := t.connector.Connect(config.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", config.Endpoint, err)
	}

	if err := t.connector.UpgradeConnection(conn, config); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to upgrade connection to %s: %w", config.Endpoint, err)
	}

	t.config = config
	t.conn = NewClientConn(conn, t.serializer, config)

	Logger.Infof("Connected to %s using %s transport and %s serializer",
		config.Endpoint, t.connector.GetName(), t.serializer.Name())

	return nil
}

func (t *clientTransport) Send(ctx context.Context, req common.Request) (common.Response, error) {
	conn, err := t.connection()
	if err != nil {
		return common.Response{}, err
	}
	return conn.Send(ctx, req)
}

func (t *clientTransport) Done() <-chan struct{} {
	conn, err := t.connection()
	if err != nil {
		return nil
	}
	return conn.Done()
}

func (t *clientTransport) Err() error {
	conn, err := t.connection()
	if err != nil {
		return err
	}
	return conn.Err()
}

func (t *clientTransport) WriteMetrics(w io.Writer) {
	if conn, err := t.connection(); err == nil {
		conn.WriteMetrics(w)
	}
}

func (t *clientTransport) Close() error {
	conn, err := t.connection()
	if err != nil {
		return nil
	}
	return conn.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// connection returns the connection or ErrNotConnected
func (t *clientTransport) connection() (*ClientConn, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.conn == nil {
		return nil, transport.ErrNotConnected
	}
	return t.conn, nil
}
