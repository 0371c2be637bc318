package base

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/rmemstore/rpc/common"
	"github.com/ValentinKolb/rmemstore/rpc/serializer"
	"github.com/ValentinKolb/rmemstore/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("transport/rpc")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Client Connection (request multiplexer)
// -----------------------------------------------------------

// ClientConn multiplexes concurrent requests over a single connection.
//
// Every request gets a unique id and a result slot in the pending table
// before it is written. A background reader decodes incoming frames and
// settles the slot whose id matches the response, so responses may arrive in
// any order. The reader owns the read side of the connection, writers share
// the write side under writeMu.
//
// Ids start at 1 and are never reused. Wraparound of the 64 bit counter is
// not handled.
type ClientConn struct {
	conn       io.ReadWriteCloser
	serializer serializer.IRPCSerializer
	config     common.ClientConfig

	pending       *xsync.MapOf[uint64, chan common.Response]
	nextRequestID uint64     // Atomic counter, holds the last assigned id
	writeMu       sync.Mutex // Protects writes to the connection

	done      chan struct{} // Closed when the reader stopped
	err       error         // Why the reader stopped, written before done is closed
	closing   atomic.Bool
	closeOnce sync.Once
	closeErr  error

	metrics *clientMetrics
}

// NewClientConn takes ownership of conn and starts reading responses from it.
// The connection must already be established.
func NewClientConn(conn io.ReadWriteCloser, s serializer.IRPCSerializer, config common.ClientConfig) *ClientConn {
	c := &ClientConn{
		conn:       conn,
		serializer: s,
		config:     config,
		pending:    xsync.NewMapOf[uint64, chan common.Response](),
		done:       make(chan struct{}),
	}
	c.metrics = newClientMetrics(config.Endpoint, func() float64 {
		return float64(c.pending.Size())
	})

	go c.readResponses()

	return c
}

// Send writes req with a fresh id and waits until the matching response is
// delivered. The returned response may be an application level failure,
// check Response.Failed.
//
// If ctx is done first Send returns ctx.Err(), the request stays pending
// until its response arrives. If the reader stops while Send waits, Send
// returns the reader's error when FailPending is configured and keeps waiting
// for ctx otherwise.
func (c *ClientConn) Send(ctx context.Context, req common.Request) (common.Response, error) {
	// Fail fast if no response can arrive anymore
	select {
	case <-c.done:
		return common.Response{}, c.err
	default:
	}

	start := time.Now()

	// Assign the id and register the result slot
	req.ID = atomic.AddUint64(&c.nextRequestID, 1)
	data, err := c.serializer.SerializeRequest(req)
	if err != nil {
		return common.Response{}, fmt.Errorf("failed to serialize request %d: %w", req.ID, err)
	}

	slot := make(chan common.Response, 1)
	c.pending.Store(req.ID, slot)

	// the reader may have stopped after the check above
	select {
	case <-c.done:
		c.pending.Delete(req.ID)
		return common.Response{}, c.err
	default:
	}

	if err := c.write(data); err != nil {
		c.pending.Delete(req.ID)
		return common.Response{}, fmt.Errorf("failed to write request %d: %w", req.ID, err)
	}
	c.metrics.requests.Inc()

	// A nil channel never fires, pending requests are orphaned in that case
	var stopped <-chan struct{}
	if c.config.FailPending {
		stopped = c.done
	}

	select {
	case resp := <-slot:
		c.metrics.duration.UpdateDuration(start)
		return resp, nil
	case <-stopped:
		// the response may have been delivered right before the reader stopped
		if _, ok := c.pending.LoadAndDelete(req.ID); ok {
			return common.Response{}, fmt.Errorf("request %d: %w", req.ID, c.err)
		}
		return <-slot, nil
	case <-ctx.Done():
		return common.Response{}, ctx.Err()
	}
}

// Done is closed once the reader stopped, no response is delivered afterwards
func (c *ClientConn) Done() <-chan struct{} {
	return c.done
}

// Err returns why the reader stopped or nil while it is running
func (c *ClientConn) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Pending returns the number of requests waiting for a response
func (c *ClientConn) Pending() int {
	return c.pending.Size()
}

// WriteMetrics writes the connection metrics in Prometheus text format
func (c *ClientConn) WriteMetrics(w io.Writer) {
	c.metrics.set.WritePrometheus(w)
}

// Close closes the connection and waits for the reader to stop.
// Pending requests are only failed if FailPending is configured.
func (c *ClientConn) Close() error {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		c.closeErr = c.conn.Close()
		<-c.done
	})
	return c.closeErr
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// write writes one frame while holding the write lock
func (c *ClientConn) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.config.TimeoutSecond > 0 {
		if dc, ok := c.conn.(interface{ SetWriteDeadline(time.Time) error }); ok {
			timeout := time.Duration(c.config.TimeoutSecond) * time.Second
			if err := dc.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				return err
			}
		}
	}

	if _, err := writeFrame(c.conn, data); err != nil {
		return err
	}

	// buffered connections must be flushed before waiting for the response
	if f, ok := c.conn.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// readResponses reads frames until the connection ends or a frame cannot be
// dispatched, then records why it stopped and closes done
func (c *ClientConn) readResponses() {
	reader := newFrameReader(c.conn, c.config.Transport.FrameConf)

	err := reader.run(func(frame []byte) error {
		c.metrics.frameBytes.Add(len(frame))

		var resp common.Response
		if err := c.serializer.DeserializeResponse(frame, &resp); err != nil {
			return fmt.Errorf("%w: %v", transport.ErrMalformedEnvelope, err)
		}
		return c.deliver(resp)
	})

	switch {
	case c.closing.Load():
		err = transport.ErrClientClosed
	case err == nil:
		if n := reader.buffered(); n > 0 {
			Logger.Warningf("Connection to %s closed with %d bytes of an incomplete frame", c.config.Endpoint, n)
		}
		err = transport.ErrConnectionClosed
		Logger.Infof("Connection to %s closed by server", c.config.Endpoint)
	default:
		Logger.Errorf("Stopped reading responses from %s with %d pending requests: %v", c.config.Endpoint, c.pending.Size(), err)
	}

	c.err = err
	close(c.done)
}

// deliver settles the pending slot of resp.ID and removes it from the table.
// A response without a pending request is a protocol violation.
func (c *ClientConn) deliver(resp common.Response) error {
	slot, ok := c.pending.LoadAndDelete(resp.ID)
	if !ok {
		return fmt.Errorf("%w: %d", transport.ErrUnknownRequestID, resp.ID)
	}

	// the slot is buffered and only reachable through the table, this never blocks
	slot <- resp
	c.metrics.responses.Inc()
	return nil
}
