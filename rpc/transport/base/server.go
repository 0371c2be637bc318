package base

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/rmemstore/rpc/common"
	"github.com/ValentinKolb/rmemstore/rpc/serializer"
	"github.com/ValentinKolb/rmemstore/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector         IServerConnector
	serializer        serializer.IRPCSerializer
	handler           transport.ServerHandleFunc
	config            common.ServerConfig
	listener          net.Listener
	maxWorkersPerConn int

	ready     chan struct{}
	readyOnce sync.Once
	closed    atomic.Bool
	conns     *xsync.MapOf[net.Conn, struct{}]
	connWg    sync.WaitGroup
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with per-connection worker pool
func NewBaseServerTransport(connector IServerConnector, s serializer.IRPCSerializer, maxWorkersPerConn int) transport.IRPCServerTransport {
	return &serverTransport{
		connector:         connector,
		serializer:        s,
		maxWorkersPerConn: max(maxWorkersPerConn, 1), // minimum one worker per connection
		ready:             make(chan struct{}),
		conns:             xsync.NewMapOf[net.Conn, struct{}](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	// waiters on Ready are released on every path, Addr stays nil on failure
	defer t.readyOnce.Do(func() { close(t.ready) })

	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}
	t.config = config

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	t.listener = listener
	t.readyOnce.Do(func() { close(t.ready) })

	// Close may have run before the listener existed
	if t.closed.Load() {
		_ = listener.Close()
		return nil
	}

	Logger.Infof("Starting %s server on %s with %d workers per connection using %s serializer",
		t.connector.GetName(), listener.Addr(), t.maxWorkersPerConn, t.serializer.Name())

	// Accept connections
	for {
		conn, err := listener.Accept()
		if err != nil {
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				t.connWg.Wait()
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		if err := t.connector.UpgradeConnection(conn, config); err != nil {
			Logger.Errorf("Failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
			_ = conn.Close()
			continue
		}

		// Handle the connection in a goroutine
		t.conns.Store(conn, struct{}{})
		t.connWg.Add(1)
		go func() {
			defer t.connWg.Done()
			defer t.conns.Delete(conn)
			t.handleConnection(conn)
		}()
	}
}

func (t *serverTransport) Ready() <-chan struct{} {
	return t.ready
}

func (t *serverTransport) Addr() net.Addr {
	select {
	case <-t.ready:
		if t.listener == nil {
			return nil
		}
		return t.listener.Addr()
	default:
		return nil
	}
}

func (t *serverTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}

	var err error
	select {
	case <-t.ready:
		if t.listener != nil {
			err = t.listener.Close()
		}
	default:
	}

	t.conns.Range(func(conn net.Conn, _ struct{}) bool {
		_ = conn.Close()
		return true
	})
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleConnection handles incoming requests for one connection
func (t *serverTransport) handleConnection(conn net.Conn) {
	defer conn.Close()

	// Timeout in seconds
	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	// Create a semaphore to limit concurrent workers for this connection
	// The buffered channel acts as a counting semaphore
	workerSemaphore := make(chan struct{}, t.maxWorkersPerConn)

	// Create a wait group to wait for all workers to finish
	var wg sync.WaitGroup

	// Create a mutex to protect writes to the connection
	var connMutex sync.Mutex

	// Handler function that processes requests in worker goroutines
	handleRequest := func(req common.Request) {
		// When done, release the semaphore and mark worker as done
		defer func() {
			<-workerSemaphore
			wg.Done()
		}()

		// Process the request
		start := time.Now()
		resp := t.handler(req)
		resp.ID = req.ID
		Logger.Debugf("Processed %s request %d in %s", req.Op, req.ID, time.Since(start))

		data, err := t.serializer.SerializeResponse(resp)
		if err != nil {
			Logger.Errorf("Failed to serialize response %d: %v", req.ID, err)
			data, err = t.serializer.SerializeResponse(*common.NewOkResponse(req.ID, false))
			if err != nil {
				return
			}
		}

		// Protect writes to the connection with a mutex
		connMutex.Lock()
		defer connMutex.Unlock()

		if timeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Failed to set write deadline: %v", err)
				return
			}
		}

		// Write the response frame
		if _, err := writeFrame(conn, data); err != nil {
			Logger.Errorf("Failed to write response: %v", err)
		}
	}

	reader := newFrameReader(conn, t.config.Transport.FrameConf)
	err := reader.run(func(frame []byte) error {
		var req common.Request
		if err := t.serializer.DeserializeRequest(frame, &req); err != nil {
			return fmt.Errorf("%w: %v", transport.ErrMalformedEnvelope, err)
		}

		// Acquire a slot in the semaphore (blocks if maxWorkersPerConn is reached)
		workerSemaphore <- struct{}{}
		wg.Add(1)
		go handleRequest(req)

		return nil
	})

	// Case EOF or local shutdown: Connection closed normally
	if err == nil || t.closed.Load() {
		Logger.Debugf("Connection from %s closed", conn.RemoteAddr())
	} else {
		Logger.Errorf("Error handling connection from %s: %v", conn.RemoteAddr(), err)
	}

	// Wait for all workers to finish before closing the connection
	wg.Wait()
}
