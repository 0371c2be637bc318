package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultReadBufferSize is the chunk size used to read from a connection
	DefaultReadBufferSize = 8 * 1024
	// DefaultMaxFrameBytes bounds the size of a single frame
	DefaultMaxFrameBytes = 64 * 1024 * 1024
)

// --------------------------------------------------------------------------
// Socket configuration structs
// --------------------------------------------------------------------------

// SocketConf holds socket options shared by all stream transports
type SocketConf struct {
	// WriteBufferSize is the kernel write buffer size in bytes (0 = os default)
	WriteBufferSize int
	// ReadBufferSize is the kernel read buffer size in bytes (0 = os default)
	ReadBufferSize int
}

// TCPConf holds tcp specific socket options
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	// TCPLingerSec <= 0 keeps the os default
	TCPLingerSec int
}

// FrameConf controls how frames are read from a connection
type FrameConf struct {
	// ReadChunkSize is the number of bytes requested per read call
	ReadChunkSize int
	// MaxFrameBytes is the largest accepted frame, larger frames are fatal
	MaxFrameBytes uint64
}

// ChunkSize returns the read chunk size or the default
func (c FrameConf) ChunkSize() int {
	if c.ReadChunkSize <= 0 {
		return DefaultReadBufferSize
	}
	return c.ReadChunkSize
}

// FrameLimit returns the max frame size or the default.
// A frame must fit into a slice, the limit never exceeds math.MaxInt.
func (c FrameConf) FrameLimit() uint64 {
	if c.MaxFrameBytes == 0 {
		return DefaultMaxFrameBytes
	}
	return min(c.MaxFrameBytes, uint64(math.MaxInt))
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for the development server
type ServerConfig struct {
	// Endpoint to listen on (host:port for tcp, a path for unix)
	Endpoint string

	TimeoutSecond     int64
	MaxWorkersPerConn int

	Transport ServerTransportConfig

	// Logging configuration
	LogLevel string
}

// ServerTransportConfig holds the transport options of the server
type ServerTransportConfig struct {
	SocketConf
	TCPConf
	FrameConf
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers per conn", strconv.Itoa(c.MaxWorkersPerConn))

	addSection("Transport")
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.Transport.FrameLimit()))
	addField("TCP NoDelay", strconv.FormatBool(c.Transport.TCPNoDelay))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds the configuration of a single client connection
type ClientConfig struct {
	// Endpoint of the server, a client owns exactly one connection to it
	Endpoint string

	// TimeoutSecond bounds writes and is used by callers for request deadlines (0 = none)
	TimeoutSecond int

	// FailPending makes pending requests fail once the response reader stops.
	// If false, requests that were in flight when the reader stopped wait until
	// their context is done.
	FailPending bool

	Transport ClientTransportConfig
}

// ClientTransportConfig holds the transport options of the client
type ClientTransportConfig struct {
	SocketConf
	TCPConf
	FrameConf
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Fail Pending", strconv.FormatBool(c.FailPending))

	addSection("Transport")
	addField("Read Chunk Size", fmt.Sprintf("%d bytes", c.Transport.ChunkSize()))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.Transport.FrameLimit()))
	addField("TCP NoDelay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("TCP KeepAlive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))

	return sb.String()
}
