package transport

import "errors"

var (
	// ErrConnectionClosed means the server closed the connection (end of stream)
	ErrConnectionClosed = errors.New("connection closed by server")
	// ErrClientClosed means the connection was closed locally
	ErrClientClosed = errors.New("client closed")
	// ErrNotConnected is returned when a transport is used before Connect
	ErrNotConnected = errors.New("transport not connected")
	// ErrMalformedEnvelope means a frame could not be decoded into an envelope
	ErrMalformedEnvelope = errors.New("malformed envelope")
	// ErrUnknownRequestID means a response referenced a request that is not pending
	ErrUnknownRequestID = errors.New("response for unknown request id")
	// ErrFrameTooLarge means a frame length exceeds the configured limit
	ErrFrameTooLarge = errors.New("frame too large")
)
