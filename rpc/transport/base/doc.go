// Package base provides the protocol independent part of the rmemstore
// transports. Protocol specific packages (tcp, unix) only contribute a
// connector that dials or listens and tunes the resulting connections.
//
// Wire Format:
//
// Both directions of a connection carry a stream of frames:
//
//	<varint length><length bytes of serialized envelope>
//
// The length is an unsigned base-128 varint (see package varint). Frames
// have no other header, the request id that correlates responses with
// requests lives inside the envelope.
//
// Key Components:
//
//   - frameReader: Assembles frames from a stream that delivers bytes in
//     arbitrary chunks. Incomplete prefixes and bodies stay buffered until
//     more bytes arrive, a corrupt prefix or an oversized frame ends the
//     stream because it cannot be resynchronized.
//
//   - ClientConn: Multiplexes concurrent requests over one connection. Each
//     request gets an id and a slot in the pending table, a background reader
//     settles slots as responses arrive in any order. A response with an id
//     that has no slot is a protocol violation and stops the reader.
//
//   - clientTransport: Dials a single connection with an IClientConnector and
//     wraps it in a ClientConn. There is no pooling, no retry and no
//     reconnect.
//
//   - serverTransport: Accepts connections with an IServerConnector and
//     processes requests of each connection with a bounded number of
//     workers. Responses are written as soon as they are ready, so they may
//     leave in a different order than the requests arrived.
//
// Orphaned Requests:
//
// When the reader stops, requests already waiting for a response can never be
// answered. By default they keep waiting until their context is done. With
// ClientConfig.FailPending set they fail with the error that stopped the
// reader. Requests sent after the reader stopped always fail immediately.
//
// Thread Safety:
//
//	All public methods are safe for concurrent use. Writes to a connection are
//	serialized by a mutex so frames never interleave, the read side is owned by
//	a single goroutine per connection.
package base
