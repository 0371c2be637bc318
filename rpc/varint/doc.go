// Package varint implements the variable-length integer encoding used for the
// length prefix of every frame exchanged with an rmemstore server.
//
// A varint is a little-endian base-128 sequence: every byte carries 7 value
// bits, the high bit (0x80) is set on every byte except the last one. The
// encoding is identical to the protobuf varint, so the package is a thin layer
// over protowire that adds the error distinction the frame reader needs:
//
//   - ErrIncomplete: the buffer ends before a terminating byte was found. This
//     is the normal "wait for more bytes" condition and not a protocol error.
//
//   - ErrMalformed: the sequence does not terminate within the 64-bit width
//     (10 bytes). The stream is corrupt and cannot be resynchronized.
package varint
