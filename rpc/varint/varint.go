package varint

import (
	"errors"
	"fmt"
	"google.golang.org/protobuf/encoding/protowire"
	"io"
)

// MaxLen is the maximum number of bytes a 64-bit varint occupies
const MaxLen = 10

var (
	// ErrIncomplete is returned when the buffer ends before the varint terminates
	ErrIncomplete = errors.New("varint: incomplete")
	// ErrMalformed is returned when the varint exceeds the 64-bit width
	ErrMalformed = errors.New("varint: malformed")
)

// Append appends the varint encoding of v to b and returns the extended buffer
func Append(b []byte, v uint64) []byte {
	return protowire.AppendVarint(b, v)
}

// Encode returns the varint encoding of v in a new slice
func Encode(v uint64) []byte {
	return Append(make([]byte, 0, Size(v)), v)
}

// Size returns the number of bytes needed to encode v
func Size(v uint64) int {
	return protowire.SizeVarint(v)
}

// Decode decodes a varint from buf starting at offset.
// It returns the value and the number of bytes consumed.
func Decode(buf []byte, offset int) (uint64, int, error) {
	if offset < 0 {
		return 0, 0, fmt.Errorf("%w: negative offset %d", ErrMalformed, offset)
	}
	if offset >= len(buf) {
		return 0, 0, ErrIncomplete
	}

	v, n := protowire.ConsumeVarint(buf[offset:])
	if n < 0 {
		err := protowire.ParseError(n)
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, 0, ErrIncomplete
		}
		return 0, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return v, n, nil
}
