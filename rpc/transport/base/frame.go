package base

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/rmemstore/rpc/common"
	"github.com/ValentinKolb/rmemstore/rpc/transport"
	"github.com/ValentinKolb/rmemstore/rpc/varint"
	"io"
	"math"
	"net"
)

// writeFrame writes a frame to w with the format:
// - varint: length of data
// - N bytes: data payload
//
// Prefix and payload are handed over in a single call. Callers writing from
// several goroutines must hold a lock so frames are not interleaved.
func writeFrame(w io.Writer, data []byte) (int64, error) {
	prefix := varint.Append(make([]byte, 0, varint.MaxLen), uint64(len(data)))

	b := net.Buffers{prefix, data}
	return b.WriteTo(w)
}

// frameReader assembles frames from a byte stream that may deliver them in
// arbitrary chunks. Complete frames are taken from the front of buf, an
// incomplete frame stays buffered until more bytes arrive.
type frameReader struct {
	r         io.Reader
	buf       []byte
	chunkSize int
	maxFrame  uint64
}

// newFrameReader creates a frame reader on r
func newFrameReader(r io.Reader, conf common.FrameConf) *frameReader {
	return &frameReader{
		r:         r,
		buf:       make([]byte, 0, conf.ChunkSize()),
		chunkSize: conf.ChunkSize(),
		maxFrame:  conf.FrameLimit(),
	}
}

// run reads from the stream until it ends or handle fails and calls handle
// for every complete frame in stream order. The frame slice is only valid
// until handle returns.
//
// run returns nil at the end of the stream, the read error if reading fails,
// and the error of handle or of the length prefix otherwise.
func (f *frameReader) run(handle func(frame []byte) error) error {
	for {
		// make room for the next chunk
		if cap(f.buf)-len(f.buf) < f.chunkSize {
			grown := make([]byte, len(f.buf), 2*cap(f.buf)+f.chunkSize)
			copy(grown, f.buf)
			f.buf = grown
		}

		n, err := f.r.Read(f.buf[len(f.buf) : len(f.buf)+f.chunkSize])
		if n > 0 {
			f.buf = f.buf[:len(f.buf)+n]
			if err := f.extract(handle); err != nil {
				return err
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// buffered returns the number of bytes of an incomplete frame
func (f *frameReader) buffered() int {
	return len(f.buf)
}

// extract hands every complete frame at the front of the buffer to handle
// and keeps the remaining bytes
func (f *frameReader) extract(handle func(frame []byte) error) error {
	offset := 0

	for offset < len(f.buf) {
		length, n, err := varint.Decode(f.buf, offset)

		// Case prefix not complete: wait for more bytes
		if errors.Is(err, varint.ErrIncomplete) {
			break
		}

		// Case prefix corrupt: the stream cannot be resynchronized
		if err != nil {
			return fmt.Errorf("invalid frame length: %w", err)
		}

		// the end offset of the frame must not overflow int
		if length > f.maxFrame || length > uint64(math.MaxInt-offset-n) {
			return fmt.Errorf("%w: %d bytes (limit %d)", transport.ErrFrameTooLarge, length, f.maxFrame)
		}

		// Case body not complete: keep the prefix, it is decoded again next time
		end := offset + n + int(length)
		if end > len(f.buf) {
			break
		}

		if err := handle(f.buf[offset+n : end]); err != nil {
			return err
		}
		offset = end
	}

	// move the unconsumed tail to the front
	if offset > 0 {
		f.buf = f.buf[:copy(f.buf, f.buf[offset:])]
	}
	return nil
}
