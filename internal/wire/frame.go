package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxFrameBytes is the default upper bound on a single frame's
// payload size, matching the length-delimited codec configuration the
// upstream session network uses on the wire (offset 0, u32 big-endian
// length field, no length adjustment, 64 MiB max frame).
const DefaultMaxFrameBytes = 64 * 1024 * 1024

// lengthPrefixSize is the width of the frame length prefix, in bytes.
const lengthPrefixSize = 4

// ErrFrameTooLarge is returned by ReadFrame when a frame's declared length
// exceeds the configured maximum.
var ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")

// ReadFrame reads one length-delimited frame from r: a 4-byte big-endian
// length prefix followed by that many payload bytes. maxBytes bounds the
// accepted payload length; pass 0 to use DefaultMaxFrameBytes.
func ReadFrame(r io.Reader, maxBytes uint32) ([]byte, error) {
	if maxBytes == 0 {
		maxBytes = DefaultMaxFrameBytes
	}

	var lenBuf [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxBytes {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, maxBytes)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}

	return payload, nil
}

// WriteFrame writes payload to w prefixed with its 4-byte big-endian
// length. maxBytes bounds the payload length that will be written; pass 0
// to use DefaultMaxFrameBytes.
func WriteFrame(w io.Writer, payload []byte, maxBytes uint32) error {
	if maxBytes == 0 {
		maxBytes = DefaultMaxFrameBytes
	}
	if uint32(len(payload)) > maxBytes {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(payload), maxBytes)
	}

	var lenBuf [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))

	buf := make([]byte, 0, lengthPrefixSize+len(payload))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, payload...)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
