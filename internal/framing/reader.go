// Package framing implements the Buffered Framed Reader (spec §4.2): it
// turns a stream of socket reads into a stream of complete frames,
// retaining any bytes delivered past the end of the current frame for
// the next call.
package framing

import (
	"bytes"
	"fmt"
	"io"
)

// DefaultMaxBuffer is the hard cap spec §4.2 calls for on protocols that
// don't set a tighter one themselves.
const DefaultMaxBuffer = 10 << 20 // 10 MiB

// Reader accumulates bytes from an underlying io.Reader until a caller
// supplied predicate reports a frame is complete, then yields exactly
// that frame and keeps the remainder buffered for the next call.
//
// Reader never double-buffers within a frame: it grows buf by
// len(chunk) on every underlying Read and advances a read cursor as
// frames are consumed; compaction only happens once the cursor passes
// half of buf's length, so a long-lived connection doesn't re-copy its
// whole backlog on every frame.
type Reader struct {
	src      io.Reader
	buf      []byte
	cursor   int
	maxBytes int
}

// NewReader wraps src. maxBytes bounds how large the backing buffer may
// grow before NextFrame gives up with a ProtocolError-flavored error;
// pass 0 to use DefaultMaxBuffer.
func NewReader(src io.Reader, maxBytes int) *Reader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBuffer
	}
	return &Reader{src: src, maxBytes: maxBytes}
}

// Predicate inspects the bytes buffered so far (from the current
// cursor onward) and reports how many bytes make up one complete frame,
// or ok=false if more data is needed.
type Predicate func(buffered []byte) (frameLen int, ok bool)

// NextFrame reads from the underlying source, growing the buffer chunk
// by chunk, until pred reports a complete frame or the byte budget is
// exhausted. The returned slice aliases the Reader's internal buffer
// and is only valid until the next call to NextFrame.
func (r *Reader) NextFrame(pred Predicate) ([]byte, error) {
	// Compact on entry rather than after yielding a frame, so the slice
	// returned by the previous call stays intact until this call.
	r.compact()
	for {
		available := r.buf[r.cursor:]
		if frameLen, ok := pred(available); ok {
			frame := available[:frameLen]
			r.cursor += frameLen
			return frame, nil
		}

		if len(r.buf) >= r.maxBytes {
			return nil, fmt.Errorf("frame exceeds max buffer size %d bytes", r.maxBytes)
		}

		chunk := make([]byte, 4096)
		n, err := r.src.Read(chunk)
		if n > 0 {
			r.buf = append(r.buf, chunk[:n]...)
			if len(r.buf) > r.maxBytes {
				return nil, fmt.Errorf("frame exceeds max buffer size %d bytes", r.maxBytes)
			}
		}
		if err != nil {
			if err == io.EOF && n == 0 {
				return nil, fmt.Errorf("connection closed before frame completed: %w", err)
			}
			if err != io.EOF {
				return nil, fmt.Errorf("read frame: %w", err)
			}
		}
	}
}

// compact drops already-consumed bytes once the cursor has passed
// halfway through the buffer, rather than on every frame.
func (r *Reader) compact() {
	if r.cursor > len(r.buf)/2 {
		remaining := len(r.buf) - r.cursor
		copy(r.buf, r.buf[r.cursor:])
		r.buf = r.buf[:remaining]
		r.cursor = 0
	}
}

// LengthPrefixed builds a Predicate for frames shaped as a headerSize-
// byte header (already including the length field) followed by a body
// whose length is extracted by readLen from the header bytes.
func LengthPrefixed(headerSize int, readLen func(header []byte) int) Predicate {
	return func(buffered []byte) (int, bool) {
		if len(buffered) < headerSize {
			return 0, false
		}
		bodyLen := readLen(buffered[:headerSize])
		total := headerSize + bodyLen
		if len(buffered) < total {
			return 0, false
		}
		return total, true
	}
}

// Delimiter builds a Predicate that waits for delim to appear anywhere
// in the buffered bytes, yielding everything up to and including it.
// The search has no budget of its own; construct the Reader with a
// maxBytes tight enough for the protocol (e.g. 16 KiB for an XMPP
// stanza scan) to bound it.
func Delimiter(delim []byte) Predicate {
	return func(buffered []byte) (int, bool) {
		if idx := bytes.Index(buffered, delim); idx >= 0 {
			return idx + len(delim), true
		}
		return 0, false
	}
}

// FixedBytes builds a Predicate that waits for exactly n bytes.
func FixedBytes(n int) Predicate {
	return func(buffered []byte) (int, bool) {
		if len(buffered) < n {
			return 0, false
		}
		return n, true
	}
}
