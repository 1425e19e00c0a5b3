package framing

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkedReader replays pre-split byte slices one Read call at a time,
// simulating arbitrary splits of a byte stream across socket reads.
type chunkedReader struct {
	chunks [][]byte
	i      int
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if c.i >= len(c.chunks) {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[c.i])
	c.i++
	return n, nil
}

func lengthPrefixedFrame(body []byte) []byte {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(body)))
	return append(header, body...)
}

func TestNextFrameLengthPrefixed(t *testing.T) {
	frame1 := lengthPrefixedFrame([]byte("hello"))
	frame2 := lengthPrefixedFrame([]byte("world!!"))
	full := append(append([]byte{}, frame1...), frame2...)

	pred := LengthPrefixed(4, func(h []byte) int { return int(binary.BigEndian.Uint32(h)) })

	// Try every possible split point of the two-frame stream across
	// simulated read boundaries (spec §8 property 4).
	for split := 0; split <= len(full); split++ {
		r := NewReader(&chunkedReader{chunks: [][]byte{full[:split], full[split:]}}, 0)

		f1, err := r.NextFrame(pred)
		require.NoError(t, err, "split=%d", split)
		assert.Equal(t, frame1, append([]byte{}, f1...), "split=%d", split)

		f2, err := r.NextFrame(pred)
		require.NoError(t, err, "split=%d", split)
		assert.Equal(t, frame2, append([]byte{}, f2...), "split=%d", split)
	}
}

func TestNextFrameDelimiter(t *testing.T) {
	data := []byte("GET / HTTP/1.1\r\nHost: x\r\n\r\nBODYFOLLOWS")
	r := NewReader(&chunkedReader{chunks: [][]byte{data[:10], data[10:]}}, 0)

	frame, err := r.NextFrame(Delimiter([]byte("\r\n\r\n")))
	require.NoError(t, err)
	assert.Equal(t, "GET / HTTP/1.1\r\nHost: x\r\n\r\n", string(frame))
}

func TestNextFrameRejectsOversizedFrame(t *testing.T) {
	body := make([]byte, 100)
	frame := lengthPrefixedFrame(body)
	r := NewReader(&chunkedReader{chunks: [][]byte{frame}}, 16)

	pred := LengthPrefixed(4, func(h []byte) int { return int(binary.BigEndian.Uint32(h)) })
	_, err := r.NextFrame(pred)
	require.Error(t, err)
}

func TestNextFrameFixedBytes(t *testing.T) {
	r := NewReader(&chunkedReader{chunks: [][]byte{[]byte("SSH-2.0-OpenSSH_9.0\r\n")}}, 0)
	frame, err := r.NextFrame(FixedBytes(4))
	require.NoError(t, err)
	assert.Equal(t, "SSH-", string(frame))
}
