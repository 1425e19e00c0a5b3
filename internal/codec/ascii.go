package codec

import (
	"bytes"
	"fmt"
)

// WriteFixedASCIIField encodes a TDS-style fixed-width field: width
// bytes of ASCII, space-padded (0x20) past the value's length, followed
// by a single trailing byte giving the actual (unpadded) length. The
// value must fit within width bytes.
func WriteFixedASCIIField(buf *bytes.Buffer, value string, width int) error {
	if len(value) > width {
		return fmt.Errorf("fixed ascii field value %q exceeds width %d", value, width)
	}
	field := make([]byte, width)
	copy(field, value)
	for i := len(value); i < width; i++ {
		field[i] = 0x20
	}
	if _, err := buf.Write(field); err != nil {
		return fmt.Errorf("write fixed ascii field: %w", err)
	}
	return buf.WriteByte(byte(len(value)))
}

// ReadFixedASCIIField reads width bytes plus a trailing length byte and
// returns the value truncated to that length (the trailing space
// padding is discarded, not merely trimmed, so an intentional trailing
// space in a short value is preserved).
func ReadFixedASCIIField(data []byte, width int) (value string, rest []byte, err error) {
	if len(data) < width+1 {
		return "", nil, fmt.Errorf("fixed ascii field needs %d bytes, have %d", width+1, len(data))
	}
	actualLen := int(data[width])
	if actualLen > width {
		return "", nil, fmt.Errorf("fixed ascii field length byte %d exceeds width %d", actualLen, width)
	}
	value = string(data[:actualLen])
	rest = data[width+1:]
	return value, rest, nil
}
