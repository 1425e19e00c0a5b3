package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexEncodeIsLowercase(t *testing.T) {
	assert.Equal(t, "0a0b0c0d", HexEncode([]byte{0x0A, 0x0B, 0x0C, 0x0D}))
}

func TestHexRoundTrip(t *testing.T) {
	data := []byte{0x01, 0xFF, 0x00, 0xAB}
	got, err := HexDecode(HexEncode(data))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestBase64RoundTrip(t *testing.T) {
	data := []byte{0x00, 0xFF, 0x00}
	assert.Equal(t, "AP8A", Base64Encode(data))
	got, err := Base64Decode(Base64Encode(data))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
