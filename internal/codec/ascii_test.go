package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedASCIIFieldRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFixedASCIIField(&buf, "sa", 30))
	assert.Equal(t, 31, buf.Len())

	value, rest, err := ReadFixedASCIIField(buf.Bytes(), 30)
	require.NoError(t, err)
	assert.Equal(t, "sa", value)
	assert.Empty(t, rest)
}

func TestFixedASCIIFieldPadsWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFixedASCIIField(&buf, "ab", 5))
	assert.Equal(t, []byte{'a', 'b', 0x20, 0x20, 0x20, 2}, buf.Bytes())
}

func TestFixedASCIIFieldRejectsOversizedValue(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFixedASCIIField(&buf, "too long for this field", 4)
	require.Error(t, err)
}

func TestFixedASCIIFieldLeavesTrailingBytesForCaller(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFixedASCIIField(&buf, "sa", 30))
	buf.WriteString("TRAILING")

	value, rest, err := ReadFixedASCIIField(buf.Bytes(), 30)
	require.NoError(t, err)
	assert.Equal(t, "sa", value)
	assert.Equal(t, []byte("TRAILING"), rest)
}
