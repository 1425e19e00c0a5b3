package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarUIntBoundaries(t *testing.T) {
	cases := []struct {
		value uint64
		bytes []byte
	}{
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{16383, []byte{0xFF, 0x7F}},
		{16384, []byte{0x80, 0x80, 0x01}},
	}

	for _, c := range cases {
		var buf bytes.Buffer
		require.NoError(t, WriteVarUInt(&buf, c.value))
		assert.Equal(t, c.bytes, buf.Bytes())

		got, err := ReadVarUInt(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, c.value, got)
	}
}

func TestVarUIntRejectsTenByteRun(t *testing.T) {
	run := bytes.Repeat([]byte{0x80}, 10)
	_, err := ReadVarUInt(bytes.NewReader(run))
	require.Error(t, err)
}

func TestVarUIntRoundTripLargeValues(t *testing.T) {
	for _, v := range []uint64{0, 1, 1 << 20, 1 << 40, 1<<63 - 1} {
		var buf bytes.Buffer
		require.NoError(t, WriteVarUInt(&buf, v))
		got, err := ReadVarUInt(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestNativeStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNativeString(&buf, "hello"))
	got, err := ReadNativeString(bytes.NewReader(buf.Bytes()), 64*1024)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestNativeStringRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNativeString(&buf, "hello"))
	_, err := ReadNativeString(bytes.NewReader(buf.Bytes()), 2)
	require.Error(t, err)
}
