package clickhouse

import (
	"bytes"
	"testing"

	"github.com/pocc/portofcall-sub006/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeServerHelloOmitsFieldsBelowRevision(t *testing.T) {
	var buf bytes.Buffer
	_ = codec.WriteNativeString(&buf, "ClickHouse")
	_ = codec.WriteVarUInt(&buf, 20)
	_ = codec.WriteVarUInt(&buf, 1)
	_ = codec.WriteVarUInt(&buf, 54000) // below both thresholds

	info, err := decodeServerHello(&buf)
	require.NoError(t, err)
	assert.Equal(t, "", info.Timezone)
	assert.Equal(t, "", info.DisplayName)
}

func TestDecodeServerExceptionChain(t *testing.T) {
	var buf bytes.Buffer
	writeUint32LE(&buf, 1)
	_ = codec.WriteNativeString(&buf, "Outer")
	_ = codec.WriteNativeString(&buf, "outer message")
	_ = codec.WriteNativeString(&buf, "")
	buf.WriteByte(1) // has_nested

	writeUint32LE(&buf, 2)
	_ = codec.WriteNativeString(&buf, "Inner")
	_ = codec.WriteNativeString(&buf, "inner message")
	_ = codec.WriteNativeString(&buf, "")
	buf.WriteByte(0)

	ex, err := decodeServerException(&buf)
	require.NoError(t, err)
	assert.Equal(t, "Outer", ex.Name)
	require.NotNil(t, ex.Nested)
	assert.Equal(t, "Inner", ex.Nested.Name)
}

func TestDecodeColumnValuesFixedStringTrimsPadding(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{'a', 'b', 0, 0})
	values, err := decodeColumnValues(&buf, "FixedString(4)", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"ab"}, values)
}

func TestDecodeColumnValuesNullable(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(1) // null
	buf.WriteByte(0) // not null
	buf.WriteByte(42)
	values, err := decodeColumnValues(&buf, "Nullable(UInt8)", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"NULL", "42"}, values)
}

func TestDecodeColumnValuesLowCardinalityString(t *testing.T) {
	var buf bytes.Buffer
	writeUint64LEBuf(&buf, 1) // serialization version
	writeUint64LEBuf(&buf, 0) // index type = UInt8
	writeUint64LEBuf(&buf, 2) // dict size
	_ = codec.WriteNativeString(&buf, "red")
	_ = codec.WriteNativeString(&buf, "blue")
	writeUint64LEBuf(&buf, 3) // row count
	buf.WriteByte(0)
	buf.WriteByte(1)
	buf.WriteByte(0)

	values, err := decodeColumnValues(&buf, "LowCardinality(String)", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"red", "blue", "red"}, values)
}

func writeUint64LEBuf(buf *bytes.Buffer, v uint64) {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	buf.Write(b)
}
