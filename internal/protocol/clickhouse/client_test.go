package clickhouse

import (
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/pocc/portofcall-sub006/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeServerHello(t *testing.T, conn net.Conn, name string, major, minor, revision uint64, timezone, displayName string) {
	t.Helper()
	var buf bytes.Buffer
	_ = codec.WriteVarUInt(&buf, ServerHello)
	_ = codec.WriteNativeString(&buf, name)
	_ = codec.WriteVarUInt(&buf, major)
	_ = codec.WriteVarUInt(&buf, minor)
	_ = codec.WriteVarUInt(&buf, revision)
	if revision >= revisionTimezone {
		_ = codec.WriteNativeString(&buf, timezone)
	}
	if revision >= revisionDisplayName {
		_ = codec.WriteNativeString(&buf, displayName)
	}
	_, err := conn.Write(buf.Bytes())
	require.NoError(t, err)
}

func writeBlockInfo(buf *bytes.Buffer) {
	_ = codec.WriteVarUInt(buf, 1)
	buf.WriteByte(0)
	_ = codec.WriteVarUInt(buf, 2)
	writeInt32LE(buf, -1)
	_ = codec.WriteVarUInt(buf, 0)
}

func TestHandshakeSuccess(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		typ, err := codec.ReadVarUInt(server)
		assert.NoError(t, err)
		assert.EqualValues(t, ClientHello, typ)
		_, _ = codec.ReadNativeString(server, maxStringLen) // client name
		_, _ = codec.ReadVarUInt(server)                    // major
		_, _ = codec.ReadVarUInt(server)                    // minor
		_, _ = codec.ReadVarUInt(server)                    // tcp protocol version
		_, _ = codec.ReadNativeString(server, maxStringLen) // database
		_, _ = codec.ReadNativeString(server, maxStringLen) // user
		_, _ = codec.ReadNativeString(server, maxStringLen) // password

		writeServerHello(t, server, "ClickHouse", 24, 3, 54467, "UTC", "prod-node-1")
	}()

	c := NewClient(client)
	info, err := c.Handshake(context.Background(), "default", "default", "")
	require.NoError(t, err)
	assert.Equal(t, "ClickHouse", info.ServerName)
	assert.Equal(t, "UTC", info.Timezone)
	assert.Equal(t, "prod-node-1", info.DisplayName)
}

func TestHandshakeExceptionMapsToAuthFailed(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		codec.ReadVarUInt(server)
		codec.ReadNativeString(server, maxStringLen)
		codec.ReadVarUInt(server)
		codec.ReadVarUInt(server)
		codec.ReadVarUInt(server)
		codec.ReadNativeString(server, maxStringLen)
		codec.ReadNativeString(server, maxStringLen)
		codec.ReadNativeString(server, maxStringLen)

		var buf bytes.Buffer
		_ = codec.WriteVarUInt(&buf, ServerException)
		writeUint32LE(&buf, 516)
		_ = codec.WriteNativeString(&buf, "DB::Exception")
		_ = codec.WriteNativeString(&buf, "Authentication failed")
		_ = codec.WriteNativeString(&buf, "")
		buf.WriteByte(0)
		server.Write(buf.Bytes())
	}()

	c := NewClient(client)
	_, err := c.Handshake(context.Background(), "default", "default", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AuthFailed")
}

func writeUint32LE(buf *bytes.Buffer, v uint32) {
	b := make([]byte, 4)
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	buf.Write(b)
}

// TestQuerySelectOne reproduces the SELECT 1 scenario: one column
// "1"/"UInt8", one row "1", rowCount=1.
func TestQuerySelectOne(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		typ, _ := codec.ReadVarUInt(server) // ClientQuery
		assert.EqualValues(t, ClientQuery, typ)
		codec.ReadNativeString(server, maxStringLen) // query id
		codec.ReadVarUInt(server)                    // stage
		buf := make([]byte, 1)
		server.Read(buf) // compression byte
		codec.ReadNativeString(server, maxStringLen) // query text

		typ, _ = codec.ReadVarUInt(server) // ClientData (empty terminator)
		assert.EqualValues(t, ClientData, typ)
		codec.ReadNativeString(server, maxStringLen) // table name
		codec.ReadVarUInt(server)                    // block info field 1
		server.Read(buf)                             // is_overflows
		codec.ReadVarUInt(server)                    // block info field 2
		io4 := make([]byte, 4)
		server.Read(io4) // bucket_num
		codec.ReadVarUInt(server) // terminator
		codec.ReadVarUInt(server) // num_columns = 0
		codec.ReadVarUInt(server) // num_rows = 0

		var data bytes.Buffer
		_ = codec.WriteVarUInt(&data, ServerData)
		_ = codec.WriteNativeString(&data, "")
		writeBlockInfo(&data)
		_ = codec.WriteVarUInt(&data, 1) // num_columns
		_ = codec.WriteVarUInt(&data, 1) // num_rows
		_ = codec.WriteNativeString(&data, "1")
		_ = codec.WriteNativeString(&data, "UInt8")
		data.WriteByte(0x01)
		server.Write(data.Bytes())

		var eos bytes.Buffer
		_ = codec.WriteVarUInt(&eos, ServerEndOfStream)
		server.Write(eos.Bytes())
	}()

	c := NewClient(client)
	res, err := c.Query(context.Background(), "SELECT 1")
	require.NoError(t, err)
	require.Len(t, res.Columns, 1)
	assert.Equal(t, "1", res.Columns[0].Name)
	assert.Equal(t, "UInt8", res.Columns[0].Type)
	assert.Equal(t, [][]string{{"1"}}, res.Rows)
	assert.EqualValues(t, 1, res.RowCount)
}
