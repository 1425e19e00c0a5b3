package sftp

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"

	"github.com/pocc/portofcall-sub006/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readRawPacket reads one framed packet off conn for test assertions,
// returning its type and post-length body (type + id/payload).
func readRawPacket(t *testing.T, conn net.Conn) (byte, []byte) {
	t.Helper()
	lenBuf := make([]byte, 4)
	_, err := io.ReadFull(conn, lenBuf)
	require.NoError(t, err)
	n := int(lenBuf[0])<<24 | int(lenBuf[1])<<16 | int(lenBuf[2])<<8 | int(lenBuf[3])
	body := make([]byte, n)
	_, err = io.ReadFull(conn, body)
	require.NoError(t, err)
	return body[0], body[1:]
}

func writeStatus(t *testing.T, conn net.Conn, id uint32, code uint32, msg string) {
	t.Helper()
	var payload bytes.Buffer
	_ = codec.WriteXDRUint32(&payload, code)
	_ = codec.WriteXDRString(&payload, msg)
	_, err := conn.Write(writePacket(TypeStatus, id, payload.Bytes()))
	require.NoError(t, err)
}

func TestHandshakeVersionMismatch(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		readRawPacket(t, server)
		var payload bytes.Buffer
		_ = codec.WriteXDRUint32(&payload, 4)
		_, err := server.Write(writePacket(TypeVersion, 0, payload.Bytes()))
		require.NoError(t, err)
	}()

	c := NewClient(client)
	_, err := c.Handshake(context.Background())
	require.Error(t, err)
}

func TestHandshakeSuccessWithExtensions(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		readRawPacket(t, server)
		var payload bytes.Buffer
		_ = codec.WriteXDRUint32(&payload, ProtocolVersion)
		_ = codec.WriteXDRString(&payload, "posix-rename@openssh.com")
		_ = codec.WriteXDRString(&payload, "1")
		_, err := server.Write(writePacket(TypeVersion, 0, payload.Bytes()))
		require.NoError(t, err)
	}()

	c := NewClient(client)
	exts, err := c.Handshake(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", exts["posix-rename@openssh.com"])
}

func TestOpenReadEOFDownload(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		_, body := readRawPacket(t, server) // OPEN
		r := bytes.NewReader(body[:4])
		id, _ := codec.DecodeXDRUint32(r)

		var handlePayload bytes.Buffer
		_ = codec.WriteXDROpaque(&handlePayload, []byte{0x68})
		_, err := server.Write(writePacket(TypeHandle, id, handlePayload.Bytes()))
		require.NoError(t, err)

		_, body = readRawPacket(t, server) // READ #1
		r = bytes.NewReader(body[:4])
		id, _ = codec.DecodeXDRUint32(r)
		var dataPayload bytes.Buffer
		_ = codec.WriteXDROpaque(&dataPayload, []byte("hello"))
		_, err = server.Write(writePacket(TypeData, id, dataPayload.Bytes()))
		require.NoError(t, err)

		_, body = readRawPacket(t, server) // READ #2 -> EOF
		r = bytes.NewReader(body[:4])
		id, _ = codec.DecodeXDRUint32(r)
		writeStatus(t, server, id, StatusEOF, "eof")
	}()

	c := NewClient(client)
	handle, err := c.Open(context.Background(), "/srv/hello.txt", FlagRead)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x68}, handle)

	res, err := c.Read(context.Background(), handle, 0, 32768)
	require.NoError(t, err)
	assert.False(t, res.EOF)
	assert.Equal(t, []byte("hello"), res.Data)

	res, err = c.Read(context.Background(), handle, 5, 32768)
	require.NoError(t, err)
	assert.True(t, res.EOF)
}

func TestDownloadAggregatesAcrossReads(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		_, body := readRawPacket(t, server) // READ #1
		r := bytes.NewReader(body[:4])
		id, _ := codec.DecodeXDRUint32(r)
		var dataPayload bytes.Buffer
		_ = codec.WriteXDROpaque(&dataPayload, []byte("hel"))
		_, err := server.Write(writePacket(TypeData, id, dataPayload.Bytes()))
		require.NoError(t, err)

		_, body = readRawPacket(t, server) // READ #2
		r = bytes.NewReader(body[:4])
		id, _ = codec.DecodeXDRUint32(r)
		dataPayload.Reset()
		_ = codec.WriteXDROpaque(&dataPayload, []byte("lo"))
		_, err = server.Write(writePacket(TypeData, id, dataPayload.Bytes()))
		require.NoError(t, err)

		_, body = readRawPacket(t, server) // READ #3 -> EOF
		r = bytes.NewReader(body[:4])
		id, _ = codec.DecodeXDRUint32(r)
		writeStatus(t, server, id, StatusEOF, "eof")
	}()

	c := NewClient(client)
	res, err := c.Download(context.Background(), []byte{0x68})
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), res.Data)
	assert.False(t, res.Truncated)
}

func TestDownloadTruncatesAtCap(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	wantReads := downloadMaxBytes / downloadChunkBytes
	chunk := bytes.Repeat([]byte{0xAA}, downloadChunkBytes)

	go func() {
		for i := 0; i < wantReads; i++ {
			_, body := readRawPacket(t, server)
			r := bytes.NewReader(body[:4])
			id, _ := codec.DecodeXDRUint32(r)
			var dataPayload bytes.Buffer
			_ = codec.WriteXDROpaque(&dataPayload, chunk)
			_, err := server.Write(writePacket(TypeData, id, dataPayload.Bytes()))
			require.NoError(t, err)
		}
	}()

	c := NewClient(client)
	res, err := c.Download(context.Background(), []byte{0x68})
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Len(t, res.Data, downloadMaxBytes)
}

func TestOpenNoSuchFileMapsToNotFound(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		_, body := readRawPacket(t, server)
		r := bytes.NewReader(body[:4])
		id, _ := codec.DecodeXDRUint32(r)
		writeStatus(t, server, id, StatusNoSuchFile, "no such file")
	}()

	c := NewClient(client)
	_, err := c.Open(context.Background(), "/nope", FlagRead)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NotFound")
}
