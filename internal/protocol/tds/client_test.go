package tds

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readClientMessage reads one TDS packet sent by the client under test.
func readClientMessage(t *testing.T, conn net.Conn) (Header, []byte) {
	t.Helper()
	hdr := make([]byte, headerSize)
	_, err := io.ReadFull(conn, hdr)
	require.NoError(t, err)
	h, err := DecodeHeader(hdr)
	require.NoError(t, err)
	body := make([]byte, int(h.Length)-headerSize)
	_, err = io.ReadFull(conn, body)
	require.NoError(t, err)
	return h, body
}

func writeServerPacket(t *testing.T, conn net.Conn, typ byte, body []byte) {
	t.Helper()
	h := Header{Type: typ, Status: StatusEndOfMessage, Length: uint16(headerSize + len(body))}
	_, err := conn.Write(append(EncodeHeader(h), body...))
	require.NoError(t, err)
}

func TestProbePreloginDetectsSybase(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		h, _ := readClientMessage(t, server)
		assert.Equal(t, byte(PacketTypePrelogin), h.Type)
		writeServerPacket(t, server, PacketTypeResponse, nil)
	}()

	c := NewClient(client)
	present, err := c.ProbePrelogin(context.Background())
	require.NoError(t, err)
	assert.True(t, present)
}

func TestProbePreloginNonSybasePeer(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		readClientMessage(t, server)
		writeServerPacket(t, server, PacketTypeLogin, nil)
	}()

	c := NewClient(client)
	present, err := c.ProbePrelogin(context.Background())
	require.NoError(t, err)
	assert.False(t, present)
}

// buildLoginAckToken builds a LOGINACK token payload: status(1),
// tds_version(4), name(len-prefixed).
func buildLoginAckToken(status byte, version []byte, name string) []byte {
	payload := []byte{status}
	payload = append(payload, version...)
	payload = append(payload, byte(len(name)))
	payload = append(payload, []byte(name)...)

	out := []byte{TokenLoginAck}
	lenBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenBuf, uint16(len(payload)))
	out = append(out, lenBuf...)
	out = append(out, payload...)
	return out
}

func buildDoneToken(count uint32) []byte {
	out := []byte{TokenDone, 0x00, 0x00, 0x00, 0x00}
	countBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(countBuf, count)
	return append(out, countBuf...)
}

func TestLoginAccepted(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		h, body := readClientMessage(t, server)
		assert.Equal(t, byte(PacketTypeLogin), h.Type)
		assert.Len(t, body, loginPayloadSize)

		var tokens []byte
		tokens = append(tokens, buildLoginAckToken(5, []byte{0x05, 0x00, 0x00, 0x00}, "SYBASE")...)
		tokens = append(tokens, buildDoneToken(0)...)
		writeServerPacket(t, server, PacketTypeResponse, tokens)
	}()

	c := NewClient(client)
	res, err := c.Login(context.Background(), "myhost", "sa", "hunter2", "portofcall", "sybase1")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, "SYBASE", res.ServerName)
	assert.Equal(t, []byte{0x05, 0x00, 0x00, 0x00}, res.TDSVersion)
}

func buildErrorToken(msgNumber uint32, state, severity byte, msg string) []byte {
	payload := make([]byte, 0, 8+len(msg))
	numBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(numBuf, msgNumber)
	payload = append(payload, numBuf...)
	payload = append(payload, state, severity)
	msgLenBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(msgLenBuf, uint16(len(msg)))
	payload = append(payload, msgLenBuf...)
	payload = append(payload, []byte(msg)...)

	out := []byte{TokenError}
	lenBuf := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenBuf, uint16(len(payload)))
	out = append(out, lenBuf...)
	return append(out, payload...)
}

func TestLoginRejectedReturnsErrorToken(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		readClientMessage(t, server)
		var tokens []byte
		tokens = append(tokens, buildErrorToken(4002, 1, 14, "Login failed")...)
		tokens = append(tokens, buildDoneToken(0)...)
		writeServerPacket(t, server, PacketTypeResponse, tokens)
	}()

	c := NewClient(client)
	res, err := c.Login(context.Background(), "myhost", "baduser", "wrongpass", "portofcall", "sybase1")
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, "Login failed", res.ErrorMsg)
}
