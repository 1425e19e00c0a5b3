package mount

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/pocc/portofcall-sub006/internal/codec"
	"github.com/pocc/portofcall-sub006/internal/protocol/oncrpc"
	"github.com/pocc/portofcall-sub006/internal/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedServer reads one RPC call off conn, ignores its content, and
// writes back a canned record-marked reply built by build(xid).
func scriptedServer(t *testing.T, conn net.Conn, build func(xid uint32) []byte) {
	t.Helper()
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, 4)

	header := buf[4:n]
	r := bytes.NewReader(header)
	xid, err := codec.DecodeXDRUint32(r)
	require.NoError(t, err)

	_, err = conn.Write(build(xid))
	require.NoError(t, err)
}

func mountOKReplyV3(xid uint32, handle []byte) []byte {
	var body bytes.Buffer
	_ = codec.WriteXDRUint32(&body, xid)
	_ = codec.WriteXDRUint32(&body, oncrpc.MsgTypeReply)
	_ = codec.WriteXDRUint32(&body, oncrpc.ReplyAccepted)
	_ = codec.WriteXDRUint32(&body, 0)
	_ = codec.WriteXDROpaque(&body, nil)
	_ = codec.WriteXDRUint32(&body, oncrpc.AcceptSuccess)
	_ = codec.WriteXDRUint32(&body, MountOK)
	_ = codec.WriteXDROpaque(&body, handle)
	_ = codec.WriteXDRUint32(&body, 1) // one auth flavor
	_ = codec.WriteXDRUint32(&body, 1) // AUTH_UNIX
	return oncrpc.WriteRecord(body.Bytes())
}

func TestMntSuccessV3(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	handle := []byte{0x0a, 0x0b, 0x0c, 0x0d}
	go scriptedServer(t, server, func(xid uint32) []byte { return mountOKReplyV3(xid, handle) })

	c := NewClient(client)
	res, err := c.Mnt(context.Background(), "/export")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), res.Version)
	assert.Equal(t, uint32(MountOK), res.Status)
	assert.Equal(t, handle, res.FileHandle)
	assert.Equal(t, []uint32{1}, res.AuthFlavors)
}

func mismatchReply(xid uint32) []byte {
	var body bytes.Buffer
	_ = codec.WriteXDRUint32(&body, xid)
	_ = codec.WriteXDRUint32(&body, oncrpc.MsgTypeReply)
	_ = codec.WriteXDRUint32(&body, oncrpc.ReplyAccepted)
	_ = codec.WriteXDRUint32(&body, 0)
	_ = codec.WriteXDROpaque(&body, nil)
	_ = codec.WriteXDRUint32(&body, oncrpc.AcceptProgMismatch)
	_ = codec.WriteXDRUint32(&body, 1)
	_ = codec.WriteXDRUint32(&body, 1)
	return oncrpc.WriteRecord(body.Bytes())
}

func TestMntFallsBackToV1OnMismatch(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	handle := []byte{0x0a, 0x0b, 0x0c, 0x0d}
	calls := 0
	go func() {
		scriptedServer(t, server, mismatchReply)
		calls++
		scriptedServer(t, server, func(xid uint32) []byte {
			var body bytes.Buffer
			_ = codec.WriteXDRUint32(&body, xid)
			_ = codec.WriteXDRUint32(&body, oncrpc.MsgTypeReply)
			_ = codec.WriteXDRUint32(&body, oncrpc.ReplyAccepted)
			_ = codec.WriteXDRUint32(&body, 0)
			_ = codec.WriteXDROpaque(&body, nil)
			_ = codec.WriteXDRUint32(&body, oncrpc.AcceptSuccess)
			_ = codec.WriteXDRUint32(&body, MountOK)
			body.Write(append(handle, make([]byte, 28)...))
			_ = codec.WriteXDRUint32(&body, 0)
			return oncrpc.WriteRecord(body.Bytes())
		})
	}()

	c := NewClient(client)
	res, err := c.Mnt(context.Background(), "/export")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), res.Version)
	assert.Equal(t, uint32(MountOK), res.Status)
}

func TestMntContextExpired(t *testing.T) {
	_, client := net.Pipe()
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	time.Sleep(time.Millisecond)

	c := NewClient(client)
	_, err := c.Mnt(ctx, "/export")
	require.Error(t, err)
	e := result.AsError(err)
	require.NotNil(t, e)
	assert.Equal(t, result.KindTimeout, e.Kind)
}
