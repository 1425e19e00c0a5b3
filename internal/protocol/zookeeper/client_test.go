package zookeeper

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRuokReportsOK(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	go func() {
		buf := make([]byte, 16)
		n, _ := server.Read(buf)
		assert.Equal(t, "ruok", string(buf[:n]))
		_, _ = server.Write([]byte("imok"))
		server.Close()
	}()

	c := NewClient(client)
	res, err := c.Send(context.Background(), "ruok")
	require.NoError(t, err)
	assert.True(t, res.IsOK)
	assert.Equal(t, "imok", res.Payload)
}

func TestSendMntrReturnsRawPayload(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	go func() {
		buf := make([]byte, 16)
		n, _ := server.Read(buf)
		assert.Equal(t, "mntr", string(buf[:n]))
		_, _ = server.Write([]byte("zk_version\t3.9.2\nzk_avg_latency\t0\n"))
		server.Close()
	}()

	c := NewClient(client)
	res, err := c.Send(context.Background(), "mntr")
	require.NoError(t, err)
	assert.False(t, res.IsOK)
	assert.Contains(t, res.Payload, "zk_version")
}

func TestSendRejectsUnknownCommand(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := NewClient(client)
	_, err := c.Send(context.Background(), "nope")
	require.Error(t, err)
}
