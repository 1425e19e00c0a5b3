package adapter

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupUnknownOperationIsUnsupported(t *testing.T) {
	r := NewRegistry()
	env := r.Dispatch(context.Background(), "zookeeper", "bogus", map[string]any{})
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Unsupported", string(env.Error.Kind))
}

func TestEveryProtocolOperationIsRegistered(t *testing.T) {
	r := NewRegistry()
	want := map[string][]string{
		"mount":       {"mnt", "export"},
		"nfs3":        {"getattr", "lookup", "read", "write", "create", "mkdir", "remove", "rmdir", "rename", "readdir", "probe"},
		"sftp":        {"open", "read", "write", "readdir", "stat", "remove", "mkdir", "rename", "download"},
		"tds":         {"probe_prelogin", "login"},
		"clickhouse":  {"handshake", "query", "ping"},
		"xmpp":        {"session"},
		"sips":        {"register", "invite"},
		"sane":        {"get_devices"},
		"zookeeper":   {"send"},
		"multistream": {"select", "list_protocols"},
		"ipfs":        {"id", "version"},
	}
	for protocol, names := range want {
		for _, name := range names {
			_, ok := r.Lookup(protocol, name)
			assert.Truef(t, ok, "expected %s.%s to be registered", protocol, name)
		}
	}
}

// TestDispatchZooKeeperRuokEndToEnd exercises the full adapter path
// (decode -> validate -> dial -> protocol client -> envelope) against a
// real listener, since ZooKeeper's 4LW handshake is the cheapest
// end-to-end round trip to script.
func TestDispatchZooKeeperRuokEndToEnd(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4)
		_, _ = conn.Read(buf)
		_, _ = conn.Write([]byte("imok"))
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)

	r := NewRegistry()
	env := r.Dispatch(context.Background(), "zookeeper", "send", map[string]any{
		"host":    host,
		"port":    mustAtoi(t, portStr),
		"command": "ruok",
	})
	require.True(t, env.Success, "%+v", env.Error)
	assert.Equal(t, "zookeeper", env.Protocol)
	assert.Equal(t, "send", env.Operation)
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	var n int
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
