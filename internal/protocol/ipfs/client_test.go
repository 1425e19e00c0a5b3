package ipfs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/id", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ID":"QmPeer","AgentVersion":"kubo/0.29.0","ProtocolVersion":"ipfs/0.1.0"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	info, err := c.ID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "QmPeer", info.ID)
	assert.Equal(t, "kubo/0.29.0", info.AgentVersion)
}

func TestVersionDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/version", r.URL.Path)
		w.Write([]byte(`{"Version":"0.29.0","Commit":"abcdef","System":"amd64/linux"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	info, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.29.0", info.Version)
	assert.Equal(t, "amd64/linux", info.System)
}

func TestNonOKStatusMapsToRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"Message":"boom"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.ID(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Remote")
}
