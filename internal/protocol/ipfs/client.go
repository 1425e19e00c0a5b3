// Package ipfs implements a thin HTTP client against the Kubo RPC API
// (spec §4.8): /api/v0/id and /api/v0/version. It is the one module in
// this repo where the target speaks HTTP rather than a raw TCP
// protocol, included because it still composes the deadline and
// result-envelope machinery every other module does.
package ipfs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pocc/portofcall-sub006/internal/result"
)

// Client issues Kubo RPC API calls against baseURL (e.g.
// "http://127.0.0.1:5001").
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// IDInfo is the decoded response of /api/v0/id.
type IDInfo struct {
	ID              string   `json:"ID"`
	PublicKey       string   `json:"PublicKey"`
	Addresses       []string `json:"Addresses"`
	AgentVersion    string   `json:"AgentVersion"`
	ProtocolVersion string   `json:"ProtocolVersion"`
}

// VersionInfo is the decoded response of /api/v0/version.
type VersionInfo struct {
	Version string `json:"Version"`
	Commit  string `json:"Commit"`
	Repo    string `json:"Repo"`
	System  string `json:"System"`
	Golang  string `json:"Golang"`
}

func (c *Client) post(ctx context.Context, path string, out any) error {
	if ctx.Err() != nil {
		return result.Timeout("context expired before ipfs call: %v", ctx.Err())
	}
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return result.InvalidArgument("build ipfs request: %v", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return result.Network("ipfs rpc call %s: %v", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return result.Network("read ipfs response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return result.Remote(fmt.Sprintf("http_%d", resp.StatusCode), string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return result.ProtocolError("decode ipfs response from %s: %v", path, err)
	}
	return nil
}

// ID calls /api/v0/id, returning this node's peer identity.
func (c *Client) ID(ctx context.Context) (*IDInfo, error) {
	var info IDInfo
	if err := c.post(ctx, "/api/v0/id", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Version calls /api/v0/version, returning the daemon's build info.
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	var info VersionInfo
	if err := c.post(ctx, "/api/v0/version", &info); err != nil {
		return nil, err
	}
	return &info, nil
}
