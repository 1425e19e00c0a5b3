// Package zookeeper implements the ZooKeeper "four-letter-word" (4LW)
// admin commands (spec §4.8): connect, write a short command, read the
// raw text response until EOF or a byte budget is hit.
package zookeeper

import (
	"context"
	"io"
	"net"
	"strings"

	"github.com/pocc/portofcall-sub006/internal/deadline"
	"github.com/pocc/portofcall-sub006/internal/result"
)

// MaxResponseBytes bounds how much of a 4LW response is read; some
// commands (e.g. "wchs" on a busy ensemble) can be unbounded in a
// pathological server, so the read is capped rather than drained to
// EOF unconditionally.
const MaxResponseBytes = 8 << 10

// Commands is the closed set of four-letter words this module issues.
var Commands = map[string]bool{
	"ruok": true,
	"stat": true,
	"mntr": true,
	"srvr": true,
	"conf": true,
	"envi": true,
	"wchs": true,
}

// Client issues one 4LW command per connection, matching ZooKeeper's
// own expectation that the server closes the socket after replying.
type Client struct {
	conn net.Conn
}

func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn}
}

// Result is a 4LW command's raw payload plus, for "ruok", whether the
// server reported itself healthy ("imok").
type Result struct {
	Command string
	Payload string
	IsOK    bool // only meaningful for "ruok"
}

// Send writes command to the connection and reads the reply until EOF
// or MaxResponseBytes, whichever comes first.
func (c *Client) Send(ctx context.Context, command string) (*Result, error) {
	if !Commands[command] {
		return nil, result.InvalidArgument("unsupported zookeeper 4lw command: %q", command)
	}
	if ctx.Err() != nil {
		return nil, result.Timeout("context expired before zookeeper call: %v", ctx.Err())
	}
	if dl, ok := deadline.Deadline(ctx); ok {
		_ = c.conn.SetDeadline(dl)
	}

	if _, err := c.conn.Write([]byte(command)); err != nil {
		return nil, result.Network("write zookeeper command: %v", err)
	}

	limited := io.LimitReader(c.conn, MaxResponseBytes)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, result.Network("read zookeeper response: %v", err)
	}

	payload := string(body)
	res := &Result{Command: command, Payload: payload}
	if command == "ruok" {
		res.IsOK = strings.TrimSpace(payload) == "imok"
	}
	return res, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if err := c.conn.Close(); err != nil {
		return result.Network("close zookeeper connection: %v", err)
	}
	return nil
}
