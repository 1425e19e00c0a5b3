// Package multistream implements the libp2p multistream-select
// handshake (spec §4.8): a varint-length-prefixed, newline-terminated
// exchange of protocol identifiers used to negotiate which protocol a
// stream will speak next.
package multistream

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"strings"

	"github.com/pocc/portofcall-sub006/internal/codec"
	"github.com/pocc/portofcall-sub006/internal/deadline"
	"github.com/pocc/portofcall-sub006/internal/result"
)

// ProtocolID is the multistream-select version this client speaks.
const ProtocolID = "/multistream/1.0.0"

// lsCommand and naCommand are the two reserved multistream messages.
const (
	lsCommand = "ls"
	naCommand = "na"
)

// Client drives one multistream-select exchange over conn.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
}

func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn, r: bufio.NewReader(conn)}
}

func (c *Client) applyDeadline(ctx context.Context) error {
	if ctx.Err() != nil {
		return result.Timeout("context expired before multistream call: %v", ctx.Err())
	}
	if dl, ok := deadline.Deadline(ctx); ok {
		_ = c.conn.SetDeadline(dl)
	}
	return nil
}

// writeMessage frames msg as a multistream message: a varint of
// len(msg)+1 (the trailing newline counts), msg, then '\n'.
func writeMessage(conn net.Conn, msg string) error {
	var buf bytes.Buffer
	if err := codec.WriteVarUInt(&buf, uint64(len(msg)+1)); err != nil {
		return result.InvalidArgument("encode multistream length: %v", err)
	}
	buf.WriteString(msg)
	buf.WriteByte('\n')
	if _, err := conn.Write(buf.Bytes()); err != nil {
		return result.Network("write multistream message: %v", err)
	}
	return nil
}

// readMessage reads one varint-framed message and strips its trailing
// newline.
func readMessage(r *bufio.Reader) (string, error) {
	n, err := codec.ReadVarUInt(r)
	if err != nil {
		return "", result.Network("read multistream length: %v", err)
	}
	if n == 0 {
		return "", result.ProtocolError("zero-length multistream message")
	}
	buf := make([]byte, n)
	if _, err := readFullBuf(r, buf); err != nil {
		return "", result.Network("read multistream body: %v", err)
	}
	return strings.TrimSuffix(string(buf), "\n"), nil
}

func readFullBuf(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Handshake performs the initial multistream header exchange: each
// side sends /multistream/1.0.0 and expects it echoed back.
func (c *Client) Handshake(ctx context.Context) error {
	if err := c.applyDeadline(ctx); err != nil {
		return err
	}
	if err := writeMessage(c.conn, ProtocolID); err != nil {
		return err
	}
	reply, err := readMessage(c.r)
	if err != nil {
		return err
	}
	if reply != ProtocolID {
		return result.ProtocolError("unexpected multistream header: %q", reply)
	}
	return nil
}

// Select proposes protocolID and reports whether the remote echoed it
// back (accepted) or replied "na" (not available, spec §4.8 SELECT).
func (c *Client) Select(ctx context.Context, protocolID string) (accepted bool, err error) {
	if err := c.applyDeadline(ctx); err != nil {
		return false, err
	}
	if err := writeMessage(c.conn, protocolID); err != nil {
		return false, err
	}
	reply, err := readMessage(c.r)
	if err != nil {
		return false, err
	}
	switch reply {
	case protocolID:
		return true, nil
	case naCommand:
		return false, nil
	default:
		return false, result.ProtocolError("unexpected multistream select reply: %q", reply)
	}
}

// ListProtocols sends "ls" and parses the reply: one varint-framed
// message containing every supported protocol id newline-separated
// (spec §9 open question resolution — not N separately-framed ids). A
// trailing empty entry from the final newline is trimmed.
func (c *Client) ListProtocols(ctx context.Context) ([]string, error) {
	if err := c.applyDeadline(ctx); err != nil {
		return nil, err
	}
	if err := writeMessage(c.conn, lsCommand); err != nil {
		return nil, err
	}
	reply, err := readMessage(c.r)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(reply, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if err := c.conn.Close(); err != nil {
		return result.Network("close multistream connection: %v", err)
	}
	return nil
}
