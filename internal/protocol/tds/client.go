package tds

import (
	"context"
	"encoding/binary"
	"net"

	"github.com/pocc/portofcall-sub006/internal/deadline"
	"github.com/pocc/portofcall-sub006/internal/framing"
	"github.com/pocc/portofcall-sub006/internal/result"
)

// Client drives a TDS 5.0 session over a plain TCP connection.
type Client struct {
	conn net.Conn
	fr   *framing.Reader
}

func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn, fr: framing.NewReader(conn, 1<<20)}
}

// writeMessage sends body as a single headerSize+N packet carrying
// StatusEndOfMessage. TDS allows multi-packet messages, but every
// message this client sends (Prelogin, Login) fits in one packet given
// its fixed sizes, so body is never split.
func (c *Client) writeMessage(typ byte, body []byte) error {
	h := Header{
		Type:   typ,
		Status: StatusEndOfMessage,
		Length: uint16(headerSize + len(body)),
	}
	packet := append(EncodeHeader(h), body...)
	_, err := c.conn.Write(packet)
	if err != nil {
		return result.Network("write tds packet: %v", err)
	}
	return nil
}

// readMessage reads packets until StatusEndOfMessage, concatenating
// their bodies, and returns the first packet's header (type) alongside
// the full reassembled body.
func (c *Client) readMessage() (Header, []byte, error) {
	var first Header
	var body []byte
	for {
		frame, err := c.fr.NextFrame(framing.LengthPrefixed(headerSize, func(h []byte) int {
			length := binary.BigEndian.Uint16(h[2:4])
			if int(length) < headerSize {
				return 0
			}
			return int(length) - headerSize
		}))
		if err != nil {
			return Header{}, nil, result.ProtocolError("read tds packet: %v", err)
		}
		h, err := DecodeHeader(frame[:headerSize])
		if err != nil {
			return Header{}, nil, err
		}
		if body == nil {
			first = h
		}
		body = append(body, frame[headerSize:]...)
		if h.Status&StatusEndOfMessage != 0 {
			return first, body, nil
		}
	}
}

func (c *Client) applyDeadline(ctx context.Context) error {
	if ctx.Err() != nil {
		return result.Timeout("context expired before tds call: %v", ctx.Err())
	}
	if dl, ok := deadline.Deadline(ctx); ok {
		_ = c.conn.SetDeadline(dl)
	}
	return nil
}

// ProbePrelogin sends a TDS Prelogin packet and reports whether the
// peer answers with a Response/Tabular Result header (type 0x04),
// which spec §4.7.c treats as the Sybase-presence signal.
func (c *Client) ProbePrelogin(ctx context.Context) (bool, error) {
	if err := c.applyDeadline(ctx); err != nil {
		return false, err
	}
	if err := c.writeMessage(PacketTypePrelogin, nil); err != nil {
		return false, err
	}
	h, _, err := c.readMessage()
	if err != nil {
		return false, err
	}
	return h.Type == PacketTypeResponse, nil
}

// LoginResult is the outcome of a successful Login exchange.
type LoginResult struct {
	Accepted   bool
	TDSVersion []byte
	ServerName string
	ErrorMsg   string
	Columns    []string
	RowCount   uint32
}

// Login sends the fixed Login payload and parses the resulting token
// stream (LOGINACK, ERROR, ENVCHANGE, COLNAME, COLFMT, ROW, DONE).
func (c *Client) Login(ctx context.Context, hostname, username, password, appname, servername string) (*LoginResult, error) {
	if err := c.applyDeadline(ctx); err != nil {
		return nil, err
	}
	payload := BuildLoginPacket(hostname, username, password, appname, servername)
	if err := c.writeMessage(PacketTypeLogin, payload); err != nil {
		return nil, err
	}
	_, body, err := c.readMessage()
	if err != nil {
		return nil, err
	}
	return parseTokenStream(body)
}
