package xmpp

import (
	"context"
	"fmt"
	"net"

	"github.com/pocc/portofcall-sub006/internal/codec"
	"github.com/pocc/portofcall-sub006/internal/cryptoutil"
	"github.com/pocc/portofcall-sub006/internal/framing"
	"github.com/pocc/portofcall-sub006/internal/result"
	"github.com/pocc/portofcall-sub006/internal/transport"
)

// maxStanzaBytes bounds a single framing.Delimiter scan; a bare XMPP
// handshake never needs more than a few KiB per element.
const maxStanzaBytes = 16 << 10

// Client drives one XMPP session (c2s on 5222 or s2s on 5269) through
// the phase sequence in spec §4.7.e/h: open stream, negotiate
// STARTTLS, authenticate, bind a resource, run one application action,
// then close.
//
// Every exchange here is strict request/reply (the client never pipelines
// stanzas), so each readElement call builds a fresh framing.Reader over
// the connection current at call time rather than holding one across
// the session; that also means the reader is automatically "rebuilt"
// after transport.Conn.Promote swaps the underlying net.Conn for a
// *tls.Conn in place.
type Client struct {
	conn   *transport.Conn
	host   string
	phases []string
}

// NewClient wraps conn, which must be in transport.StartTLS mode (the
// connection starts cleartext and may be promoted mid-session).
func NewClient(conn *transport.Conn, host string) *Client {
	return &Client{conn: conn, host: host}
}

// Phases returns the session's phase trace so far, in the order
// reached (spec §8 scenario 6: e.g. "stream_opened", "starttls_upgraded",
// "authenticated", "stream_restarted", "resource_bound").
func (c *Client) Phases() []string {
	return append([]string(nil), c.phases...)
}

func (c *Client) mark(phase string) {
	c.phases = append(c.phases, phase)
}

func (c *Client) applyDeadline(ctx context.Context) error {
	if ctx.Err() != nil {
		return result.Timeout("context expired before xmpp call: %v", ctx.Err())
	}
	c.conn.SetDeadline(ctx)
	return nil
}

func (c *Client) write(conn net.Conn, data string) error {
	if _, err := conn.Write([]byte(data)); err != nil {
		return result.Network("write xmpp stanza: %v", err)
	}
	return nil
}

// readElement reads off conn until delim appears, returning everything
// read so far (including delim) as a string. Used for exchanges where
// exactly one frame follows a write; openStream needs two frames off
// the same buffered stream and builds its own framing.Reader instead,
// since a fresh Reader per call would drop any bytes buffered past the
// first delimiter.
func readElement(conn net.Conn, delim string) (string, error) {
	r := framing.NewReader(conn, maxStanzaBytes)
	frame, err := r.NextFrame(framing.Delimiter([]byte(delim)))
	if err != nil {
		return "", result.Network("read xmpp element: %v", err)
	}
	return string(frame), nil
}

// withConn borrows the transport's reader/writer for the duration of
// fn, always releasing it afterward (even on error), matching
// transport.Conn's "release before Promote" contract.
func (c *Client) withConn(fn func(conn net.Conn) error) error {
	conn, release := c.conn.Reader()
	defer release()
	return fn(conn)
}

// openStream writes the opening <stream:stream> tag and waits for the
// server's own opening tag plus its <stream:features> block, returning
// the parsed features.
func (c *Client) openStream(conn net.Conn) (Features, error) {
	open := fmt.Sprintf(
		"<?xml version='1.0'?><stream:stream to='%s' version='1.0' "+
			"xmlns='jabber:client' xmlns:stream='http://etherx.jabber.org/streams'>",
		escapeXML(c.host),
	)
	if err := c.write(conn, open); err != nil {
		return Features{}, err
	}

	r := framing.NewReader(conn, maxStanzaBytes)
	openReply, err := r.NextFrame(framing.Delimiter([]byte(">")))
	if err != nil {
		return Features{}, result.Network("read xmpp stream open: %v", err)
	}
	if _, ok := parseStreamOpen(string(openReply)); !ok {
		return Features{}, result.ProtocolError("xmpp server did not open a stream")
	}

	featuresBlob, err := r.NextFrame(framing.Delimiter([]byte("</stream:features>")))
	if err != nil {
		return Features{}, result.Network("read xmpp features: %v", err)
	}
	return parseFeatures(string(featuresBlob)), nil
}

// Session runs the full operation order from spec §4.7.e: open stream,
// read features, STARTTLS if advertised, re-open, SASL PLAIN, re-open,
// bind a resource. It stops short of an application action, which
// callers layer on top via SendMessage.
func (c *Client) Session(ctx context.Context, user, password string) (jid string, err error) {
	if err := c.applyDeadline(ctx); err != nil {
		return "", err
	}

	var features Features
	if err := c.withConn(func(conn net.Conn) error {
		f, err := c.openStream(conn)
		features = f
		return err
	}); err != nil {
		return "", err
	}
	c.mark("stream_opened")

	if features.StartTLS {
		if err := c.withConn(func(conn net.Conn) error { return c.negotiateStartTLS(conn) }); err != nil {
			return "", err
		}
		if err := c.conn.Promote(ctx, c.host); err != nil {
			return "", err
		}
		c.mark("starttls_upgraded")

		if err := c.applyDeadline(ctx); err != nil {
			return "", err
		}
		if err := c.withConn(func(conn net.Conn) error {
			_, err := c.openStream(conn)
			return err
		}); err != nil {
			return "", err
		}
		c.mark("stream_restarted")
	}

	if err := c.withConn(func(conn net.Conn) error { return c.authenticate(conn, user, password) }); err != nil {
		return "", err
	}
	c.mark("authenticated")

	if err := c.applyDeadline(ctx); err != nil {
		return "", err
	}
	if err := c.withConn(func(conn net.Conn) error {
		_, err := c.openStream(conn)
		return err
	}); err != nil {
		return "", err
	}
	c.mark("stream_restarted")

	if err := c.withConn(func(conn net.Conn) error {
		j, err := c.bindResource(conn)
		jid = j
		return err
	}); err != nil {
		return "", err
	}
	c.mark("resource_bound")

	return jid, nil
}

// negotiateStartTLS sends <starttls/> and waits for <proceed/>. The
// caller promotes the transport afterward, once this reader/writer
// borrow has been released (transport.Conn.Promote refuses to run
// while one is held).
func (c *Client) negotiateStartTLS(conn net.Conn) error {
	if err := c.write(conn, "<starttls xmlns='urn:ietf:params:xml:ns:xmpp-tls'/>"); err != nil {
		return err
	}
	reply, err := readElement(conn, ">")
	if err != nil {
		return err
	}
	if hasProceed(reply) {
		return nil
	}
	if hasFailure(reply) {
		return result.ProtocolError("xmpp server refused starttls")
	}
	return result.ProtocolError("xmpp server did not send <proceed/>")
}

// authenticate sends a SASL PLAIN auth stanza and waits for
// <success/>.
func (c *Client) authenticate(conn net.Conn, user, password string) error {
	payload := codec.Base64Encode(cryptoutil.SASLPlain("", user, password))
	auth := fmt.Sprintf(
		"<auth xmlns='urn:ietf:params:xml:ns:xmpp-sasl' mechanism='PLAIN'>%s</auth>",
		payload,
	)
	if err := c.write(conn, auth); err != nil {
		return err
	}
	reply, err := readElement(conn, ">")
	if err != nil {
		return err
	}
	if hasSuccess(reply) {
		return nil
	}
	if hasFailure(reply) {
		return result.AuthFailed("xmpp sasl plain authentication rejected")
	}
	return result.ProtocolError("unexpected xmpp reply to auth: %s", reply)
}

// bindResource sends an IQ bind request (no resource requested, so the
// server assigns one) and returns the bound full JID.
func (c *Client) bindResource(conn net.Conn) (string, error) {
	iq := "<iq type='set' id='bind_1'><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'/></iq>"
	if err := c.write(conn, iq); err != nil {
		return "", err
	}
	reply, err := readElement(conn, "</iq>")
	if err != nil {
		return "", err
	}
	jid, ok := parseBoundJID(reply)
	if !ok {
		return "", result.ProtocolError("xmpp bind did not return a jid")
	}
	return jid, nil
}

// SendMessage sends a chat-type <message/> stanza, an application
// action per spec §4.7.e. It is best-effort: the base protocol gives no
// per-message acknowledgement.
func (c *Client) SendMessage(ctx context.Context, to, body string) error {
	if err := c.applyDeadline(ctx); err != nil {
		return err
	}
	if err := c.withConn(func(conn net.Conn) error {
		msg := fmt.Sprintf(
			"<message type='chat' to='%s'><body>%s</body></message>",
			escapeXML(to), escapeXML(body),
		)
		return c.write(conn, msg)
	}); err != nil {
		return err
	}
	c.mark("message_sent")
	return nil
}

// Close sends the closing stream tag, the mandated XMPP teardown on
// any exit path (spec §4.7.h).
func (c *Client) Close() error {
	_ = c.withConn(func(conn net.Conn) error { return c.write(conn, "</stream:stream>") })
	c.mark("closing")
	return c.conn.Close()
}
