package sips

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"

	"github.com/pocc/portofcall-sub006/internal/cryptoutil"
	"github.com/pocc/portofcall-sub006/internal/deadline"
	"github.com/pocc/portofcall-sub006/internal/result"
)

// Client drives SIP request/response transactions over a single TLS
// connection (spec §4.7.f: "SIPS (RFC 3261 over TLS)").
type Client struct {
	conn net.Conn
	r    *bufio.Reader
	seq  uint32
}

// NewClient wraps conn, expected to already be a TLS connection (the
// "S" in SIPS means TLS is mandatory, not optional as in XMPP).
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn, r: bufio.NewReader(conn)}
}

func (c *Client) applyDeadline(ctx context.Context) error {
	if ctx.Err() != nil {
		return result.Timeout("context expired before sip call: %v", ctx.Err())
	}
	if dl, ok := deadline.Deadline(ctx); ok {
		_ = c.conn.SetDeadline(dl)
	}
	return nil
}

func newBranch() string {
	return "z9hG4bK" + randomHex(8)
}

func newTag() string {
	return randomHex(8)
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (c *Client) nextCSeq() uint32 {
	c.seq++
	return c.seq
}

func (c *Client) send(req *Request) (*Response, error) {
	if _, err := c.conn.Write(req.Bytes()); err != nil {
		return nil, result.Network("write sip request: %v", err)
	}
	return ReadResponse(c.r)
}

// RegisterResult is the outcome of Register: whether the registrar
// eventually returned 200 OK, whether a digest challenge was answered,
// and the realm the challenge named (spec §8 scenario 5).
type RegisterResult struct {
	Success       bool
	Authenticated bool
	Realm         string
	StatusCode    int
}

// Register performs a REGISTER transaction against registrarURI,
// answering a 401/407 digest challenge if one comes back (spec §4.7.f).
// uri is the request-URI (e.g. "sips:sip.example"); aor is the
// address-of-record being registered (e.g. "sip:alice@sip.example").
func (c *Client) Register(ctx context.Context, uri, aor, username, password string) (*RegisterResult, error) {
	if err := c.applyDeadline(ctx); err != nil {
		return nil, err
	}

	callID := randomHex(16)
	fromTag := newTag()

	req := c.buildRegister(uri, aor, callID, fromTag, c.nextCSeq(), newBranch(), "")
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}

	res := &RegisterResult{StatusCode: resp.StatusCode}
	if resp.StatusCode == 200 {
		res.Success = true
		return res, nil
	}
	if resp.StatusCode != 401 && resp.StatusCode != 407 {
		return res, nil
	}

	headerName := "WWW-Authenticate"
	authHeader := "Authorization"
	if resp.StatusCode == 407 {
		headerName = "Proxy-Authenticate"
		authHeader = "Proxy-Authorization"
	}
	challenge, err := ParseChallenge(resp.Headers.Get(headerName))
	if err != nil {
		return nil, err
	}
	res.Realm = challenge.Realm

	cnonce, err := cryptoutil.NewCNonce()
	if err != nil {
		return nil, result.InvalidArgument("generate cnonce: %v", err)
	}
	response := cryptoutil.DigestResponse(username, challenge.Realm, password, "REGISTER", uri, challenge, cryptoutil.FirstNC, cnonce)
	authValue := FormatAuthorization(username, challenge, uri, response, cryptoutil.FirstNC, cnonce)

	req2 := c.buildRegister(uri, aor, callID, fromTag, c.nextCSeq(), newBranch(), "")
	req2.Set(authHeader, authValue)
	resp2, err := c.send(req2)
	if err != nil {
		return nil, err
	}

	res.StatusCode = resp2.StatusCode
	if resp2.StatusCode == 200 {
		res.Success = true
		res.Authenticated = true
	}
	return res, nil
}

func (c *Client) buildRegister(uri, aor, callID, fromTag string, cseq uint32, branch, toTag string) *Request {
	to := fmt.Sprintf("<%s>", aor)
	if toTag != "" {
		to += ";tag=" + toTag
	}
	req := &Request{Method: "REGISTER", URI: uri}
	req.Set("Via", fmt.Sprintf("SIP/2.0/TLS 0.0.0.0;branch=%s", branch))
	req.Set("Max-Forwards", "70")
	req.Set("From", fmt.Sprintf("<%s>;tag=%s", aor, fromTag))
	req.Set("To", to)
	req.Set("Call-ID", callID)
	req.Set("CSeq", fmt.Sprintf("%d REGISTER", cseq))
	req.Set("Contact", fmt.Sprintf("<%s>", aor))
	return req
}

// InviteResult is the outcome of an INVITE transaction run through its
// mandated cleanup path (spec §4.7.f/h).
type InviteResult struct {
	FinalStatusCode int
	Cleanup         string // "cancelled", "acked_byed", "acked", "timeout"
}

// Invite sends an INVITE and drives the RFC 3261 §13/§17.1.1.3 cleanup
// state machine on whatever final response (or lack of one) comes back:
// no final response before ctx's deadline sends CANCEL; a 2xx sends ACK
// then BYE; a 3xx-6xx sends ACK with the INVITE's own branch. All
// cleanup sends are best-effort and never alter the returned result.
func (c *Client) Invite(ctx context.Context, uri, aor string) (*InviteResult, error) {
	if err := c.applyDeadline(ctx); err != nil {
		return nil, err
	}

	callID := randomHex(16)
	fromTag := newTag()
	branch := newBranch()
	cseq := c.nextCSeq()

	req := &Request{Method: "INVITE", URI: uri}
	req.Set("Via", fmt.Sprintf("SIP/2.0/TLS 0.0.0.0;branch=%s", branch))
	req.Set("Max-Forwards", "70")
	req.Set("From", fmt.Sprintf("<%s>;tag=%s", aor, fromTag))
	req.Set("To", fmt.Sprintf("<%s>", uri))
	req.Set("Call-ID", callID)
	req.Set("CSeq", fmt.Sprintf("%d INVITE", cseq))
	req.Set("Contact", fmt.Sprintf("<%s>", aor))

	if _, err := c.conn.Write(req.Bytes()); err != nil {
		return nil, result.Network("write sip invite: %v", err)
	}

	var toTag string
	for {
		if ctx.Err() != nil {
			c.sendCancel(uri, aor, callID, fromTag, branch, cseq)
			return &InviteResult{Cleanup: "timeout"}, result.Timeout("no final sip response before deadline")
		}
		resp, err := ReadResponse(c.r)
		if err != nil {
			return nil, err
		}
		if to := resp.Headers.Get("To"); to != "" {
			toTag = extractTag(to)
		}
		switch {
		case resp.StatusCode < 200:
			continue // provisional, keep waiting
		case resp.StatusCode < 300:
			c.sendAck(uri, aor, callID, fromTag, toTag, newBranch(), cseq)
			c.sendBye(uri, aor, callID, fromTag, toTag, newBranch(), c.nextCSeq())
			return &InviteResult{FinalStatusCode: resp.StatusCode, Cleanup: "acked_byed"}, nil
		default:
			c.sendAck(uri, aor, callID, fromTag, toTag, branch, cseq)
			return &InviteResult{FinalStatusCode: resp.StatusCode, Cleanup: "acked"}, nil
		}
	}
}

var tagPattern = `;tag=`

func extractTag(header string) string {
	idx := indexOfSubstr(header, tagPattern)
	if idx < 0 {
		return ""
	}
	return header[idx+len(tagPattern):]
}

func indexOfSubstr(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func (c *Client) sendCancel(uri, aor, callID, fromTag, branch string, cseq uint32) {
	req := &Request{Method: "CANCEL", URI: uri}
	req.Set("Via", fmt.Sprintf("SIP/2.0/TLS 0.0.0.0;branch=%s", branch))
	req.Set("From", fmt.Sprintf("<%s>;tag=%s", aor, fromTag))
	req.Set("To", fmt.Sprintf("<%s>", uri))
	req.Set("Call-ID", callID)
	req.Set("CSeq", fmt.Sprintf("%d CANCEL", cseq))
	_, _ = c.conn.Write(req.Bytes())
}

func (c *Client) sendAck(uri, aor, callID, fromTag, toTag, branch string, cseq uint32) {
	to := fmt.Sprintf("<%s>", uri)
	if toTag != "" {
		to += ";tag=" + toTag
	}
	req := &Request{Method: "ACK", URI: uri}
	req.Set("Via", fmt.Sprintf("SIP/2.0/TLS 0.0.0.0;branch=%s", branch))
	req.Set("From", fmt.Sprintf("<%s>;tag=%s", aor, fromTag))
	req.Set("To", to)
	req.Set("Call-ID", callID)
	req.Set("CSeq", fmt.Sprintf("%d ACK", cseq))
	_, _ = c.conn.Write(req.Bytes())
}

func (c *Client) sendBye(uri, aor, callID, fromTag, toTag, branch string, cseq uint32) {
	to := fmt.Sprintf("<%s>", uri)
	if toTag != "" {
		to += ";tag=" + toTag
	}
	req := &Request{Method: "BYE", URI: uri}
	req.Set("Via", fmt.Sprintf("SIP/2.0/TLS 0.0.0.0;branch=%s", branch))
	req.Set("From", fmt.Sprintf("<%s>;tag=%s", aor, fromTag))
	req.Set("To", to)
	req.Set("Call-ID", callID)
	req.Set("CSeq", fmt.Sprintf("%d BYE", cseq))
	_, _ = c.conn.Write(req.Bytes())
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if err := c.conn.Close(); err != nil {
		return result.Network("close sip connection: %v", err)
	}
	return nil
}
