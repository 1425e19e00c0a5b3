// Package sips implements enough of RFC 3261 SIP over TLS to register
// against a registrar with digest authentication (RFC 2617) and run an
// INVITE transaction through its mandated cleanup paths (spec §4.7.f).
package sips

import (
	"bufio"
	"fmt"
	"net/textproto"
	"regexp"
	"strconv"
	"strings"

	"github.com/pocc/portofcall-sub006/internal/cryptoutil"
	"github.com/pocc/portofcall-sub006/internal/result"
)

// Request is one outgoing SIP request line plus headers and body.
type Request struct {
	Method  string
	URI     string
	Headers []Header
	Body    []byte
}

// Header is an ordered name/value pair; SIP header order is
// significant to some proxies, so requests keep insertion order rather
// than a map.
type Header struct {
	Name  string
	Value string
}

// Set appends or replaces (by case-insensitive name) a header.
func (r *Request) Set(name, value string) {
	for i := range r.Headers {
		if strings.EqualFold(r.Headers[i].Name, name) {
			r.Headers[i].Value = value
			return
		}
	}
	r.Headers = append(r.Headers, Header{Name: name, Value: value})
}

// Bytes renders the request as wire bytes, terminated per RFC 3261 with
// a blank line before the body.
func (r *Request) Bytes() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s SIP/2.0\r\n", r.Method, r.URI)
	for _, h := range r.Headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h.Name, h.Value)
	}
	fmt.Fprintf(&b, "Content-Length: %d\r\n\r\n", len(r.Body))
	b.Write(r.Body)
	return []byte(b.String())
}

// Response is a parsed SIP status line, header map (case-insensitive
// keys via textproto.MIMEHeader), and body.
type Response struct {
	StatusCode int
	Reason     string
	Headers    textproto.MIMEHeader
	Body       []byte
}

var statusLinePattern = regexp.MustCompile(`^SIP/2\.0\s+(\d{3})\s+(.*)$`)

// ReadResponse parses one SIP response off r: a status line, a
// textproto header block, and a Content-Length-gated body.
func ReadResponse(r *bufio.Reader) (*Response, error) {
	tp := textproto.NewReader(r)

	line, err := tp.ReadLine()
	if err != nil {
		return nil, result.Network("read sip status line: %v", err)
	}
	m := statusLinePattern.FindStringSubmatch(line)
	if m == nil {
		return nil, result.ProtocolError("malformed sip status line: %q", line)
	}
	code, _ := strconv.Atoi(m[1])

	headers, err := tp.ReadMIMEHeader()
	if err != nil && len(headers) == 0 {
		return nil, result.ProtocolError("read sip headers: %v", err)
	}

	resp := &Response{StatusCode: code, Reason: m[2], Headers: headers}

	bodyLen := 0
	if cl := headers.Get("Content-Length"); cl != "" {
		bodyLen, _ = strconv.Atoi(strings.TrimSpace(cl))
	}
	if bodyLen > 0 {
		body := make([]byte, bodyLen)
		if _, err := readFull(r, body); err != nil {
			return nil, result.Network("read sip body: %v", err)
		}
		resp.Body = body
	}
	return resp, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
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

// challengeFieldPatterns extracts each Digest parameter independently;
// the set of fields a challenge carries is closed (realm, nonce,
// algorithm, qop, opaque), so scanning for each by name rather than
// writing a full header-parameter grammar matches the regex-on-a-closed-set
// idiom used for XMPP's element parser.
var challengeFieldPatterns = map[string]*regexp.Regexp{
	"realm":     regexp.MustCompile(`realm="([^"]*)"`),
	"nonce":     regexp.MustCompile(`nonce="([^"]*)"`),
	"algorithm": regexp.MustCompile(`algorithm=("?)([^",\s]*)("?)`),
	"qop":       regexp.MustCompile(`qop="?([^",\s]*)"?`),
	"opaque":    regexp.MustCompile(`opaque="([^"]*)"`),
}

// ParseChallenge extracts a DigestChallenge from a WWW-Authenticate or
// Proxy-Authenticate header value of the form `Digest realm="...", ...`.
func ParseChallenge(headerValue string) (cryptoutil.DigestChallenge, error) {
	if !strings.HasPrefix(strings.TrimSpace(headerValue), "Digest") {
		return cryptoutil.DigestChallenge{}, result.ProtocolError("unsupported auth scheme: %q", headerValue)
	}
	var c cryptoutil.DigestChallenge
	if m := challengeFieldPatterns["realm"].FindStringSubmatch(headerValue); m != nil {
		c.Realm = m[1]
	}
	if m := challengeFieldPatterns["nonce"].FindStringSubmatch(headerValue); m != nil {
		c.Nonce = m[1]
	}
	if m := challengeFieldPatterns["algorithm"].FindStringSubmatch(headerValue); m != nil {
		c.Algorithm = m[2]
	}
	if c.Algorithm == "" {
		c.Algorithm = "MD5"
	}
	if m := challengeFieldPatterns["qop"].FindStringSubmatch(headerValue); m != nil {
		c.QOP = m[1]
	}
	if m := challengeFieldPatterns["opaque"].FindStringSubmatch(headerValue); m != nil {
		c.Opaque = m[1]
	}
	if c.Realm == "" || c.Nonce == "" {
		return cryptoutil.DigestChallenge{}, result.ProtocolError("digest challenge missing realm or nonce: %q", headerValue)
	}
	return c, nil
}

// FormatAuthorization renders the Authorization/Proxy-Authorization
// header value from an already-computed digest response (spec §4.6).
func FormatAuthorization(username string, challenge cryptoutil.DigestChallenge, uri, response, nc, cnonce string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Digest username="%s", realm="%s", nonce="%s", uri="%s", response="%s"`,
		username, challenge.Realm, challenge.Nonce, uri, response)
	if challenge.Algorithm != "" {
		fmt.Fprintf(&b, `, algorithm=%s`, challenge.Algorithm)
	}
	if challenge.QOP != "" {
		fmt.Fprintf(&b, `, qop=%s, nc=%s, cnonce="%s"`, challenge.QOP, nc, cnonce)
	}
	if challenge.Opaque != "" {
		fmt.Fprintf(&b, `, opaque="%s"`, challenge.Opaque)
	}
	return b.String()
}
