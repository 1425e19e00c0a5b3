// Package xmpp implements enough of RFC 6120 client-to-server (and the
// server-to-server variant on port 5269) to open a stream, negotiate
// STARTTLS, authenticate with SASL PLAIN, bind a resource, and perform
// one application-level action (spec §4.7.e).
//
// Parsing is regex-based against a closed element set, not a general
// XML parser: every stanza this module needs to read is one of a small
// number of shapes, so scanning line-oriented patterns (in the style of
// the teacher's mount-table scanner) is simpler and more auditable than
// driving a streaming XML decoder through half-open elements.
package xmpp

import (
	"regexp"
	"strings"
)

var (
	streamOpenPattern = regexp.MustCompile(`<stream:stream\b[^>]*\bid=(['"])([^'"]*)['"][^>]*>`)
	mechanismPattern  = regexp.MustCompile(`<mechanism>([^<]+)</mechanism>`)
	starttlsBlock     = regexp.MustCompile(`(?s)<starttls\b[^>]*?(?:/>|>(.*?)</starttls>)`)
	requiredPattern   = regexp.MustCompile(`<required\s*/>`)
	proceedPattern    = regexp.MustCompile(`<proceed\b[^>]*/>`)
	failurePattern    = regexp.MustCompile(`<failure\b`)
	bindJIDPattern    = regexp.MustCompile(`<jid>([^<]+)</jid>`)
	successPattern    = regexp.MustCompile(`<success\b`)
)

// Features is the parsed content of a <stream:features> element: the
// SASL mechanisms on offer and whether STARTTLS was advertised and
// marked required.
type Features struct {
	Mechanisms      []string
	StartTLS        bool
	StartTLSRequire bool
}

// parseStreamOpen extracts the id attribute from a <stream:stream>
// open tag. The server's opening tag is never self-closed and carries
// no closing </stream:stream> on this line, so a regex anchored on the
// id attribute is sufficient.
func parseStreamOpen(data string) (id string, ok bool) {
	m := streamOpenPattern.FindStringSubmatch(data)
	if m == nil {
		return "", false
	}
	return m[2], true
}

// parseFeatures scans a <stream:features>...</stream:features> blob.
// The <required/> scan is scoped to the <starttls>...</starttls> span
// specifically so an unrelated <bind><required/></bind> element (the
// resource-bind feature also advertises a required child) is never
// misread as a TLS requirement.
func parseFeatures(data string) Features {
	var f Features
	for _, m := range mechanismPattern.FindAllStringSubmatch(data, -1) {
		f.Mechanisms = append(f.Mechanisms, m[1])
	}
	if m := starttlsBlock.FindStringSubmatch(data); m != nil {
		f.StartTLS = true
		f.StartTLSRequire = requiredPattern.MatchString(m[1])
	}
	return f
}

func hasProceed(data string) bool { return proceedPattern.MatchString(data) }
func hasFailure(data string) bool { return failurePattern.MatchString(data) }
func hasSuccess(data string) bool { return successPattern.MatchString(data) }

// parseBoundJID extracts the full JID from an IQ bind result:
// <iq type='result' ...><bind ...><jid>user@host/res</jid></bind></iq>.
func parseBoundJID(data string) (string, bool) {
	m := bindJIDPattern.FindStringSubmatch(data)
	if m == nil {
		return "", false
	}
	return m[1], true
}

var xmlEscaper = strings.NewReplacer(
	`&`, "&amp;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
	`'`, "&apos;",
)

// escapeXML entity-escapes user-supplied string content before it is
// interpolated back into outgoing XML (spec §4.7.e).
func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
