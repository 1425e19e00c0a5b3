package xmpp

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/pocc/portofcall-sub006/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeaturesScopesRequiredToStartTLS(t *testing.T) {
	blob := `<stream:features>
		<starttls xmlns='urn:ietf:params:xml:ns:xmpp-tls'><required/></starttls>
		<bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'><required/></bind>
	</stream:features>`
	f := parseFeatures(blob)
	assert.True(t, f.StartTLS)
	assert.True(t, f.StartTLSRequire)
}

func TestParseFeaturesBindRequiredDoesNotImplyStartTLS(t *testing.T) {
	blob := `<stream:features>
		<bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'><required/></bind>
	</stream:features>`
	f := parseFeatures(blob)
	assert.False(t, f.StartTLS)
	assert.False(t, f.StartTLSRequire)
}

func TestEscapeXML(t *testing.T) {
	assert.Equal(t, "&amp;&lt;&gt;&quot;&apos;", escapeXML(`&<>"'`))
}

func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

// readUpTo reads off conn until it has seen delim, returning everything
// read. Used by the scripted server side of these tests.
func readUpTo(t *testing.T, conn net.Conn, delim string) string {
	t.Helper()
	var acc []byte
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		require.NoError(t, err)
		acc = append(acc, buf[:n]...)
		if idx := indexOf(string(acc), delim); idx >= 0 {
			return string(acc)
		}
	}
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// TestSessionSTARTTLSRoundTrip reproduces the spec scenario 6 phase
// trace: server advertises STARTTLS as required and PLAIN as the only
// mechanism, client upgrades, reopens the stream twice, authenticates,
// and binds a resource.
func TestSessionSTARTTLSRoundTrip(t *testing.T) {
	cert := selfSignedCert(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- runScriptedServer(t, ln, cert)
	}()

	addr := ln.Addr().(*net.TCPAddr)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := transport.Connect(ctx, "127.0.0.1", uint16(addr.Port), transport.StartTLS, nil)
	require.NoError(t, err)
	defer conn.Close()

	c := NewClient(conn, "xmpp.example")
	jid, err := c.Session(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice@xmpp.example/portofcall", jid)
	assert.Equal(t, []string{
		"stream_opened",
		"starttls_upgraded",
		"stream_restarted",
		"authenticated",
		"stream_restarted",
		"resource_bound",
	}, c.Phases())

	require.NoError(t, <-serverDone)
}

func runScriptedServer(t *testing.T, ln net.Listener, cert tls.Certificate) error {
	conn, err := ln.Accept()
	if err != nil {
		return err
	}
	defer conn.Close()

	// 1st stream open: advertise STARTTLS (required) + PLAIN.
	readUpTo(t, conn, ">")
	fmt.Fprint(conn, "<stream:stream id='s1' from='xmpp.example' version='1.0'>")
	fmt.Fprint(conn, "<stream:features>"+
		"<starttls xmlns='urn:ietf:params:xml:ns:xmpp-tls'><required/></starttls>"+
		"</stream:features>")

	// STARTTLS negotiation.
	readUpTo(t, conn, "/>")
	fmt.Fprint(conn, "<proceed xmlns='urn:ietf:params:xml:ns:xmpp-tls'/>")

	tlsConn := tls.Server(conn, &tls.Config{Certificates: []tls.Certificate{cert}})
	if err := tlsConn.Handshake(); err != nil {
		return err
	}
	defer tlsConn.Close()

	// 2nd stream open (post-TLS): advertise PLAIN only.
	readUpTo(t, tlsConn, ">")
	fmt.Fprint(tlsConn, "<stream:stream id='s2' from='xmpp.example' version='1.0'>")
	fmt.Fprint(tlsConn, "<stream:features>"+
		"<mechanisms xmlns='urn:ietf:params:xml:ns:xmpp-sasl'><mechanism>PLAIN</mechanism></mechanisms>"+
		"</stream:features>")

	// SASL PLAIN auth.
	readUpTo(t, tlsConn, ">")
	fmt.Fprint(tlsConn, "<success xmlns='urn:ietf:params:xml:ns:xmpp-sasl'/>")

	// 3rd stream open (post-auth).
	readUpTo(t, tlsConn, ">")
	fmt.Fprint(tlsConn, "<stream:stream id='s3' from='xmpp.example' version='1.0'>")
	fmt.Fprint(tlsConn, "<stream:features></stream:features>")

	// Resource bind.
	readUpTo(t, tlsConn, "</iq>")
	fmt.Fprint(tlsConn, "<iq type='result' id='bind_1'>"+
		"<bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'><jid>alice@xmpp.example/portofcall</jid></bind>"+
		"</iq>")

	return nil
}
