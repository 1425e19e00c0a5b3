package sips

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readRequest reads one SIP request's request line and headers off r,
// line by line up to the blank line; any body after it is left unread.
func readRequest(t *testing.T, r *bufio.Reader) (method string, headers map[string]string) {
	t.Helper()
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	parts := strings.SplitN(strings.TrimSpace(line), " ", 2)
	headers = map[string]string{}
	for {
		hline, err := r.ReadString('\n')
		require.NoError(t, err)
		hline = strings.TrimRight(hline, "\r\n")
		if hline == "" {
			break
		}
		kv := strings.SplitN(hline, ":", 2)
		headers[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return parts[0], headers
}

// TestRegisterDigestRoundTrip reproduces spec §8 scenario 5: first
// REGISTER gets a 401 Digest challenge, the second (with a computed
// Authorization header) gets 200 OK.
func TestRegisterDigestRoundTrip(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r := bufio.NewReader(server)

		method, _ := readRequest(t, r)
		assert.Equal(t, "REGISTER", method)
		fmt.Fprint(server, "SIP/2.0 401 Unauthorized\r\n"+
			`WWW-Authenticate: Digest realm="sip.example", nonce="abc", algorithm=MD5, qop="auth"`+"\r\n"+
			"Content-Length: 0\r\n\r\n")

		method, headers := readRequest(t, r)
		assert.Equal(t, "REGISTER", method)
		auth := headers["Authorization"]
		assert.Contains(t, auth, `realm="sip.example"`)
		assert.Contains(t, auth, `username="alice"`)
		assert.Contains(t, auth, "nc=00000001")
		fmt.Fprint(server, "SIP/2.0 200 OK\r\nContent-Length: 0\r\n\r\n")
	}()

	c := NewClient(client)
	res, err := c.Register(context.Background(), "sips:sip.example", "sip:alice@sip.example", "alice", "s3cret")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Authenticated)
	assert.Equal(t, "sip.example", res.Realm)

	<-done
}

func TestParseChallengeDefaultsAlgorithmToMD5(t *testing.T) {
	c, err := ParseChallenge(`Digest realm="sip.example", nonce="abc"`)
	require.NoError(t, err)
	assert.Equal(t, "MD5", c.Algorithm)
	assert.Equal(t, "sip.example", c.Realm)
	assert.Equal(t, "abc", c.Nonce)
}

func TestParseChallengeRejectsNonDigest(t *testing.T) {
	_, err := ParseChallenge(`Basic realm="sip.example"`)
	require.Error(t, err)
}

func TestReadResponseParsesStatusLineAndBody(t *testing.T) {
	raw := "SIP/2.0 200 OK\r\nContent-Length: 5\r\n\r\nhello"
	r := bufio.NewReader(strings.NewReader(raw))
	resp, err := ReadResponse(r)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "OK", resp.Reason)
	assert.Equal(t, "hello", string(resp.Body))
}
