package cryptoutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RFC 1321 Appendix A.5 test vectors, abbreviated.
func TestMD5HexVectors(t *testing.T) {
	cases := map[string]string{
		"":                                                              "d41d8cd98f00b204e9800998ecf8427e",
		"abc":                                                           "900150983cd24fb0d6963f7d28e17f72",
		"message digest":                                                "f96b697d7cb7938d525a2f31aaf161d0",
		"abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789": "d174ab98d277d9f5a5611c2c9f419d9f",
	}
	for input, want := range cases {
		assert.Equal(t, want, MD5Hex(input))
	}
}

func TestMD5HexMillionARepeat(t *testing.T) {
	big := make([]byte, 1_000_000)
	for i := range big {
		big[i] = 'a'
	}
	assert.Equal(t, "7707d6ae4e027c70eea2a935c2296f21", MD5Hex(string(big)))
}

func TestDigestResponseWithQOP(t *testing.T) {
	// spec §8 scenario 5.
	ha1 := MD5Hex("alice:sip.example:s3cret")
	ha2 := MD5Hex("REGISTER:sips:sip.example")
	want := MD5Hex(ha1 + ":abc:00000001:cnonce1:auth:" + ha2)

	got := DigestResponse("alice", "sip.example", "s3cret", "REGISTER", "sips:sip.example",
		DigestChallenge{Realm: "sip.example", Nonce: "abc", QOP: "auth"}, "00000001", "cnonce1")
	assert.Equal(t, want, got)
}

func TestDigestResponseWithoutQOP(t *testing.T) {
	ha1 := MD5Hex("alice:sip.example:s3cret")
	ha2 := MD5Hex("REGISTER:sips:sip.example")
	want := MD5Hex(ha1 + ":abc:" + ha2)

	got := DigestResponse("alice", "sip.example", "s3cret", "REGISTER", "sips:sip.example",
		DigestChallenge{Realm: "sip.example", Nonce: "abc"}, "", "")
	assert.Equal(t, want, got)
}

func TestObfuscateTDSPasswordIsSelfInverse(t *testing.T) {
	obf := ObfuscateTDSPassword("hunter2")
	deobf := make([]byte, len(obf))
	for i, b := range obf {
		deobf[i] = b ^ tdsXorConstant
	}
	assert.Equal(t, "hunter2", string(deobf))
}

func TestObfuscateTDSPasswordTruncatesTo30(t *testing.T) {
	long := "012345678901234567890123456789EXTRA"
	obf := ObfuscateTDSPassword(long)
	assert.Len(t, obf, 30)
}

func TestSASLPlainLayout(t *testing.T) {
	got := SASLPlain("", "user", "pass")
	assert.Equal(t, []byte{0, 'u', 's', 'e', 'r', 0, 'p', 'a', 's', 's'}, got)
}

func TestNewCNonceIsRandomAndHex(t *testing.T) {
	a, err := NewCNonce()
	require.NoError(t, err)
	b, err := NewCNonce()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 16)
}
