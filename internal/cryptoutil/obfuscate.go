package cryptoutil

import (
	"crypto/rand"
	"encoding/hex"
)

// tdsXorConstant is the fixed byte Sybase TDS XORs every password byte
// with (spec §4.6); it is obfuscation, not encryption, and the source
// protocol has no stronger scheme for this field.
const tdsXorConstant = 0xA5

// ObfuscateTDSPassword XORs each byte of password (truncated to 30
// bytes, TDS's fixed field width) with 0xA5. The operation is its own
// inverse, so the same function de-obfuscates a captured value.
func ObfuscateTDSPassword(password string) []byte {
	b := []byte(password)
	if len(b) > 30 {
		b = b[:30]
	}
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = c ^ tdsXorConstant
	}
	return out
}

// NewCNonce returns a fresh random short hex string suitable for a SIP
// digest cnonce, generated per challenge as RFC 2617 requires.
func NewCNonce() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// SASLPlain builds the SASL PLAIN initial response:
// authzid \0 authcid \0 password, UTF-8 encoded (base64 is applied by
// the caller via codec.Base64Encode so non-ASCII credentials survive
// intact through the encoding step).
func SASLPlain(authzid, authcid, password string) []byte {
	buf := make([]byte, 0, len(authzid)+len(authcid)+len(password)+2)
	buf = append(buf, authzid...)
	buf = append(buf, 0)
	buf = append(buf, authcid...)
	buf = append(buf, 0)
	buf = append(buf, password...)
	return buf
}
