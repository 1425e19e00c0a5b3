package codec

import (
	"encoding/base64"
	"encoding/hex"
)

// HexEncode renders data as lowercase two-digit-per-byte hex, the
// convention every protocol module uses when a handle or digest needs
// to cross into the JSON Result Envelope.
func HexEncode(data []byte) string {
	return hex.EncodeToString(data)
}

// HexDecode is the inverse of HexEncode.
func HexDecode(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// Base64Encode uses the standard alphabet with '=' padding, as spec'd
// for SASL PLAIN payloads and arbitrary file bytes returned to callers.
func Base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Base64Decode is the inverse of Base64Encode.
func Base64Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
