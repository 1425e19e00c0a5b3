// Package codec implements the byte-exact wire encoders and decoders
// shared by every protocol module: XDR (RFC 4506), VarUInt (LEB128),
// fixed-width ASCII fields, and hex/base64 helpers.
//
// Every decoder takes an io.Reader positioned at the start of a value
// and returns either the decoded value or a wrapped error; the reader's
// position after a successful call is the cursor after that value, so
// callers compose decoders by calling them in sequence against the same
// reader. Encoders append to a *bytes.Buffer for the same reason.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// MaxOpaqueLen bounds any single XDR opaque/string field. It exists to
// stop a malicious or confused peer from making a decoder allocate an
// unbounded buffer before the frame it lives in has even been length
// checked.
const MaxOpaqueLen = 1 << 20 // 1 MiB

// WriteXDRPadding writes the zero bytes needed to align length to a
// 4-byte boundary: (4 - length%4) % 4 bytes, 0 to 3 of them.
func WriteXDRPadding(buf *bytes.Buffer, length uint32) error {
	pad := (4 - (length % 4)) % 4
	for i := uint32(0); i < pad; i++ {
		if err := buf.WriteByte(0); err != nil {
			return fmt.Errorf("write xdr padding: %w", err)
		}
	}
	return nil
}

// WriteXDROpaque encodes opaque data as [u32 length][data][zero padding
// to 4 bytes]. Empty data encodes as a bare zero length, no padding.
func WriteXDROpaque(buf *bytes.Buffer, data []byte) error {
	length := uint32(len(data))
	if err := binary.Write(buf, binary.BigEndian, length); err != nil {
		return fmt.Errorf("write opaque length: %w", err)
	}
	if _, err := buf.Write(data); err != nil {
		return fmt.Errorf("write opaque data: %w", err)
	}
	return WriteXDRPadding(buf, length)
}

// WriteXDRString encodes s the same way as WriteXDROpaque.
func WriteXDRString(buf *bytes.Buffer, s string) error {
	return WriteXDROpaque(buf, []byte(s))
}

// WriteXDRUint32 writes v as a big-endian u32.
func WriteXDRUint32(buf *bytes.Buffer, v uint32) error {
	return binary.Write(buf, binary.BigEndian, v)
}

// WriteXDRUint64 writes v as a big-endian u64.
func WriteXDRUint64(buf *bytes.Buffer, v uint64) error {
	return binary.Write(buf, binary.BigEndian, v)
}

// WriteXDRInt32 writes v as a big-endian, two's-complement i32.
func WriteXDRInt32(buf *bytes.Buffer, v int32) error {
	return binary.Write(buf, binary.BigEndian, v)
}

// WriteXDRBool encodes b as a u32: 0 or 1.
func WriteXDRBool(buf *bytes.Buffer, b bool) error {
	var v uint32
	if b {
		v = 1
	}
	return WriteXDRUint32(buf, v)
}

// DecodeXDROpaque reads [u32 length][data][padding] and returns data.
// Rejects length > MaxOpaqueLen as ProtocolError territory — callers
// turn the returned error into a result.ProtocolError.
func DecodeXDROpaque(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("read opaque length: %w", err)
	}
	if length > MaxOpaqueLen {
		return nil, fmt.Errorf("opaque length %d exceeds maximum %d", length, MaxOpaqueLen)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read opaque data: %w", err)
	}
	pad := (4 - (length % 4)) % 4
	if pad > 0 {
		var padBuf [3]byte
		if _, err := io.ReadFull(r, padBuf[:pad]); err != nil {
			return nil, fmt.Errorf("skip opaque padding: %w", err)
		}
	}
	return data, nil
}

// DecodeXDRString reads an XDR string and interprets it as UTF-8.
func DecodeXDRString(r io.Reader) (string, error) {
	data, err := DecodeXDROpaque(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeXDRUint32 reads a big-endian u32.
func DecodeXDRUint32(r io.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read uint32: %w", err)
	}
	return v, nil
}

// DecodeXDRUint64 reads a big-endian u64. NFS's "hi*2^32+lo" hyper
// integers collapse to this directly once read as one 8-byte field;
// there is no separate half-at-a-time decoder, so precision loss from
// a JS-style double is structurally impossible here.
func DecodeXDRUint64(r io.Reader) (uint64, error) {
	var v uint64
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read uint64: %w", err)
	}
	return v, nil
}

// DecodeXDRHiLo reconstructs a u64 from a separately transmitted high
// and low 32-bit half, as some ONC-RPC-derived wire formats do. Uses a
// genuine 64-bit accumulator throughout; never a float64.
func DecodeXDRHiLo(r io.Reader) (uint64, error) {
	hi, err := DecodeXDRUint32(r)
	if err != nil {
		return 0, fmt.Errorf("read hi: %w", err)
	}
	lo, err := DecodeXDRUint32(r)
	if err != nil {
		return 0, fmt.Errorf("read lo: %w", err)
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

// DecodeXDRInt32 reads a big-endian, two's-complement i32.
func DecodeXDRInt32(r io.Reader) (int32, error) {
	var v int32
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read int32: %w", err)
	}
	return v, nil
}

// DecodeXDRBool reads a u32 and reports whether it is non-zero.
func DecodeXDRBool(r io.Reader) (bool, error) {
	v, err := DecodeXDRUint32(r)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}
