// Package tds implements a TDS 5.0 (Sybase) client: the 8-byte packet
// header, the fixed 512-byte Login payload, and the subsequent
// little-endian-length-prefixed response token stream (spec §4.7.c).
package tds

import (
	"bytes"
	"encoding/binary"

	"github.com/pocc/portofcall-sub006/internal/cryptoutil"
	"github.com/pocc/portofcall-sub006/internal/result"
)

// Packet header types.
const (
	PacketTypeLogin    = 0x02
	PacketTypeQuery    = 0x01
	PacketTypeResponse = 0x04
	PacketTypePrelogin = 0x12
)

// StatusEndOfMessage is the header status bit marking the final packet
// of a logical TDS message.
const StatusEndOfMessage = 0x01

const headerSize = 8
const loginPayloadSize = 512

// Header is the 8-byte TDS packet header (spec §4.7.c): type, status,
// length (including the header itself), spid, packet_number, window.
type Header struct {
	Type         byte
	Status       byte
	Length       uint16
	SPID         uint16
	PacketNumber byte
	Window       byte
}

// EncodeHeader writes h big-endian.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, headerSize)
	buf[0] = h.Type
	buf[1] = h.Status
	binary.BigEndian.PutUint16(buf[2:4], h.Length)
	binary.BigEndian.PutUint16(buf[4:6], h.SPID)
	buf[6] = h.PacketNumber
	buf[7] = h.Window
	return buf
}

// DecodeHeader reads an 8-byte TDS packet header.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < headerSize {
		return Header{}, result.ProtocolError("tds header too short: %d bytes", len(b))
	}
	return Header{
		Type:         b[0],
		Status:       b[1],
		Length:       binary.BigEndian.Uint16(b[2:4]),
		SPID:         binary.BigEndian.Uint16(b[4:6]),
		PacketNumber: b[6],
		Window:       b[7],
	}, nil
}

// writeFixedField writes a 30-byte space-padded field plus its
// trailing length byte (spec §4.7.c field layout).
func writeFixedField(buf *bytes.Buffer, s string) {
	field := make([]byte, 30)
	for i := range field {
		field[i] = ' '
	}
	n := copy(field, s)
	buf.Write(field)
	buf.WriteByte(byte(n))
}

// BuildLoginPacket assembles the fixed 512-byte TDS 5.0 Login payload.
func BuildLoginPacket(hostname, username, password, appname, servername string) []byte {
	var buf bytes.Buffer

	writeFixedField(&buf, hostname)
	writeFixedField(&buf, username)

	obfuscated := cryptoutil.ObfuscateTDSPassword(password)
	passField := make([]byte, 30)
	for i := range passField {
		passField[i] = ' '
	}
	copy(passField, obfuscated)
	buf.Write(passField)
	buf.WriteByte(byte(len(obfuscated)))

	writeFixedField(&buf, "") // hostprocess

	buf.Write(make([]byte, 9)) // capability bytes

	writeFixedField(&buf, appname)
	writeFixedField(&buf, servername)

	buf.Write(make([]byte, 256)) // reserved remotepwd area

	buf.Write([]byte{0x05, 0x00, 0x00, 0x00}) // tds_version

	writeFixedField(&buf, "portofcall")
	buf.Write(make([]byte, 4)) // progversion
	buf.Write(make([]byte, 3)) // noshort/flt4type/date4type

	writeFixedField(&buf, "us_english") // language
	buf.WriteByte(0)                    // notchange
	writeFixedField(&buf, "iso_1")       // charset
	buf.WriteByte(0)                    // charconvert
	buf.Write(make([]byte, 6))          // packetsize

	out := buf.Bytes()
	if len(out) < loginPayloadSize {
		out = append(out, make([]byte, loginPayloadSize-len(out))...)
	}
	return out[:loginPayloadSize]
}
