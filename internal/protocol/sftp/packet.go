// Package sftp implements the SFTP wire protocol (draft-ietf-secsh-filexfer-02)
// over an already-authenticated SSH "sftp" subsystem channel (spec
// §4.7.b): packets are framed as [u32 length][u8 type][u32
// request_id?][payload], where length covers everything after itself
// and SSH_FXP_INIT and SSH_FXP_VERSION are the two packet types with no
// request id.
package sftp

import (
	"bytes"

	"github.com/pocc/portofcall-sub006/internal/codec"
	"github.com/pocc/portofcall-sub006/internal/framing"
	"github.com/pocc/portofcall-sub006/internal/result"
)

const ProtocolVersion = 3

// Packet types.
const (
	TypeInit     = 1
	TypeVersion  = 2
	TypeOpen     = 3
	TypeClose    = 4
	TypeRead     = 5
	TypeWrite    = 6
	TypeOpenDir  = 11
	TypeReadDir  = 12
	TypeRemove   = 13
	TypeMkdir    = 14
	TypeStat     = 17
	TypeRename   = 18
	TypeStatus   = 101
	TypeHandle   = 102
	TypeData     = 103
	TypeName     = 104
	TypeAttrs    = 105
)

// Open pflags.
const (
	FlagRead   = 0x00000001
	FlagWrite  = 0x00000002
	FlagAppend = 0x00000004
	FlagCreat  = 0x00000008
	FlagTrunc  = 0x00000010
	FlagExcl   = 0x00000020
)

// Attribute flags, gating which fields follow the flags word.
const (
	AttrSize        = 0x00000001
	AttrUIDGID      = 0x00000002
	AttrPermissions = 0x00000004
	AttrACModTime   = 0x00000008
	AttrExtended    = 0x80000000
)

// Status codes (spec §4.7.b / draft §7).
const (
	StatusOK              = 0
	StatusEOF             = 1
	StatusNoSuchFile      = 2
	StatusPermissionDenied = 3
	StatusFailure         = 4
	StatusBadMessage      = 5
	StatusNoConnection    = 6
	StatusConnectionLost  = 7
	StatusOpUnsupported   = 8
)

var statusNames = map[uint32]string{
	StatusEOF: "EOF", StatusNoSuchFile: "NO_SUCH_FILE", StatusPermissionDenied: "PERMISSION_DENIED",
	StatusFailure: "FAILURE", StatusBadMessage: "BAD_MESSAGE", StatusNoConnection: "NO_CONNECTION",
	StatusConnectionLost: "CONNECTION_LOST", StatusOpUnsupported: "OP_UNSUPPORTED",
}

func statusName(code uint32) string {
	if n, ok := statusNames[code]; ok {
		return n
	}
	return "UNKNOWN"
}

// StatusToError maps a non-OK status onto the closed error taxonomy
// (spec §7: "SFTP NO_SUCH_FILE → NotFound").
func StatusToError(code uint32, message string) error {
	switch code {
	case StatusNoSuchFile:
		return result.NotFound("%s", message)
	case StatusPermissionDenied:
		return result.Denied("%s", message)
	default:
		return result.Remote(statusName(code), message)
	}
}

// Attrs is the draft-02 ATTRS record, with optional fields gated by
// Flags (spec §4.1: "typed struct decoded from a fixed binary layout;
// optional fields are gated by flag bitmasks").
type Attrs struct {
	Flags       uint32
	Size        uint64
	UID, GID    uint32
	Permissions uint32
	ATime, MTime uint32
}

// EncodeAttrs writes a (possibly all-absent) attrs record.
func EncodeAttrs(buf *bytes.Buffer, a Attrs) error {
	if err := codec.WriteXDRUint32(buf, a.Flags); err != nil {
		return err
	}
	if a.Flags&AttrSize != 0 {
		if err := codec.WriteXDRUint64(buf, a.Size); err != nil {
			return err
		}
	}
	if a.Flags&AttrUIDGID != 0 {
		if err := codec.WriteXDRUint32(buf, a.UID); err != nil {
			return err
		}
		if err := codec.WriteXDRUint32(buf, a.GID); err != nil {
			return err
		}
	}
	if a.Flags&AttrPermissions != 0 {
		if err := codec.WriteXDRUint32(buf, a.Permissions); err != nil {
			return err
		}
	}
	if a.Flags&AttrACModTime != 0 {
		if err := codec.WriteXDRUint32(buf, a.ATime); err != nil {
			return err
		}
		if err := codec.WriteXDRUint32(buf, a.MTime); err != nil {
			return err
		}
	}
	return nil
}

// DecodeAttrs reads an attrs record, skipping any extended pairs.
func DecodeAttrs(r *bytes.Reader) (*Attrs, error) {
	a := &Attrs{}
	var err error
	if a.Flags, err = codec.DecodeXDRUint32(r); err != nil {
		return nil, result.ProtocolError("decode attrs flags: %v", err)
	}
	if a.Flags&AttrSize != 0 {
		if a.Size, err = codec.DecodeXDRUint64(r); err != nil {
			return nil, result.ProtocolError("decode attrs size: %v", err)
		}
	}
	if a.Flags&AttrUIDGID != 0 {
		if a.UID, err = codec.DecodeXDRUint32(r); err != nil {
			return nil, result.ProtocolError("decode attrs uid: %v", err)
		}
		if a.GID, err = codec.DecodeXDRUint32(r); err != nil {
			return nil, result.ProtocolError("decode attrs gid: %v", err)
		}
	}
	if a.Flags&AttrPermissions != 0 {
		if a.Permissions, err = codec.DecodeXDRUint32(r); err != nil {
			return nil, result.ProtocolError("decode attrs permissions: %v", err)
		}
	}
	if a.Flags&AttrACModTime != 0 {
		if a.ATime, err = codec.DecodeXDRUint32(r); err != nil {
			return nil, result.ProtocolError("decode attrs atime: %v", err)
		}
		if a.MTime, err = codec.DecodeXDRUint32(r); err != nil {
			return nil, result.ProtocolError("decode attrs mtime: %v", err)
		}
	}
	if a.Flags&AttrExtended != 0 {
		count, err := codec.DecodeXDRUint32(r)
		if err != nil {
			return nil, result.ProtocolError("decode attrs extended count: %v", err)
		}
		for i := uint32(0); i < count; i++ {
			if _, err := codec.DecodeXDRString(r); err != nil {
				return nil, result.ProtocolError("decode extended type: %v", err)
			}
			if _, err := codec.DecodeXDRString(r); err != nil {
				return nil, result.ProtocolError("decode extended data: %v", err)
			}
		}
	}
	return a, nil
}

// rawPacket is one fully-framed packet with its length-prefix stripped.
type rawPacket struct {
	Type      byte
	RequestID uint32 // meaningless for TypeVersion
	Payload   []byte
}

// readPacket reads one packet from fr. Every packet type except VERSION
// carries a request id after the type byte; for VERSION, RequestID is
// left zero.
func readPacket(fr *framing.Reader) (*rawPacket, error) {
	frame, err := fr.NextFrame(framing.LengthPrefixed(4, func(h []byte) int {
		return int(headerLen(h))
	}))
	if err != nil {
		return nil, result.ProtocolError("read sftp packet: %v", err)
	}
	body := frame[4:]
	if len(body) < 1 {
		return nil, result.ProtocolError("empty sftp packet body")
	}
	typ := body[0]
	rest := body[1:]

	if typ == TypeVersion {
		return &rawPacket{Type: typ, Payload: rest}, nil
	}
	if len(rest) < 4 {
		return nil, result.ProtocolError("sftp packet too short for request id")
	}
	r := bytes.NewReader(rest[:4])
	id, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return nil, result.ProtocolError("decode sftp request id: %v", err)
	}
	return &rawPacket{Type: typ, RequestID: id, Payload: rest[4:]}, nil
}

func headerLen(header []byte) uint32 {
	var n uint32
	n |= uint32(header[0]) << 24
	n |= uint32(header[1]) << 16
	n |= uint32(header[2]) << 8
	n |= uint32(header[3])
	return n
}

// writePacket serializes one outgoing packet. id is ignored when typ is
// TypeInit or TypeVersion (both carry a version number in their
// payload, not a request id).
func writePacket(typ byte, id uint32, payload []byte) []byte {
	var body bytes.Buffer
	body.WriteByte(typ)
	if typ != TypeInit && typ != TypeVersion {
		_ = codec.WriteXDRUint32(&body, id)
	}
	body.Write(payload)

	var out bytes.Buffer
	_ = codec.WriteXDRUint32(&out, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}
