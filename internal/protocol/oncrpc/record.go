// Package oncrpc implements ONC-RPC over TCP: record marking, the CALL
// message layout, and REPLY parsing (spec §4.7.a), shared by the MOUNT
// and NFSv3 protocol modules.
package oncrpc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pocc/portofcall-sub006/internal/codec"
	"github.com/pocc/portofcall-sub006/internal/framing"
	"github.com/pocc/portofcall-sub006/internal/result"
)

const (
	lastFragmentBit  = uint32(1) << 31
	fragmentLenMask  = ^lastFragmentBit
	maxRecordingSize = 1 << 20
)

// WriteRecord prefixes body with a single-fragment record marking
// header (top bit set, low 31 bits the body length) — spec §4.7.a:
// "the implementation emits single-fragment messages with the top bit
// set."
func WriteRecord(body []byte) []byte {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, lastFragmentBit|uint32(len(body)))
	return append(header, body...)
}

// ReadRecord reads one complete (possibly multi-fragment, though this
// repo only emits/expects single-fragment) RPC record from r using the
// Buffered Framed Reader.
func ReadRecord(fr *framing.Reader) ([]byte, error) {
	var out bytes.Buffer
	for {
		frame, err := fr.NextFrame(framing.LengthPrefixed(4, func(h []byte) int {
			return int(binary.BigEndian.Uint32(h) & fragmentLenMask)
		}))
		if err != nil {
			return nil, result.ProtocolError("read rpc record: %v", err)
		}
		header := binary.BigEndian.Uint32(frame[:4])
		out.Write(frame[4:])
		if header&lastFragmentBit != 0 {
			return out.Bytes(), nil
		}
		if out.Len() > maxRecordingSize {
			return nil, result.ProtocolError("rpc record exceeds %d bytes", maxRecordingSize)
		}
	}
}

// Message types (RFC 5531 §9).
const (
	MsgTypeCall  = 0
	MsgTypeReply = 1
)

// Reply statuses.
const (
	ReplyAccepted = 0
	ReplyDenied   = 1
)

// Accept statuses.
const (
	AcceptSuccess      = 0
	AcceptProgMismatch = 2
	AcceptProgUnavail  = 1
	AcceptProcUnavail  = 3
	AcceptGarbageArgs  = 4
)

// Call holds the fixed 10-word RPC CALL header (spec §4.7.a).
type Call struct {
	XID       uint32
	Program   uint32
	Version   uint32
	Procedure uint32
}

// EncodeCall writes the CALL header followed by args (already
// XDR-encoded by the caller) and returns the full record-marked frame.
func EncodeCall(c Call, args []byte) []byte {
	var buf bytes.Buffer
	_ = codec.WriteXDRUint32(&buf, c.XID)
	_ = codec.WriteXDRUint32(&buf, MsgTypeCall)
	_ = codec.WriteXDRUint32(&buf, 2) // rpc_version
	_ = codec.WriteXDRUint32(&buf, c.Program)
	_ = codec.WriteXDRUint32(&buf, c.Version)
	_ = codec.WriteXDRUint32(&buf, c.Procedure)
	_ = codec.WriteXDRUint32(&buf, 0) // cred_flavor = AUTH_NULL
	_ = codec.WriteXDRUint32(&buf, 0) // cred_len
	_ = codec.WriteXDRUint32(&buf, 0) // verf_flavor
	_ = codec.WriteXDRUint32(&buf, 0) // verf_len
	buf.Write(args)
	return WriteRecord(buf.Bytes())
}

// Reply is a parsed RPC REPLY with its procedure-specific payload left
// undecoded for the caller.
type Reply struct {
	XID        uint32
	AcceptStat uint32
	// MismatchLow/High are populated when AcceptStat == AcceptProgMismatch.
	MismatchLow  uint32
	MismatchHigh uint32
	Payload      []byte
}

// DecodeReply parses a full RPC message body (record-marking already
// stripped) into a Reply. A REJECTED (MSG_DENIED) reply comes back as a
// Remote error and a malformed one as a ProtocolError; every accepted
// reply, SUCCESS or not, is returned with its AcceptStat (and, for
// PROG_MISMATCH, the supported version range) for the caller to check.
func DecodeReply(body []byte) (*Reply, error) {
	r := bytes.NewReader(body)

	xid, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return nil, result.ProtocolError("read xid: %v", err)
	}
	msgType, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return nil, result.ProtocolError("read msg_type: %v", err)
	}
	if msgType != MsgTypeReply {
		return nil, result.ProtocolError("expected REPLY (1), got msg_type=%d", msgType)
	}

	replyStat, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return nil, result.ProtocolError("read reply_stat: %v", err)
	}
	if replyStat != ReplyAccepted {
		return nil, result.Remote(fmt.Sprintf("%d", replyStat), "RPC call rejected (auth error or rpc mismatch)")
	}

	// Skip the verifier: flavor (u32) + opaque body.
	if _, err := codec.DecodeXDRUint32(r); err != nil {
		return nil, result.ProtocolError("read verifier flavor: %v", err)
	}
	if _, err := codec.DecodeXDROpaque(r); err != nil {
		return nil, result.ProtocolError("read verifier body: %v", err)
	}

	acceptStat, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return nil, result.ProtocolError("read accept_stat: %v", err)
	}

	reply := &Reply{XID: xid, AcceptStat: acceptStat}

	switch acceptStat {
	case AcceptSuccess:
		remaining, err := io.ReadAll(r)
		if err != nil {
			return nil, result.ProtocolError("read payload: %v", err)
		}
		reply.Payload = remaining
		return reply, nil
	case AcceptProgMismatch:
		low, err := codec.DecodeXDRUint32(r)
		if err != nil {
			return nil, result.ProtocolError("read mismatch low: %v", err)
		}
		high, err := codec.DecodeXDRUint32(r)
		if err != nil {
			return nil, result.ProtocolError("read mismatch high: %v", err)
		}
		reply.MismatchLow = low
		reply.MismatchHigh = high
		return reply, nil
	default:
		return reply, nil
	}
}
