// Package mount implements the ONC-RPC MOUNT protocol (RFC 1813 Appendix
// I) client side: MNT and EXPORT against a remote mountd, preferring
// version 3 and falling back to version 1 when the server rejects it
// with PROG_MISMATCH.
package mount

import (
	"bytes"
	"context"
	"net"

	"github.com/pocc/portofcall-sub006/internal/codec"
	"github.com/pocc/portofcall-sub006/internal/deadline"
	"github.com/pocc/portofcall-sub006/internal/framing"
	"github.com/pocc/portofcall-sub006/internal/protocol/oncrpc"
	"github.com/pocc/portofcall-sub006/internal/result"
)

// Mount program number (RFC 1813 Appendix I).
const ProgramMount = 100005

// Procedure numbers shared across MOUNT versions 1 and 3.
const (
	ProcNull   = 0
	ProcMnt    = 1
	ProcDump   = 2
	ProcUmnt   = 3
	ProcExport = 5
)

// fhstatus3/mountstat3 status codes (RFC 1813 §5.2).
const (
	MountOK           = 0
	MountErrPerm      = 1
	MountErrNoEnt     = 2
	MountErrIO        = 5
	MountErrAccess    = 13
	MountErrNotDir    = 20
	MountErrInval     = 22
	MountErrNameTooLong = 63
	MountErrNotSupp   = 10004
	MountErrServerFault = 10006
)

// Export describes one entry of the server's export list.
type Export struct {
	Directory string
	Groups    []string
}

// MountResult carries the outcome of a successful MNT call.
type MountResult struct {
	Version     uint32
	Status      uint32
	FileHandle  []byte
	AuthFlavors []uint32
}

// Client drives MOUNT calls over an already-connected ONC-RPC stream.
type Client struct {
	conn net.Conn
	fr   *framing.Reader
	xid  uint32
}

// NewClient wraps conn (expected to already be connected to the
// server's mountd port — typically discovered via portmap, but this
// repo's Non-goals exclude portmap walking, so callers supply the port
// directly per spec §4.7.b).
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn, fr: framing.NewReader(conn, 1 << 20), xid: 1}
}

func (c *Client) nextXID() uint32 {
	c.xid++
	return c.xid
}

func (c *Client) call(ctx context.Context, version, proc uint32, args []byte) (*oncrpc.Reply, error) {
	if ctx.Err() != nil {
		return nil, result.Timeout("context expired before mount call: %v", ctx.Err())
	}
	if dl, ok := deadline.Deadline(ctx); ok {
		_ = c.conn.SetDeadline(dl)
	}
	frame := oncrpc.EncodeCall(oncrpc.Call{
		XID:       c.nextXID(),
		Program:   ProgramMount,
		Version:   version,
		Procedure: proc,
	}, args)

	if _, writeErr := c.conn.Write(frame); writeErr != nil {
		return nil, result.Network("write mount call: %v", writeErr)
	}

	body, readErr := oncrpc.ReadRecord(c.fr)
	if readErr != nil {
		return nil, readErr
	}
	return oncrpc.DecodeReply(body)
}

// Mnt issues MNT(dirPath) against version, trying 3 first and falling
// back to 1 if the server reports PROG_MISMATCH, per spec §4.7.b /
// §9's resolved Open Question.
func (c *Client) Mnt(ctx context.Context, dirPath string) (*MountResult, error) {
	for _, version := range []uint32{3, 1} {
		res, err := c.mntVersion(ctx, version, dirPath)
		if err == nil {
			return res, nil
		}
		if e := result.AsError(err); e != nil && e.Kind == result.KindUnsupported {
			continue
		}
		return nil, err
	}
	return nil, result.Unsupported("server supports neither MOUNT v3 nor v1")
}

func (c *Client) mntVersion(ctx context.Context, version uint32, dirPath string) (*MountResult, error) {
	var args bytes.Buffer
	if err := codec.WriteXDRString(&args, dirPath); err != nil {
		return nil, result.ProtocolError("encode dirpath: %v", err)
	}

	reply, err := c.call(ctx, version, ProcMnt, args.Bytes())
	if err != nil {
		return nil, err
	}
	if reply.AcceptStat == oncrpc.AcceptProgMismatch {
		return nil, result.Unsupported("mountd does not support version %d (supports %d-%d)", version, reply.MismatchLow, reply.MismatchHigh)
	}
	if reply.AcceptStat != oncrpc.AcceptSuccess {
		return nil, result.ProtocolError("mnt rejected: accept_stat=%d", reply.AcceptStat)
	}

	r := bytes.NewReader(reply.Payload)
	status, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return nil, result.ProtocolError("decode mountstat: %v", err)
	}
	res := &MountResult{Version: version, Status: status}
	if status != MountOK {
		return res, nil
	}

	if version == 3 {
		handle, err := codec.DecodeXDROpaque(r)
		if err != nil {
			return nil, result.ProtocolError("decode file handle: %v", err)
		}
		res.FileHandle = handle
	} else {
		handle := make([]byte, 32)
		if _, err := r.Read(handle); err != nil {
			return nil, result.ProtocolError("decode v1 file handle: %v", err)
		}
		res.FileHandle = handle
	}

	flavorCount, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return nil, result.ProtocolError("decode auth flavor count: %v", err)
	}
	flavors := make([]uint32, 0, flavorCount)
	for i := uint32(0); i < flavorCount; i++ {
		flavor, err := codec.DecodeXDRUint32(r)
		if err != nil {
			return nil, result.ProtocolError("decode auth flavor: %v", err)
		}
		flavors = append(flavors, flavor)
	}
	res.AuthFlavors = flavors
	return res, nil
}

// Export calls EXPORT and returns the server's export list.
func (c *Client) Export(ctx context.Context) ([]Export, error) {
	reply, err := c.call(ctx, 3, ProcExport, nil)
	if err != nil {
		return nil, err
	}
	if reply.AcceptStat != oncrpc.AcceptSuccess {
		return nil, result.ProtocolError("export rejected: accept_stat=%d", reply.AcceptStat)
	}

	r := bytes.NewReader(reply.Payload)
	var exports []Export
	for {
		hasNext, err := codec.DecodeXDRBool(r)
		if err != nil {
			return nil, result.ProtocolError("decode export list marker: %v", err)
		}
		if !hasNext {
			break
		}
		dir, err := codec.DecodeXDRString(r)
		if err != nil {
			return nil, result.ProtocolError("decode export dir: %v", err)
		}
		var groups []string
		for {
			hasGroup, err := codec.DecodeXDRBool(r)
			if err != nil {
				return nil, result.ProtocolError("decode group list marker: %v", err)
			}
			if !hasGroup {
				break
			}
			group, err := codec.DecodeXDRString(r)
			if err != nil {
				return nil, result.ProtocolError("decode group name: %v", err)
			}
			groups = append(groups, group)
		}
		exports = append(exports, Export{Directory: dir, Groups: groups})
	}
	return exports, nil
}
