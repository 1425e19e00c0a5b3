package nfs3

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

// NFS program number and version (spec §4.7.c: program 100003, version 3).
const (
	ProgramNFS = 100003
	VersionNFS = 3
)

// Procedure numbers this client issues.
const (
	ProcNull    = 0
	ProcGetAttr = 1
	ProcLookup  = 3
	ProcRead    = 6
	ProcWrite   = 7
	ProcCreate  = 8
	ProcMkdir   = 9
	ProcRemove  = 12
	ProcRmdir   = 13
	ProcRename  = 14
	ProcReaddir = 16
)

// probeVersions are the NFS versions a liveness/capability probe tries
// (spec §4.7.c/§8 scenario 1: NULL at 2, 3, 4).
var probeVersions = [3]uint32{2, 3, 4}

// StableHowFileSync is the only stable_how value this client sends on
// WRITE3 (spec §4.1: "the implementation sends FILE_SYNC (2)").
const StableHowFileSync = 2

const createModeUnchecked = 0

// Client drives NFSv3 calls over an already-connected ONC-RPC stream
// (post-MOUNT; the caller supplies the root or a child file handle).
type Client struct {
	conn net.Conn
	fr   *framing.Reader
	xid  uint32
}

func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn, fr: framing.NewReader(conn, 4<<20), xid: 1}
}

func (c *Client) nextXID() uint32 {
	c.xid++
	return c.xid
}

func (c *Client) call(ctx context.Context, proc uint32, args []byte) (*oncrpc.Reply, error) {
	return c.callVersion(ctx, VersionNFS, proc, args)
}

// callVersion is call with an explicit RPC version, since ProbeVersions
// issues NULL against several versions on a client otherwise pinned to
// VersionNFS.
func (c *Client) callVersion(ctx context.Context, version, proc uint32, args []byte) (*oncrpc.Reply, error) {
	if ctx.Err() != nil {
		return nil, result.Timeout("context expired before nfs call: %v", ctx.Err())
	}
	if dl, ok := deadline.Deadline(ctx); ok {
		_ = c.conn.SetDeadline(dl)
	}
	frame := oncrpc.EncodeCall(oncrpc.Call{
		XID:       c.nextXID(),
		Program:   ProgramNFS,
		Version:   version,
		Procedure: proc,
	}, args)
	if _, err := c.conn.Write(frame); err != nil {
		return nil, result.Network("write nfs call: %v", err)
	}
	body, err := oncrpc.ReadRecord(c.fr)
	if err != nil {
		return nil, err
	}
	return oncrpc.DecodeReply(body)
}

// nfsStatusError maps a non-zero nfs_status onto result.Remote.
func nfsStatusError(status uint32) error {
	return result.Remote(statusString(status), "nfs operation failed")
}

func statusString(status uint32) string {
	names := map[uint32]string{
		NFS3ErrPerm: "ERR_PERM", NFS3ErrNoEnt: "ERR_NOENT", NFS3ErrIO: "ERR_IO",
		NFS3ErrAccess: "ERR_ACCESS", NFS3ErrExist: "ERR_EXIST", NFS3ErrNotDir: "ERR_NOTDIR",
		NFS3ErrIsDir: "ERR_ISDIR", NFS3ErrInval: "ERR_INVAL", NFS3ErrNoSpc: "ERR_NOSPC",
		NFS3ErrNameTooLong: "ERR_NAMETOOLONG", NFS3ErrNotEmpty: "ERR_NOTEMPTY", NFS3ErrStale: "ERR_STALE",
	}
	if n, ok := names[status]; ok {
		return n
	}
	return "ERR_UNKNOWN"
}

func encodeDirOpArgs(dirHandle []byte, name string) ([]byte, error) {
	var buf bytes.Buffer
	if err := codec.WriteXDROpaque(&buf, dirHandle); err != nil {
		return nil, err
	}
	if err := codec.WriteXDRString(&buf, name); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// skipWccData consumes a wcc_data (pre_op_attr then post_op_attr) and
// returns the post-op attributes.
func skipWccData(r *bytes.Reader) (*FileAttr, error) {
	preFollows, err := codec.DecodeXDRBool(r)
	if err != nil {
		return nil, result.ProtocolError("decode wcc pre follows: %v", err)
	}
	if preFollows {
		if _, err := codec.DecodeXDRUint64(r); err != nil { // size
			return nil, result.ProtocolError("decode wcc pre size: %v", err)
		}
		if _, err := decodeNFSTime(r); err != nil { // mtime
			return nil, result.ProtocolError("decode wcc pre mtime: %v", err)
		}
		if _, err := decodeNFSTime(r); err != nil { // ctime
			return nil, result.ProtocolError("decode wcc pre ctime: %v", err)
		}
	}
	return DecodePostOpAttr(r)
}

// VersionMismatch is the low/high range an AcceptProgMismatch reply
// reports for a NULL call at an unsupported version.
type VersionMismatch struct {
	Low  uint32
	High uint32
}

// VersionProbe is the outcome of one NULL call at a single NFS version.
type VersionProbe struct {
	Supported bool
	Mismatch  *VersionMismatch
}

// ProbeResult is the outcome of probing NFS versions 2, 3, and 4 (spec
// §8 scenario 1: "NFS probe v3 supported").
type ProbeResult struct {
	V2 VersionProbe
	V3 VersionProbe
	V4 VersionProbe
}

func (c *Client) probeVersion(ctx context.Context, version uint32) (VersionProbe, error) {
	reply, err := c.callVersion(ctx, version, ProcNull, nil)
	if err != nil {
		return VersionProbe{}, err
	}
	switch reply.AcceptStat {
	case oncrpc.AcceptSuccess:
		return VersionProbe{Supported: true}, nil
	case oncrpc.AcceptProgMismatch:
		return VersionProbe{Mismatch: &VersionMismatch{Low: reply.MismatchLow, High: reply.MismatchHigh}}, nil
	default:
		return VersionProbe{}, nil
	}
}

// ProbeVersions issues a NULL RPC call (program=100003, proc=0) at each
// version in probeVersions and classifies the reply's accept_stat,
// reporting version mismatch bounds when the server rejects a version.
func (c *Client) ProbeVersions(ctx context.Context) (*ProbeResult, error) {
	probes := make([]VersionProbe, len(probeVersions))
	for i, version := range probeVersions {
		p, err := c.probeVersion(ctx, version)
		if err != nil {
			return nil, err
		}
		probes[i] = p
	}
	return &ProbeResult{V2: probes[0], V3: probes[1], V4: probes[2]}, nil
}

// GetAttr issues GETATTR(handle).
func (c *Client) GetAttr(ctx context.Context, handle []byte) (*FileAttr, error) {
	var args bytes.Buffer
	if err := codec.WriteXDROpaque(&args, handle); err != nil {
		return nil, result.ProtocolError("encode handle: %v", err)
	}
	reply, err := c.call(ctx, ProcGetAttr, args.Bytes())
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(reply.Payload)
	status, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return nil, result.ProtocolError("decode status: %v", err)
	}
	if status != NFS3OK {
		return nil, nfsStatusError(status)
	}
	return DecodeFileAttr(r)
}

// LookupResult is the outcome of a successful LOOKUP.
type LookupResult struct {
	FileHandle []byte
	Attr       *FileAttr
}

// Lookup issues LOOKUP(dirHandle, name).
func (c *Client) Lookup(ctx context.Context, dirHandle []byte, name string) (*LookupResult, error) {
	args, err := encodeDirOpArgs(dirHandle, name)
	if err != nil {
		return nil, result.ProtocolError("encode lookup args: %v", err)
	}
	reply, err := c.call(ctx, ProcLookup, args)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(reply.Payload)
	status, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return nil, result.ProtocolError("decode status: %v", err)
	}
	if status != NFS3OK {
		return nil, nfsStatusError(status)
	}
	handle, err := codec.DecodeXDROpaque(r)
	if err != nil {
		return nil, result.ProtocolError("decode handle: %v", err)
	}
	attr, err := DecodePostOpAttr(r)
	if err != nil {
		return nil, err
	}
	// dir_attributes (post_op_attr for the parent) follows; not needed by callers.
	return &LookupResult{FileHandle: handle, Attr: attr}, nil
}

// ReadResult is the outcome of a successful READ.
type ReadResult struct {
	Data []byte
	EOF  bool
	Attr *FileAttr
}

// Read issues READ(handle, offset, count). Spec §4.1's READ3 reply
// order: status, post_op_attr, count, eof, data_len, data.
func (c *Client) Read(ctx context.Context, handle []byte, offset uint64, count uint32) (*ReadResult, error) {
	var args bytes.Buffer
	if err := codec.WriteXDROpaque(&args, handle); err != nil {
		return nil, result.ProtocolError("encode handle: %v", err)
	}
	if err := codec.WriteXDRUint64(&args, offset); err != nil {
		return nil, result.ProtocolError("encode offset: %v", err)
	}
	if err := codec.WriteXDRUint32(&args, count); err != nil {
		return nil, result.ProtocolError("encode count: %v", err)
	}
	reply, err := c.call(ctx, ProcRead, args.Bytes())
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(reply.Payload)
	status, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return nil, result.ProtocolError("decode status: %v", err)
	}
	if status != NFS3OK {
		return nil, nfsStatusError(status)
	}
	attr, err := DecodePostOpAttr(r)
	if err != nil {
		return nil, err
	}
	if _, err := codec.DecodeXDRUint32(r); err != nil { // count
		return nil, result.ProtocolError("decode read count: %v", err)
	}
	eof, err := codec.DecodeXDRBool(r)
	if err != nil {
		return nil, result.ProtocolError("decode eof: %v", err)
	}
	data, err := codec.DecodeXDROpaque(r)
	if err != nil {
		return nil, result.ProtocolError("decode data: %v", err)
	}
	return &ReadResult{Data: data, EOF: eof, Attr: attr}, nil
}

// Write issues WRITE(handle, offset, data) with stable_how=FILE_SYNC.
func (c *Client) Write(ctx context.Context, handle []byte, offset uint64, data []byte) (uint32, error) {
	var args bytes.Buffer
	if err := codec.WriteXDROpaque(&args, handle); err != nil {
		return 0, result.ProtocolError("encode handle: %v", err)
	}
	if err := codec.WriteXDRUint64(&args, offset); err != nil {
		return 0, result.ProtocolError("encode offset: %v", err)
	}
	if err := codec.WriteXDRUint32(&args, uint32(len(data))); err != nil {
		return 0, result.ProtocolError("encode count: %v", err)
	}
	if err := codec.WriteXDRUint32(&args, StableHowFileSync); err != nil {
		return 0, result.ProtocolError("encode stable_how: %v", err)
	}
	if err := codec.WriteXDROpaque(&args, data); err != nil {
		return 0, result.ProtocolError("encode data: %v", err)
	}
	reply, err := c.call(ctx, ProcWrite, args.Bytes())
	if err != nil {
		return 0, err
	}
	r := bytes.NewReader(reply.Payload)
	status, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return 0, result.ProtocolError("decode status: %v", err)
	}
	if status != NFS3OK {
		return 0, nfsStatusError(status)
	}
	if _, err := skipWccData(r); err != nil {
		return 0, err
	}
	written, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return 0, result.ProtocolError("decode written count: %v", err)
	}
	return written, nil
}

func encodeEmptySattr3(buf *bytes.Buffer) error {
	// sattr3: 6 optional fields, all "not set". mode, uid, gid and size
	// are each a bool-gated union.
	for i := 0; i < 4; i++ {
		if err := codec.WriteXDRBool(buf, false); err != nil {
			return err
		}
	}
	// atime/mtime use a 3-valued set_mtime enum (DONT_CHANGE=0).
	if err := codec.WriteXDRUint32(buf, 0); err != nil {
		return err
	}
	if err := codec.WriteXDRUint32(buf, 0); err != nil {
		return err
	}
	return nil
}

// Create issues CREATE(dirHandle, name) with createmode3=UNCHECKED and
// no attribute overrides.
func (c *Client) Create(ctx context.Context, dirHandle []byte, name string) ([]byte, error) {
	var args bytes.Buffer
	dirArgs, err := encodeDirOpArgs(dirHandle, name)
	if err != nil {
		return nil, result.ProtocolError("encode create args: %v", err)
	}
	args.Write(dirArgs)
	if err := codec.WriteXDRUint32(&args, createModeUnchecked); err != nil {
		return nil, result.ProtocolError("encode createmode: %v", err)
	}
	if err := encodeEmptySattr3(&args); err != nil {
		return nil, result.ProtocolError("encode sattr3: %v", err)
	}
	reply, err := c.call(ctx, ProcCreate, args.Bytes())
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(reply.Payload)
	status, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return nil, result.ProtocolError("decode status: %v", err)
	}
	if status != NFS3OK {
		return nil, nfsStatusError(status)
	}
	follows, err := codec.DecodeXDRBool(r)
	if err != nil {
		return nil, result.ProtocolError("decode obj follows: %v", err)
	}
	var handle []byte
	if follows {
		handle, err = codec.DecodeXDROpaque(r)
		if err != nil {
			return nil, result.ProtocolError("decode obj handle: %v", err)
		}
	}
	return handle, nil
}

// Mkdir issues MKDIR(dirHandle, name) with no attribute overrides.
func (c *Client) Mkdir(ctx context.Context, dirHandle []byte, name string) ([]byte, error) {
	var args bytes.Buffer
	dirArgs, err := encodeDirOpArgs(dirHandle, name)
	if err != nil {
		return nil, result.ProtocolError("encode mkdir args: %v", err)
	}
	args.Write(dirArgs)
	if err := encodeEmptySattr3(&args); err != nil {
		return nil, result.ProtocolError("encode sattr3: %v", err)
	}
	reply, err := c.call(ctx, ProcMkdir, args.Bytes())
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(reply.Payload)
	status, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return nil, result.ProtocolError("decode status: %v", err)
	}
	if status != NFS3OK {
		return nil, nfsStatusError(status)
	}
	follows, err := codec.DecodeXDRBool(r)
	if err != nil {
		return nil, result.ProtocolError("decode obj follows: %v", err)
	}
	var handle []byte
	if follows {
		handle, err = codec.DecodeXDROpaque(r)
		if err != nil {
			return nil, result.ProtocolError("decode obj handle: %v", err)
		}
	}
	return handle, nil
}

// Remove issues REMOVE(dirHandle, name).
func (c *Client) Remove(ctx context.Context, dirHandle []byte, name string) error {
	args, err := encodeDirOpArgs(dirHandle, name)
	if err != nil {
		return result.ProtocolError("encode remove args: %v", err)
	}
	reply, err := c.call(ctx, ProcRemove, args)
	if err != nil {
		return err
	}
	r := bytes.NewReader(reply.Payload)
	status, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return result.ProtocolError("decode status: %v", err)
	}
	if status != NFS3OK {
		return nfsStatusError(status)
	}
	return nil
}

// Rmdir issues RMDIR(dirHandle, name).
func (c *Client) Rmdir(ctx context.Context, dirHandle []byte, name string) error {
	args, err := encodeDirOpArgs(dirHandle, name)
	if err != nil {
		return result.ProtocolError("encode rmdir args: %v", err)
	}
	reply, err := c.call(ctx, ProcRmdir, args)
	if err != nil {
		return err
	}
	r := bytes.NewReader(reply.Payload)
	status, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return result.ProtocolError("decode status: %v", err)
	}
	if status != NFS3OK {
		return nfsStatusError(status)
	}
	return nil
}

// Rename issues RENAME(fromDir, fromName, toDir, toName).
func (c *Client) Rename(ctx context.Context, fromDir []byte, fromName string, toDir []byte, toName string) error {
	var args bytes.Buffer
	fromArgs, err := encodeDirOpArgs(fromDir, fromName)
	if err != nil {
		return result.ProtocolError("encode rename from args: %v", err)
	}
	toArgs, err := encodeDirOpArgs(toDir, toName)
	if err != nil {
		return result.ProtocolError("encode rename to args: %v", err)
	}
	args.Write(fromArgs)
	args.Write(toArgs)
	reply, err := c.call(ctx, ProcRename, args.Bytes())
	if err != nil {
		return err
	}
	r := bytes.NewReader(reply.Payload)
	status, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return result.ProtocolError("decode status: %v", err)
	}
	if status != NFS3OK {
		return nfsStatusError(status)
	}
	return nil
}

// DirEntry is one READDIR result entry.
type DirEntry struct {
	FileID uint64
	Name   string
	Cookie uint64
}

// ReaddirResult is the outcome of a successful READDIR.
type ReaddirResult struct {
	Entries     []DirEntry
	EOF         bool
	CookieVerf  [8]byte
}

// Readdir issues READDIR(handle, cookie, cookieverf, count).
func (c *Client) Readdir(ctx context.Context, handle []byte, cookie uint64, cookieverf [8]byte, count uint32) (*ReaddirResult, error) {
	var args bytes.Buffer
	if err := codec.WriteXDROpaque(&args, handle); err != nil {
		return nil, result.ProtocolError("encode handle: %v", err)
	}
	if err := codec.WriteXDRUint64(&args, cookie); err != nil {
		return nil, result.ProtocolError("encode cookie: %v", err)
	}
	args.Write(cookieverf[:])
	if err := codec.WriteXDRUint32(&args, count); err != nil {
		return nil, result.ProtocolError("encode count: %v", err)
	}
	reply, err := c.call(ctx, ProcReaddir, args.Bytes())
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(reply.Payload)
	status, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return nil, result.ProtocolError("decode status: %v", err)
	}
	if status != NFS3OK {
		return nil, nfsStatusError(status)
	}
	if _, err := DecodePostOpAttr(r); err != nil {
		return nil, err
	}
	var verf [8]byte
	if _, err := r.Read(verf[:]); err != nil {
		return nil, result.ProtocolError("decode cookieverf: %v", err)
	}

	res := &ReaddirResult{CookieVerf: verf}
	for {
		valueFollows, err := codec.DecodeXDRBool(r)
		if err != nil {
			return nil, result.ProtocolError("decode entry marker: %v", err)
		}
		if !valueFollows {
			break
		}
		fileid, err := codec.DecodeXDRUint64(r)
		if err != nil {
			return nil, result.ProtocolError("decode fileid: %v", err)
		}
		name, err := codec.DecodeXDRString(r)
		if err != nil {
			return nil, result.ProtocolError("decode name: %v", err)
		}
		entryCookie, err := codec.DecodeXDRUint64(r)
		if err != nil {
			return nil, result.ProtocolError("decode entry cookie: %v", err)
		}
		res.Entries = append(res.Entries, DirEntry{FileID: fileid, Name: name, Cookie: entryCookie})
	}
	eof, err := codec.DecodeXDRBool(r)
	if err != nil {
		return nil, result.ProtocolError("decode eof: %v", err)
	}
	res.EOF = eof
	return res, nil
}
