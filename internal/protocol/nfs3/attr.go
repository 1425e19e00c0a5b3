// Package nfs3 implements an NFSv3 (RFC 1813) client limited to the
// procedures a probe needs: GETATTR, LOOKUP, READ, WRITE, CREATE,
// MKDIR, REMOVE, RMDIR, RENAME, and READDIR.
package nfs3

import (
	"bytes"

	"github.com/pocc/portofcall-sub006/internal/codec"
	"github.com/pocc/portofcall-sub006/internal/result"
)

// File types (fattr3.ftype).
const (
	TypeReg  = 1
	TypeDir  = 2
	TypeBlk  = 3
	TypeChr  = 4
	TypeLnk  = 5
	TypeSock = 6
	TypeFifo = 7
)

var typeNames = map[uint32]string{
	TypeReg: "REG", TypeDir: "DIR", TypeBlk: "BLK", TypeChr: "CHR",
	TypeLnk: "LNK", TypeSock: "SOCK", TypeFifo: "FIFO",
}

// TypeName returns the symbolic name for an fattr3 ftype, or "UNKNOWN".
func TypeName(t uint32) string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "UNKNOWN"
}

// Status codes (RFC 1813 §2.6), the subset this client distinguishes.
const (
	NFS3OK          = 0
	NFS3ErrPerm     = 1
	NFS3ErrNoEnt    = 2
	NFS3ErrIO       = 5
	NFS3ErrAccess   = 13
	NFS3ErrExist    = 17
	NFS3ErrNotDir   = 20
	NFS3ErrIsDir    = 21
	NFS3ErrInval    = 22
	NFS3ErrNoSpc    = 28
	NFS3ErrNameTooLong = 63
	NFS3ErrNotEmpty = 66
	NFS3ErrStale    = 70
)

// FileAttr mirrors fattr3, which is a fixed 84-byte structure (spec
// §4.1): ftype(4) mode(4) nlink(4) uid(4) gid(4) size(8) used(8)
// rdev(8) fsid(8) fileid(8) atime(8) mtime(8) ctime(8).
//
// The wire format's atime/mtime/ctime fields are nfstime3 pairs
// (seconds u32, nseconds u32); only the seconds half is retained here
// since no probe operation needs sub-second resolution.
type FileAttr struct {
	Type   uint32
	Mode   uint32
	Nlink  uint32
	UID    uint32
	GID    uint32
	Size   uint64
	Used   uint64
	Rdev   uint64
	Fsid   uint64
	Fileid uint64
	Atime  uint32
	Mtime  uint32
	Ctime  uint32
}

func decodeNFSTime(r *bytes.Reader) (uint32, error) {
	sec, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return 0, err
	}
	if _, err := codec.DecodeXDRUint32(r); err != nil { // nseconds, discarded
		return 0, err
	}
	return sec, nil
}

// DecodeFileAttr reads one fattr3 value.
func DecodeFileAttr(r *bytes.Reader) (*FileAttr, error) {
	a := &FileAttr{}
	var err error
	if a.Type, err = codec.DecodeXDRUint32(r); err != nil {
		return nil, result.ProtocolError("decode ftype: %v", err)
	}
	if a.Mode, err = codec.DecodeXDRUint32(r); err != nil {
		return nil, result.ProtocolError("decode mode: %v", err)
	}
	if a.Nlink, err = codec.DecodeXDRUint32(r); err != nil {
		return nil, result.ProtocolError("decode nlink: %v", err)
	}
	if a.UID, err = codec.DecodeXDRUint32(r); err != nil {
		return nil, result.ProtocolError("decode uid: %v", err)
	}
	if a.GID, err = codec.DecodeXDRUint32(r); err != nil {
		return nil, result.ProtocolError("decode gid: %v", err)
	}
	if a.Size, err = codec.DecodeXDRUint64(r); err != nil {
		return nil, result.ProtocolError("decode size: %v", err)
	}
	if a.Used, err = codec.DecodeXDRUint64(r); err != nil {
		return nil, result.ProtocolError("decode used: %v", err)
	}
	if a.Rdev, err = codec.DecodeXDRUint64(r); err != nil {
		return nil, result.ProtocolError("decode rdev: %v", err)
	}
	if a.Fsid, err = codec.DecodeXDRUint64(r); err != nil {
		return nil, result.ProtocolError("decode fsid: %v", err)
	}
	if a.Fileid, err = codec.DecodeXDRUint64(r); err != nil {
		return nil, result.ProtocolError("decode fileid: %v", err)
	}
	if a.Atime, err = decodeNFSTime(r); err != nil {
		return nil, result.ProtocolError("decode atime: %v", err)
	}
	if a.Mtime, err = decodeNFSTime(r); err != nil {
		return nil, result.ProtocolError("decode mtime: %v", err)
	}
	if a.Ctime, err = decodeNFSTime(r); err != nil {
		return nil, result.ProtocolError("decode ctime: %v", err)
	}
	return a, nil
}

// DecodePostOpAttr reads a post_op_attr union: a bool "attributes
// follow" flag, then optionally a fattr3.
func DecodePostOpAttr(r *bytes.Reader) (*FileAttr, error) {
	follows, err := codec.DecodeXDRBool(r)
	if err != nil {
		return nil, result.ProtocolError("decode attr follows: %v", err)
	}
	if !follows {
		return nil, nil
	}
	return DecodeFileAttr(r)
}

// ModeString formats mode as a 4-digit octal permission string, e.g. "0644".
func ModeString(mode uint32) string {
	return modeOctal(mode & 0o7777)
}

func modeOctal(mode uint32) string {
	digits := [4]byte{}
	for i := 3; i >= 0; i-- {
		digits[i] = byte('0' + mode%8)
		mode /= 8
	}
	return string(digits[:])
}
