package sftp

import (
	"bytes"
	"context"
	"io"

	"github.com/pocc/portofcall-sub006/internal/codec"
	"github.com/pocc/portofcall-sub006/internal/framing"
	"github.com/pocc/portofcall-sub006/internal/result"
	"github.com/pocc/portofcall-sub006/internal/rpcengine"
)

// Channel is the bidirectional byte stream a collaborator SSH client
// hands this module after opening the "sftp" subsystem (spec §4.7.b);
// *ssh.Channel from golang.org/x/crypto/ssh satisfies it directly.
type Channel interface {
	io.Reader
	io.Writer
}

// Client drives one SFTP session over an already-open subsystem
// channel. The session is single-threaded cooperative (spec §5): every
// request is written and its response read before the next is issued,
// so the RPC engine here only ever has one id outstanding at a time.
type Client struct {
	ch     Channel
	fr     *framing.Reader
	engine *rpcengine.Engine
}

// maxPacketBudget bounds the framed reader's backing buffer; SFTP
// payloads (a READ chunk plus overhead) rarely exceed a few hundred KB.
const maxPacketBudget = 1 << 20

// NewClient wraps ch and does not perform the INIT/VERSION exchange;
// call Handshake for that.
func NewClient(ch Channel) *Client {
	return &Client{
		ch:     ch,
		fr:     framing.NewReader(ch, maxPacketBudget),
		engine: rpcengine.NewSequential(rpcengine.Monotonic),
	}
}

// Handshake performs SSH_FXP_INIT/SSH_FXP_VERSION and returns the
// server's extension pairs.
func (c *Client) Handshake(ctx context.Context) (map[string]string, error) {
	if ctx.Err() != nil {
		return nil, result.Timeout("context expired before sftp handshake: %v", ctx.Err())
	}
	var payload bytes.Buffer
	_ = codec.WriteXDRUint32(&payload, ProtocolVersion)
	if _, err := c.ch.Write(writePacket(TypeInit, 0, payload.Bytes())); err != nil {
		return nil, result.Network("write sftp init: %v", err)
	}

	pkt, err := readPacket(c.fr)
	if err != nil {
		return nil, err
	}
	if pkt.Type != TypeVersion {
		return nil, result.ProtocolError("expected SSH_FXP_VERSION (2), got type=%d", pkt.Type)
	}
	r := bytes.NewReader(pkt.Payload)
	version, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return nil, result.ProtocolError("decode sftp version: %v", err)
	}
	if version != ProtocolVersion {
		return nil, result.Unsupported("server speaks sftp version %d, expected %d", version, ProtocolVersion)
	}

	exts := map[string]string{}
	for r.Len() > 0 {
		name, err := codec.DecodeXDRString(r)
		if err != nil {
			return nil, result.ProtocolError("decode extension name: %v", err)
		}
		data, err := codec.DecodeXDRString(r)
		if err != nil {
			return nil, result.ProtocolError("decode extension data: %v", err)
		}
		exts[name] = data
	}
	return exts, nil
}

// roundTrip sends one request packet and returns the response packet,
// verifying the echoed request id matches.
func (c *Client) roundTrip(ctx context.Context, typ byte, payload []byte) (*rawPacket, error) {
	if ctx.Err() != nil {
		return nil, result.Timeout("context expired before sftp call: %v", ctx.Err())
	}
	id, err := c.engine.NextID()
	if err != nil {
		return nil, err
	}
	if _, err := c.engine.Register(id); err != nil {
		return nil, err
	}

	if _, err := c.ch.Write(writePacket(typ, id, payload)); err != nil {
		c.engine.Abandon(id)
		return nil, result.Network("write sftp packet: %v", err)
	}

	pkt, err := readPacket(c.fr)
	if err != nil {
		c.engine.Abandon(id)
		return nil, err
	}
	if pkt.RequestID != id {
		c.engine.Abandon(id)
		return nil, result.ProtocolError("sftp reply id %d does not match request id %d", pkt.RequestID, id)
	}
	if _, err := c.engine.Deliver(pkt.RequestID, pkt.Payload); err != nil {
		return nil, err
	}
	return pkt, nil
}

func decodeStatus(pkt *rawPacket) error {
	r := bytes.NewReader(pkt.Payload)
	code, err := codec.DecodeXDRUint32(r)
	if err != nil {
		return result.ProtocolError("decode status code: %v", err)
	}
	msg, err := codec.DecodeXDRString(r)
	if err != nil {
		return result.ProtocolError("decode status message: %v", err)
	}
	if code == StatusOK {
		return nil
	}
	return StatusToError(code, msg)
}

// Open issues SSH_FXP_OPEN and returns the server-issued handle.
func (c *Client) Open(ctx context.Context, path string, pflags uint32) ([]byte, error) {
	var payload bytes.Buffer
	if err := codec.WriteXDRString(&payload, path); err != nil {
		return nil, result.ProtocolError("encode path: %v", err)
	}
	if err := codec.WriteXDRUint32(&payload, pflags); err != nil {
		return nil, result.ProtocolError("encode pflags: %v", err)
	}
	if err := EncodeAttrs(&payload, Attrs{}); err != nil {
		return nil, result.ProtocolError("encode attrs: %v", err)
	}

	pkt, err := c.roundTrip(ctx, TypeOpen, payload.Bytes())
	if err != nil {
		return nil, err
	}
	return decodeHandleOrStatus(pkt)
}

// OpenDir issues SSH_FXP_OPENDIR.
func (c *Client) OpenDir(ctx context.Context, path string) ([]byte, error) {
	var payload bytes.Buffer
	if err := codec.WriteXDRString(&payload, path); err != nil {
		return nil, result.ProtocolError("encode path: %v", err)
	}
	pkt, err := c.roundTrip(ctx, TypeOpenDir, payload.Bytes())
	if err != nil {
		return nil, err
	}
	return decodeHandleOrStatus(pkt)
}

func decodeHandleOrStatus(pkt *rawPacket) ([]byte, error) {
	switch pkt.Type {
	case TypeHandle:
		r := bytes.NewReader(pkt.Payload)
		handle, err := codec.DecodeXDROpaque(r)
		if err != nil {
			return nil, result.ProtocolError("decode handle: %v", err)
		}
		return handle, nil
	case TypeStatus:
		return nil, decodeStatus(pkt)
	default:
		return nil, result.ProtocolError("unexpected sftp response type %d", pkt.Type)
	}
}

// Close issues SSH_FXP_CLOSE on handle.
func (c *Client) Close(ctx context.Context, handle []byte) error {
	var payload bytes.Buffer
	if err := codec.WriteXDROpaque(&payload, handle); err != nil {
		return result.ProtocolError("encode handle: %v", err)
	}
	pkt, err := c.roundTrip(ctx, TypeClose, payload.Bytes())
	if err != nil {
		return err
	}
	if pkt.Type != TypeStatus {
		return result.ProtocolError("unexpected sftp response type %d to CLOSE", pkt.Type)
	}
	return decodeStatus(pkt)
}

// ReadResult is the outcome of one SSH_FXP_READ.
type ReadResult struct {
	Data []byte
	EOF  bool
}

// Read issues SSH_FXP_READ(handle, offset, length). An EOF status is
// not an error at this layer; it's reported via ReadResult.EOF.
func (c *Client) Read(ctx context.Context, handle []byte, offset uint64, length uint32) (*ReadResult, error) {
	var payload bytes.Buffer
	if err := codec.WriteXDROpaque(&payload, handle); err != nil {
		return nil, result.ProtocolError("encode handle: %v", err)
	}
	if err := codec.WriteXDRUint64(&payload, offset); err != nil {
		return nil, result.ProtocolError("encode offset: %v", err)
	}
	if err := codec.WriteXDRUint32(&payload, length); err != nil {
		return nil, result.ProtocolError("encode length: %v", err)
	}

	pkt, err := c.roundTrip(ctx, TypeRead, payload.Bytes())
	if err != nil {
		return nil, err
	}
	switch pkt.Type {
	case TypeData:
		r := bytes.NewReader(pkt.Payload)
		data, err := codec.DecodeXDROpaque(r)
		if err != nil {
			return nil, result.ProtocolError("decode read data: %v", err)
		}
		return &ReadResult{Data: data}, nil
	case TypeStatus:
		r := bytes.NewReader(pkt.Payload)
		code, err := codec.DecodeXDRUint32(r)
		if err != nil {
			return nil, result.ProtocolError("decode status code: %v", err)
		}
		if code == StatusEOF {
			return &ReadResult{EOF: true}, nil
		}
		msg, _ := codec.DecodeXDRString(r)
		return nil, StatusToError(code, msg)
	default:
		return nil, result.ProtocolError("unexpected sftp response type %d to READ", pkt.Type)
	}
}

// Download budget from spec §4.7.b: 32 KiB per READ, 4 MiB aggregate.
const (
	downloadChunkBytes = 32 << 10
	downloadMaxBytes   = 4 << 20
)

// DownloadResult is the outcome of a bounded aggregate download (spec
// §8 scenario 3).
type DownloadResult struct {
	Data      []byte
	Truncated bool
}

// Download loops Read over handle from offset 0 in downloadChunkBytes
// pieces until EOF or until downloadMaxBytes has been read, in which
// case Truncated is set regardless of whether the peer had more data.
func (c *Client) Download(ctx context.Context, handle []byte) (*DownloadResult, error) {
	var buf bytes.Buffer
	var offset uint64
	for {
		remaining := downloadMaxBytes - buf.Len()
		if remaining <= 0 {
			return &DownloadResult{Data: buf.Bytes(), Truncated: true}, nil
		}
		chunk := downloadChunkBytes
		if remaining < chunk {
			chunk = remaining
		}
		res, err := c.Read(ctx, handle, offset, uint32(chunk))
		if err != nil {
			return nil, err
		}
		if res.EOF {
			return &DownloadResult{Data: buf.Bytes()}, nil
		}
		buf.Write(res.Data)
		offset += uint64(len(res.Data))
	}
}

// Write issues SSH_FXP_WRITE(handle, offset, data).
func (c *Client) Write(ctx context.Context, handle []byte, offset uint64, data []byte) error {
	var payload bytes.Buffer
	if err := codec.WriteXDROpaque(&payload, handle); err != nil {
		return result.ProtocolError("encode handle: %v", err)
	}
	if err := codec.WriteXDRUint64(&payload, offset); err != nil {
		return result.ProtocolError("encode offset: %v", err)
	}
	if err := codec.WriteXDROpaque(&payload, data); err != nil {
		return result.ProtocolError("encode data: %v", err)
	}
	pkt, err := c.roundTrip(ctx, TypeWrite, payload.Bytes())
	if err != nil {
		return err
	}
	if pkt.Type != TypeStatus {
		return result.ProtocolError("unexpected sftp response type %d to WRITE", pkt.Type)
	}
	return decodeStatus(pkt)
}

// DirEntry is one SSH_FXP_READDIR result entry.
type DirEntry struct {
	FileName string
	LongName string
	Attrs    *Attrs
}

// ReadDir issues one SSH_FXP_READDIR round-trip; the caller repeats the
// call (same handle) until it returns StatusEOF, mirroring the
// protocol's per-batch semantics.
func (c *Client) ReadDir(ctx context.Context, handle []byte) ([]DirEntry, bool, error) {
	var payload bytes.Buffer
	if err := codec.WriteXDROpaque(&payload, handle); err != nil {
		return nil, false, result.ProtocolError("encode handle: %v", err)
	}
	pkt, err := c.roundTrip(ctx, TypeReadDir, payload.Bytes())
	if err != nil {
		return nil, false, err
	}
	switch pkt.Type {
	case TypeName:
		r := bytes.NewReader(pkt.Payload)
		count, err := codec.DecodeXDRUint32(r)
		if err != nil {
			return nil, false, result.ProtocolError("decode name count: %v", err)
		}
		entries := make([]DirEntry, 0, count)
		for i := uint32(0); i < count; i++ {
			filename, err := codec.DecodeXDRString(r)
			if err != nil {
				return nil, false, result.ProtocolError("decode filename: %v", err)
			}
			longname, err := codec.DecodeXDRString(r)
			if err != nil {
				return nil, false, result.ProtocolError("decode longname: %v", err)
			}
			attrs, err := DecodeAttrs(r)
			if err != nil {
				return nil, false, err
			}
			entries = append(entries, DirEntry{FileName: filename, LongName: longname, Attrs: attrs})
		}
		return entries, false, nil
	case TypeStatus:
		r := bytes.NewReader(pkt.Payload)
		code, err := codec.DecodeXDRUint32(r)
		if err != nil {
			return nil, false, result.ProtocolError("decode status code: %v", err)
		}
		if code == StatusEOF {
			return nil, true, nil
		}
		msg, _ := codec.DecodeXDRString(r)
		return nil, false, StatusToError(code, msg)
	default:
		return nil, false, result.ProtocolError("unexpected sftp response type %d to READDIR", pkt.Type)
	}
}

// Remove issues SSH_FXP_REMOVE(path).
func (c *Client) Remove(ctx context.Context, path string) error {
	var payload bytes.Buffer
	if err := codec.WriteXDRString(&payload, path); err != nil {
		return result.ProtocolError("encode path: %v", err)
	}
	pkt, err := c.roundTrip(ctx, TypeRemove, payload.Bytes())
	if err != nil {
		return err
	}
	return decodeStatus(pkt)
}

// Mkdir issues SSH_FXP_MKDIR(path) with no attribute overrides.
func (c *Client) Mkdir(ctx context.Context, path string) error {
	var payload bytes.Buffer
	if err := codec.WriteXDRString(&payload, path); err != nil {
		return result.ProtocolError("encode path: %v", err)
	}
	if err := EncodeAttrs(&payload, Attrs{}); err != nil {
		return result.ProtocolError("encode attrs: %v", err)
	}
	pkt, err := c.roundTrip(ctx, TypeMkdir, payload.Bytes())
	if err != nil {
		return err
	}
	return decodeStatus(pkt)
}

// Stat issues SSH_FXP_STAT(path).
func (c *Client) Stat(ctx context.Context, path string) (*Attrs, error) {
	var payload bytes.Buffer
	if err := codec.WriteXDRString(&payload, path); err != nil {
		return nil, result.ProtocolError("encode path: %v", err)
	}
	pkt, err := c.roundTrip(ctx, TypeStat, payload.Bytes())
	if err != nil {
		return nil, err
	}
	switch pkt.Type {
	case TypeAttrs:
		r := bytes.NewReader(pkt.Payload)
		return DecodeAttrs(r)
	case TypeStatus:
		return nil, decodeStatus(pkt)
	default:
		return nil, result.ProtocolError("unexpected sftp response type %d to STAT", pkt.Type)
	}
}

// Rename issues SSH_FXP_RENAME(oldPath, newPath).
func (c *Client) Rename(ctx context.Context, oldPath, newPath string) error {
	var payload bytes.Buffer
	if err := codec.WriteXDRString(&payload, oldPath); err != nil {
		return result.ProtocolError("encode old path: %v", err)
	}
	if err := codec.WriteXDRString(&payload, newPath); err != nil {
		return result.ProtocolError("encode new path: %v", err)
	}
	pkt, err := c.roundTrip(ctx, TypeRename, payload.Bytes())
	if err != nil {
		return err
	}
	return decodeStatus(pkt)
}
