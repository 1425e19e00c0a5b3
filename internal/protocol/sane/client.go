// Package sane implements the SANE network protocol's two opening RPCs
// (spec §4.8): SANE_NET_INIT (version negotiation) and
// SANE_NET_GET_DEVICES (device enumeration). Wire values are big-endian
// 32-bit words, the same shape internal/codec's XDR helpers already
// decode for the ONC-RPC family; only the NUL-terminated counted
// string (SANE's own convention, distinct from XDR's padded string) is
// hand-rolled here.
package sane

import (
	"bytes"
	"context"
	"net"
	"strings"

	"github.com/pocc/portofcall-sub006/internal/codec"
	"github.com/pocc/portofcall-sub006/internal/deadline"
	"github.com/pocc/portofcall-sub006/internal/result"
)

// ProcedureInit and ProcedureGetDevices are the only two SANE_NET_*
// procedure numbers this module issues.
const (
	ProcedureInit       uint32 = 1
	ProcedureGetDevices uint32 = 2

	protocolVersionMajor uint32 = 1
	protocolVersionMinor uint32 = 0
	versionCode                 = protocolVersionMajor<<24 | protocolVersionMinor<<16
)

// Client drives one SANE_NET session over conn.
type Client struct {
	conn net.Conn
}

func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn}
}

func (c *Client) applyDeadline(ctx context.Context) error {
	if ctx.Err() != nil {
		return result.Timeout("context expired before sane call: %v", ctx.Err())
	}
	if dl, ok := deadline.Deadline(ctx); ok {
		_ = c.conn.SetDeadline(dl)
	}
	return nil
}

// writeNULString writes a SANE counted string: a 4-byte big-endian
// length (including the terminator) followed by the bytes and a NUL.
func writeNULString(buf *bytes.Buffer, s string) error {
	if err := codec.WriteXDRUint32(buf, uint32(len(s))+1); err != nil {
		return err
	}
	buf.WriteString(s)
	return buf.WriteByte(0)
}

// readNULString reads the inverse of writeNULString.
func readNULString(conn net.Conn) (string, error) {
	n, err := codec.DecodeXDRUint32(conn)
	if err != nil {
		return "", result.Network("read sane string length: %v", err)
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := readFull(conn, buf); err != nil {
		return "", result.Network("read sane string: %v", err)
	}
	return strings.TrimRight(string(buf), "\x00"), nil
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Init negotiates the protocol version and identifies the calling
// application, returning the server's negotiated version code.
func (c *Client) Init(ctx context.Context, callerName string) (serverVersion uint32, err error) {
	if err := c.applyDeadline(ctx); err != nil {
		return 0, err
	}
	var buf bytes.Buffer
	if err := codec.WriteXDRUint32(&buf, ProcedureInit); err != nil {
		return 0, result.InvalidArgument("encode sane init: %v", err)
	}
	if err := codec.WriteXDRUint32(&buf, versionCode); err != nil {
		return 0, result.InvalidArgument("encode sane init: %v", err)
	}
	if err := writeNULString(&buf, callerName); err != nil {
		return 0, result.InvalidArgument("encode sane init: %v", err)
	}
	if _, err := c.conn.Write(buf.Bytes()); err != nil {
		return 0, result.Network("write sane init: %v", err)
	}

	version, err := codec.DecodeXDRUint32(c.conn)
	if err != nil {
		return 0, result.Network("read sane init version: %v", err)
	}
	if _, err := codec.DecodeXDRUint32(c.conn); err != nil { // status
		return 0, result.Network("read sane init status: %v", err)
	}
	return version, nil
}

// Device is one SANE_NET_GET_DEVICES entry.
type Device struct {
	Name   string
	Vendor string
	Model  string
	Type   string
}

// GetDevices requests the device list, validating every returned
// device name against spec §6's SANE rules before returning.
func (c *Client) GetDevices(ctx context.Context) ([]Device, error) {
	if err := c.applyDeadline(ctx); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := codec.WriteXDRUint32(&buf, ProcedureGetDevices); err != nil {
		return nil, result.InvalidArgument("encode sane get_devices: %v", err)
	}
	if _, err := c.conn.Write(buf.Bytes()); err != nil {
		return nil, result.Network("write sane get_devices: %v", err)
	}

	if _, err := codec.DecodeXDRUint32(c.conn); err != nil { // status
		return nil, result.Network("read sane get_devices status: %v", err)
	}
	count, err := codec.DecodeXDRUint32(c.conn)
	if err != nil {
		return nil, result.Network("read sane device count: %v", err)
	}

	devices := make([]Device, 0, count)
	for i := uint32(0); i < count; i++ {
		name, err := readNULString(c.conn)
		if err != nil {
			return nil, err
		}
		vendor, err := readNULString(c.conn)
		if err != nil {
			return nil, err
		}
		model, err := readNULString(c.conn)
		if err != nil {
			return nil, err
		}
		typ, err := readNULString(c.conn)
		if err != nil {
			return nil, err
		}
		if err := ValidateDeviceName(name); err != nil {
			return nil, err
		}
		devices = append(devices, Device{Name: name, Vendor: vendor, Model: model, Type: typ})
	}
	return devices, nil
}

// ValidateDeviceName enforces spec §6's SANE device-name rejection
// rules: no NUL byte, no "..", no leading "/" or "\", not exactly ".",
// and at most 255 bytes.
func ValidateDeviceName(name string) error {
	switch {
	case len(name) == 0:
		return result.InvalidArgument("sane device name is empty")
	case len(name) > 255:
		return result.InvalidArgument("sane device name exceeds 255 bytes: %q", name)
	case strings.ContainsRune(name, 0):
		return result.InvalidArgument("sane device name contains a NUL byte")
	case strings.Contains(name, ".."):
		return result.InvalidArgument("sane device name contains '..': %q", name)
	case strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`):
		return result.InvalidArgument("sane device name has a leading path separator: %q", name)
	case name == ".":
		return result.InvalidArgument("sane device name is exactly '.'")
	}
	return nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if err := c.conn.Close(); err != nil {
		return result.Network("close sane connection: %v", err)
	}
	return nil
}
