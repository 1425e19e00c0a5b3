package sane

import (
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/pocc/portofcall-sub006/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitNegotiatesVersion(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		buf := make([]byte, 64)
		_, _ = server.Read(buf) // procedure + version + caller name
		var reply bytes.Buffer
		_ = codec.WriteXDRUint32(&reply, versionCode)
		_ = codec.WriteXDRUint32(&reply, 0) // status = SANE_STATUS_GOOD
		_, _ = server.Write(reply.Bytes())
	}()

	c := NewClient(client)
	version, err := c.Init(context.Background(), "portofcall")
	require.NoError(t, err)
	assert.EqualValues(t, versionCode, version)
}

func TestGetDevicesParsesEntriesAndValidatesNames(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		buf := make([]byte, 16)
		_, _ = server.Read(buf) // procedure number

		var reply bytes.Buffer
		_ = codec.WriteXDRUint32(&reply, 0) // status
		_ = codec.WriteXDRUint32(&reply, 1) // one device
		_ = writeNULString(&reply, "pixma:04A91234_5678")
		_ = writeNULString(&reply, "Canon")
		_ = writeNULString(&reply, "PIXMA MG3600")
		_ = writeNULString(&reply, "flatbed scanner")
		_, _ = server.Write(reply.Bytes())
	}()

	c := NewClient(client)
	devices, err := c.GetDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "pixma:04A91234_5678", devices[0].Name)
	assert.Equal(t, "Canon", devices[0].Vendor)
}

func TestValidateDeviceNameRules(t *testing.T) {
	require.NoError(t, ValidateDeviceName("pixma:04A91234_5678"))
	assert.Error(t, ValidateDeviceName(""))
	assert.Error(t, ValidateDeviceName("."))
	assert.Error(t, ValidateDeviceName("../etc/passwd"))
	assert.Error(t, ValidateDeviceName("/etc/passwd"))
	assert.Error(t, ValidateDeviceName(`\windows\system32`))
	assert.Error(t, ValidateDeviceName("bad\x00name"))
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	assert.Error(t, ValidateDeviceName(string(long)))
}
