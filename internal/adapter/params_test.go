package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAndValidateRejectsOutOfRangePort(t *testing.T) {
	var p zookeeperSendParams
	err := DecodeAndValidate(map[string]any{
		"host":    "127.0.0.1",
		"port":    70000,
		"command": "ruok",
	}, &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InvalidArgument")
}

func TestDecodeAndValidateRejectsUnknownField(t *testing.T) {
	var p zookeeperSendParams
	err := DecodeAndValidate(map[string]any{
		"host":        "127.0.0.1",
		"port":        2181,
		"command":     "ruok",
		"bogus_field": "x",
	}, &p)
	require.Error(t, err)
}

func TestDecodeAndValidateAcceptsWellFormedParams(t *testing.T) {
	var p zookeeperSendParams
	err := DecodeAndValidate(map[string]any{
		"host":    "127.0.0.1",
		"port":    2181,
		"command": "ruok",
	}, &p)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", p.Host)
	assert.EqualValues(t, 2181, p.Port)
	assert.Equal(t, "ruok", p.Command)
}

func TestDeviceNameValidationTagRejectsTraversal(t *testing.T) {
	type params struct {
		Name string `validate:"devicename"`
	}
	err := Validate(&params{Name: "../etc/passwd"})
	require.Error(t, err)
}

func TestDeviceNameValidationTagAcceptsWellFormedName(t *testing.T) {
	type params struct {
		Name string `validate:"devicename"`
	}
	require.NoError(t, Validate(&params{Name: "pixma:04A91234_5678"}))
}
