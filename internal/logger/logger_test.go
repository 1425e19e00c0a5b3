package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormatEmitsParsableLines(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetFormat("json")
	SetLevel("DEBUG")
	defer func() {
		SetOutput(os.Stderr)
		SetFormat("text")
	}()

	Info("hello", "protocol", "nfs3", "op", "getattr")

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, "hello", parsed["msg"])
	assert.Equal(t, "nfs3", parsed["protocol"])
}

func TestLevelFiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetFormat("json")
	SetLevel("ERROR")
	defer func() {
		SetOutput(os.Stderr)
		SetLevel("INFO")
	}()

	Info("should not appear")
	assert.Empty(t, buf.String())

	Error("should appear")
	assert.NotEmpty(t, buf.String())
}

func TestInvalidLevelIgnored(t *testing.T) {
	SetLevel("INFO")
	SetLevel("NOT-A-LEVEL")
	assert.Equal(t, int32(LevelInfo), currentLevel.Load())
}
