package adapter

import (
	"testing"

	"github.com/pocc/portofcall-sub006/internal/protocol/sftp"
	"github.com/stretchr/testify/assert"
)

// TestDownloadPayloadUTF8 reproduces spec §8 scenario 3's "hello" case.
func TestDownloadPayloadUTF8(t *testing.T) {
	payload := downloadPayload(&sftp.DownloadResult{Data: []byte("hello")})

	assert.Equal(t, "hello", payload["content"])
	assert.Equal(t, "utf-8", payload["encoding"])
	assert.Equal(t, 5, payload["size"])
	assert.Equal(t, false, payload["truncated"])
}

// TestDownloadPayloadBase64Fallback reproduces spec §8 scenario 3's
// non-UTF-8 case: {0x00, 0xFF, 0x00} is not valid UTF-8 (0xFF is never
// a valid lead byte), so it falls back to base64.
func TestDownloadPayloadBase64Fallback(t *testing.T) {
	payload := downloadPayload(&sftp.DownloadResult{Data: []byte{0x00, 0xFF, 0x00}})

	assert.Equal(t, "base64", payload["encoding"])
	assert.Equal(t, "AP8A", payload["content"])
	assert.Equal(t, 3, payload["size"])
}

func TestDownloadPayloadTruncated(t *testing.T) {
	payload := downloadPayload(&sftp.DownloadResult{Data: []byte("partial"), Truncated: true})
	assert.Equal(t, true, payload["truncated"])
}
