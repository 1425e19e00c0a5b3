package adapter

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/pocc/portofcall-sub006/internal/codec"
	"github.com/pocc/portofcall-sub006/internal/protocol/sftp"
	"github.com/pocc/portofcall-sub006/internal/result"
)

// maxSFTPStringBytes is the SFTP string length cap from spec §6.
const maxSFTPStringBytes = 64 << 10

// maxSFTPChunkBytes bounds one WRITE request's payload (spec §6).
const maxSFTPChunkBytes = 32 << 10

type SFTPAuthParams struct {
	Username      string `json:"username" mapstructure:"username" validate:"required"`
	Password      string `json:"password" mapstructure:"password"`
	PrivateKeyPEM string `json:"private_key_pem" mapstructure:"private_key_pem"`
}

type sftpSessionParams struct {
	CommonParams  `mapstructure:",squash"`
	SFTPAuthParams `mapstructure:",squash"`
	Path          string `json:"path" mapstructure:"path"`
}

type sftpReadParams struct {
	CommonParams  `mapstructure:",squash"`
	SFTPAuthParams `mapstructure:",squash"`
	Handle        string `json:"handle_hex" mapstructure:"handle_hex" validate:"required"`
	Offset        uint64 `json:"offset" mapstructure:"offset"`
	Length        uint32 `json:"length" mapstructure:"length" validate:"required"`
}

type sftpDownloadParams struct {
	CommonParams  `mapstructure:",squash"`
	SFTPAuthParams `mapstructure:",squash"`
	Handle        string `json:"handle_hex" mapstructure:"handle_hex" validate:"required"`
}

// downloadPayload renders a sftp.DownloadResult as spec §8 scenario 3's
// {content, encoding, size, truncated} shape: valid UTF-8 is returned
// as-is, anything else falls back to base64 so arbitrary bytes survive
// the JSON envelope.
func downloadPayload(res *sftp.DownloadResult) map[string]any {
	encoding := "utf-8"
	content := string(res.Data)
	if !utf8.Valid(res.Data) {
		encoding = "base64"
		content = codec.Base64Encode(res.Data)
	}
	return map[string]any{
		"content":   content,
		"encoding":  encoding,
		"size":      len(res.Data),
		"truncated": res.Truncated,
	}
}

type sftpWriteParams struct {
	CommonParams  `mapstructure:",squash"`
	SFTPAuthParams `mapstructure:",squash"`
	Handle        string `json:"handle_hex" mapstructure:"handle_hex" validate:"required"`
	Offset        uint64 `json:"offset" mapstructure:"offset"`
	DataHex       string `json:"data_hex" mapstructure:"data_hex" validate:"required"`
}

type sftpPathParams struct {
	CommonParams  `mapstructure:",squash"`
	SFTPAuthParams `mapstructure:",squash"`
	Path          string `json:"path" mapstructure:"path" validate:"required,max=65536"`
}

type sftpRenameParams struct {
	CommonParams  `mapstructure:",squash"`
	SFTPAuthParams `mapstructure:",squash"`
	OldPath       string `json:"old_path" mapstructure:"old_path" validate:"required,max=65536"`
	NewPath       string `json:"new_path" mapstructure:"new_path" validate:"required,max=65536"`
}

func (a SFTPAuthParams) creds() sftp.Credentials {
	return sftp.Credentials{
		User:          a.Username,
		Password:      a.Password,
		PrivateKeyPEM: []byte(a.PrivateKeyPEM),
	}
}

func withSFTP(ctx context.Context, p CommonParams, creds sftp.Credentials, op string, fn func(ctx context.Context, c *sftp.Client) result.Envelope) result.Envelope {
	start := time.Now()
	ctx, cancel := dial(ctx, p)
	defer cancel()
	sess, err := sftp.Dial(ctx, p.Host, p.Port, creds)
	if err != nil {
		return result.Fail("sftp", op, start, err)
	}
	defer sess.Close()

	c := sftp.NewClient(sess.Channel)
	if _, err := c.Handshake(ctx); err != nil {
		return result.Fail("sftp", op, start, err)
	}
	return fn(ctx, c)
}

func registerSFTP(r *Registry) {
	r.register(&Operation{Protocol: "sftp", Name: "open", NewParams: func() any { return &sftpSessionParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p sftpSessionParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("sftp", "open", start, err)
		}
		if len(p.Path) > maxSFTPStringBytes {
			return result.Fail("sftp", "open", start, result.InvalidArgument("path exceeds %d bytes", maxSFTPStringBytes))
		}
		return withSFTP(ctx, p.CommonParams, p.creds(), "open", func(ctx context.Context, c *sftp.Client) result.Envelope {
			handle, err := c.Open(ctx, p.Path, 0)
			if err != nil {
				return result.Fail("sftp", "open", start, err)
			}
			defer c.Close(ctx, handle)
			return result.Ok("sftp", "open", start, map[string]any{"handle": codec.HexEncode(handle)})
		})
	}})

	r.register(&Operation{Protocol: "sftp", Name: "read", NewParams: func() any { return &sftpReadParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p sftpReadParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("sftp", "read", start, err)
		}
		handle, err := codec.HexDecode(p.Handle)
		if err != nil {
			return result.Fail("sftp", "read", start, result.InvalidArgument("invalid handle_hex: %v", err))
		}
		return withSFTP(ctx, p.CommonParams, p.creds(), "read", func(ctx context.Context, c *sftp.Client) result.Envelope {
			res, err := c.Read(ctx, handle, p.Offset, p.Length)
			if err != nil {
				return result.Fail("sftp", "read", start, err)
			}
			return result.Ok("sftp", "read", start, res)
		})
	}})

	r.register(&Operation{Protocol: "sftp", Name: "download", NewParams: func() any { return &sftpDownloadParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p sftpDownloadParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("sftp", "download", start, err)
		}
		handle, err := codec.HexDecode(p.Handle)
		if err != nil {
			return result.Fail("sftp", "download", start, result.InvalidArgument("invalid handle_hex: %v", err))
		}
		return withSFTP(ctx, p.CommonParams, p.creds(), "download", func(ctx context.Context, c *sftp.Client) result.Envelope {
			res, err := c.Download(ctx, handle)
			if err != nil {
				return result.Fail("sftp", "download", start, err)
			}
			return result.Ok("sftp", "download", start, downloadPayload(res))
		})
	}})

	r.register(&Operation{Protocol: "sftp", Name: "write", NewParams: func() any { return &sftpWriteParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p sftpWriteParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("sftp", "write", start, err)
		}
		handle, err := codec.HexDecode(p.Handle)
		if err != nil {
			return result.Fail("sftp", "write", start, result.InvalidArgument("invalid handle_hex: %v", err))
		}
		data, err := codec.HexDecode(p.DataHex)
		if err != nil {
			return result.Fail("sftp", "write", start, result.InvalidArgument("invalid data_hex: %v", err))
		}
		if len(data) > maxSFTPChunkBytes {
			return result.Fail("sftp", "write", start, result.InvalidArgument("write chunk exceeds %d bytes", maxSFTPChunkBytes))
		}
		return withSFTP(ctx, p.CommonParams, p.creds(), "write", func(ctx context.Context, c *sftp.Client) result.Envelope {
			if err := c.Write(ctx, handle, p.Offset, data); err != nil {
				return result.Fail("sftp", "write", start, err)
			}
			return result.Ok("sftp", "write", start, nil)
		})
	}})

	r.register(&Operation{Protocol: "sftp", Name: "readdir", NewParams: func() any { return &sftpSessionParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p sftpSessionParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("sftp", "readdir", start, err)
		}
		return withSFTP(ctx, p.CommonParams, p.creds(), "readdir", func(ctx context.Context, c *sftp.Client) result.Envelope {
			handle, err := c.OpenDir(ctx, p.Path)
			if err != nil {
				return result.Fail("sftp", "readdir", start, err)
			}
			defer c.Close(ctx, handle)

			var entries []sftp.DirEntry
			for {
				batch, done, err := c.ReadDir(ctx, handle)
				if err != nil {
					return result.Fail("sftp", "readdir", start, err)
				}
				entries = append(entries, batch...)
				if done {
					break
				}
			}
			return result.Ok("sftp", "readdir", start, entries)
		})
	}})

	r.register(&Operation{Protocol: "sftp", Name: "stat", NewParams: func() any { return &sftpPathParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p sftpPathParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("sftp", "stat", start, err)
		}
		return withSFTP(ctx, p.CommonParams, p.creds(), "stat", func(ctx context.Context, c *sftp.Client) result.Envelope {
			attrs, err := c.Stat(ctx, p.Path)
			if err != nil {
				return result.Fail("sftp", "stat", start, err)
			}
			return result.Ok("sftp", "stat", start, attrs)
		})
	}})

	r.register(&Operation{Protocol: "sftp", Name: "remove", NewParams: func() any { return &sftpPathParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p sftpPathParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("sftp", "remove", start, err)
		}
		return withSFTP(ctx, p.CommonParams, p.creds(), "remove", func(ctx context.Context, c *sftp.Client) result.Envelope {
			if err := c.Remove(ctx, p.Path); err != nil {
				return result.Fail("sftp", "remove", start, err)
			}
			return result.Ok("sftp", "remove", start, nil)
		})
	}})

	r.register(&Operation{Protocol: "sftp", Name: "mkdir", NewParams: func() any { return &sftpPathParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p sftpPathParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("sftp", "mkdir", start, err)
		}
		return withSFTP(ctx, p.CommonParams, p.creds(), "mkdir", func(ctx context.Context, c *sftp.Client) result.Envelope {
			if err := c.Mkdir(ctx, p.Path); err != nil {
				return result.Fail("sftp", "mkdir", start, err)
			}
			return result.Ok("sftp", "mkdir", start, nil)
		})
	}})

	r.register(&Operation{Protocol: "sftp", Name: "rename", NewParams: func() any { return &sftpRenameParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p sftpRenameParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("sftp", "rename", start, err)
		}
		return withSFTP(ctx, p.CommonParams, p.creds(), "rename", func(ctx context.Context, c *sftp.Client) result.Envelope {
			if err := c.Rename(ctx, p.OldPath, p.NewPath); err != nil {
				return result.Fail("sftp", "rename", start, err)
			}
			return result.Ok("sftp", "rename", start, nil)
		})
	}})
}
