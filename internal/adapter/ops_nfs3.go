package adapter

import (
	"context"
	"time"

	"github.com/pocc/portofcall-sub006/internal/codec"
	"github.com/pocc/portofcall-sub006/internal/protocol/nfs3"
	"github.com/pocc/portofcall-sub006/internal/result"
)

// maxHandleHexLen is the NFS file-handle length cap from spec §6 (64
// bytes), expressed in hex-string characters since handles cross this
// boundary as hex over the handler interface.
const maxHandleHexLen = 128

// maxWritePayloadBytes is the NFS WRITE cap from spec §6.
const maxWritePayloadBytes = 64 << 10

func decodeHandle(hexHandle string) ([]byte, error) {
	h, err := codec.HexDecode(hexHandle)
	if err != nil {
		return nil, result.InvalidArgument("invalid file handle: %v", err)
	}
	if len(h) > 64 {
		return nil, result.InvalidArgument("file handle exceeds 64 bytes: %d", len(h))
	}
	return h, nil
}

type nfs3HandleParams struct {
	CommonParams `mapstructure:",squash"`
	Handle       string `json:"handle" mapstructure:"handle" validate:"required,max=128"`
}

type nfs3LookupParams struct {
	CommonParams `mapstructure:",squash"`
	DirHandle    string `json:"dir_handle" mapstructure:"dir_handle" validate:"required,max=128"`
	Name         string `json:"name" mapstructure:"name" validate:"required"`
}

type nfs3ReadParams struct {
	CommonParams `mapstructure:",squash"`
	Handle       string `json:"handle" mapstructure:"handle" validate:"required,max=128"`
	Offset       uint64 `json:"offset" mapstructure:"offset"`
	Count        uint32 `json:"count" mapstructure:"count" validate:"required"`
}

type nfs3WriteParams struct {
	CommonParams `mapstructure:",squash"`
	Handle       string `json:"handle" mapstructure:"handle" validate:"required,max=128"`
	Offset       uint64 `json:"offset" mapstructure:"offset"`
	DataHex      string `json:"data_hex" mapstructure:"data_hex" validate:"required"`
}

type nfs3DirOpParams struct {
	CommonParams `mapstructure:",squash"`
	DirHandle    string `json:"dir_handle" mapstructure:"dir_handle" validate:"required,max=128"`
	Name         string `json:"name" mapstructure:"name" validate:"required"`
}

type nfs3RenameParams struct {
	CommonParams `mapstructure:",squash"`
	FromDir      string `json:"from_dir_handle" mapstructure:"from_dir_handle" validate:"required,max=128"`
	FromName     string `json:"from_name" mapstructure:"from_name" validate:"required"`
	ToDir        string `json:"to_dir_handle" mapstructure:"to_dir_handle" validate:"required,max=128"`
	ToName       string `json:"to_name" mapstructure:"to_name" validate:"required"`
}

type nfs3ReaddirParams struct {
	CommonParams `mapstructure:",squash"`
	Handle       string `json:"handle" mapstructure:"handle" validate:"required,max=128"`
	Cookie       uint64 `json:"cookie" mapstructure:"cookie"`
	CookieVerf   string `json:"cookie_verf" mapstructure:"cookie_verf"`
	Count        uint32 `json:"count" mapstructure:"count" validate:"required"`
}

type nfs3ProbeParams struct {
	CommonParams `mapstructure:",squash"`
}

// versionProbePayload renders one nfs3.VersionProbe as spec §8 scenario
// 1's {supported, mismatch:{low,high}} shape, omitting mismatch when
// the version was accepted or the server gave no mismatch bounds.
func versionProbePayload(p nfs3.VersionProbe) map[string]any {
	out := map[string]any{"supported": p.Supported}
	if p.Mismatch != nil {
		out["mismatch"] = map[string]any{"low": p.Mismatch.Low, "high": p.Mismatch.High}
	}
	return out
}

func withNFS3(ctx context.Context, p CommonParams, fn func(ctx context.Context, c *nfs3.Client) result.Envelope, op string) result.Envelope {
	start := time.Now()
	ctx, cancel := dial(ctx, p)
	defer cancel()
	tc, conn, release, err := connectPlain(ctx, p.Host, p.Port)
	if err != nil {
		return result.Fail("nfs3", op, start, err)
	}
	defer tc.Close()
	defer release()
	return fn(ctx, nfs3.NewClient(conn))
}

func registerNFS3(r *Registry) {
	r.register(&Operation{Protocol: "nfs3", Name: "getattr", NewParams: func() any { return &nfs3HandleParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p nfs3HandleParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("nfs3", "getattr", start, err)
		}
		handle, err := decodeHandle(p.Handle)
		if err != nil {
			return result.Fail("nfs3", "getattr", start, err)
		}
		return withNFS3(ctx, p.CommonParams, func(ctx context.Context, c *nfs3.Client) result.Envelope {
			attr, err := c.GetAttr(ctx, handle)
			if err != nil {
				return result.Fail("nfs3", "getattr", start, err)
			}
			return result.Ok("nfs3", "getattr", start, attr)
		}, "getattr")
	}})

	r.register(&Operation{Protocol: "nfs3", Name: "lookup", NewParams: func() any { return &nfs3LookupParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p nfs3LookupParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("nfs3", "lookup", start, err)
		}
		dirHandle, err := decodeHandle(p.DirHandle)
		if err != nil {
			return result.Fail("nfs3", "lookup", start, err)
		}
		return withNFS3(ctx, p.CommonParams, func(ctx context.Context, c *nfs3.Client) result.Envelope {
			res, err := c.Lookup(ctx, dirHandle, p.Name)
			if err != nil {
				return result.Fail("nfs3", "lookup", start, err)
			}
			return result.Ok("nfs3", "lookup", start, res)
		}, "lookup")
	}})

	r.register(&Operation{Protocol: "nfs3", Name: "read", NewParams: func() any { return &nfs3ReadParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p nfs3ReadParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("nfs3", "read", start, err)
		}
		handle, err := decodeHandle(p.Handle)
		if err != nil {
			return result.Fail("nfs3", "read", start, err)
		}
		return withNFS3(ctx, p.CommonParams, func(ctx context.Context, c *nfs3.Client) result.Envelope {
			res, err := c.Read(ctx, handle, p.Offset, p.Count)
			if err != nil {
				return result.Fail("nfs3", "read", start, err)
			}
			return result.Ok("nfs3", "read", start, res)
		}, "read")
	}})

	r.register(&Operation{Protocol: "nfs3", Name: "write", NewParams: func() any { return &nfs3WriteParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p nfs3WriteParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("nfs3", "write", start, err)
		}
		handle, err := decodeHandle(p.Handle)
		if err != nil {
			return result.Fail("nfs3", "write", start, err)
		}
		data, err := codec.HexDecode(p.DataHex)
		if err != nil {
			return result.Fail("nfs3", "write", start, result.InvalidArgument("invalid data_hex: %v", err))
		}
		if len(data) > maxWritePayloadBytes {
			return result.Fail("nfs3", "write", start, result.InvalidArgument("write payload exceeds %d bytes", maxWritePayloadBytes))
		}
		return withNFS3(ctx, p.CommonParams, func(ctx context.Context, c *nfs3.Client) result.Envelope {
			n, err := c.Write(ctx, handle, p.Offset, data)
			if err != nil {
				return result.Fail("nfs3", "write", start, err)
			}
			return result.Ok("nfs3", "write", start, map[string]any{"bytesWritten": n})
		}, "write")
	}})

	r.register(&Operation{Protocol: "nfs3", Name: "create", NewParams: func() any { return &nfs3DirOpParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p nfs3DirOpParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("nfs3", "create", start, err)
		}
		dirHandle, err := decodeHandle(p.DirHandle)
		if err != nil {
			return result.Fail("nfs3", "create", start, err)
		}
		return withNFS3(ctx, p.CommonParams, func(ctx context.Context, c *nfs3.Client) result.Envelope {
			handle, err := c.Create(ctx, dirHandle, p.Name)
			if err != nil {
				return result.Fail("nfs3", "create", start, err)
			}
			return result.Ok("nfs3", "create", start, map[string]any{"handle": codec.HexEncode(handle)})
		}, "create")
	}})

	r.register(&Operation{Protocol: "nfs3", Name: "mkdir", NewParams: func() any { return &nfs3DirOpParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p nfs3DirOpParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("nfs3", "mkdir", start, err)
		}
		dirHandle, err := decodeHandle(p.DirHandle)
		if err != nil {
			return result.Fail("nfs3", "mkdir", start, err)
		}
		return withNFS3(ctx, p.CommonParams, func(ctx context.Context, c *nfs3.Client) result.Envelope {
			handle, err := c.Mkdir(ctx, dirHandle, p.Name)
			if err != nil {
				return result.Fail("nfs3", "mkdir", start, err)
			}
			return result.Ok("nfs3", "mkdir", start, map[string]any{"handle": codec.HexEncode(handle)})
		}, "mkdir")
	}})

	r.register(&Operation{Protocol: "nfs3", Name: "remove", NewParams: func() any { return &nfs3DirOpParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p nfs3DirOpParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("nfs3", "remove", start, err)
		}
		dirHandle, err := decodeHandle(p.DirHandle)
		if err != nil {
			return result.Fail("nfs3", "remove", start, err)
		}
		return withNFS3(ctx, p.CommonParams, func(ctx context.Context, c *nfs3.Client) result.Envelope {
			if err := c.Remove(ctx, dirHandle, p.Name); err != nil {
				return result.Fail("nfs3", "remove", start, err)
			}
			return result.Ok("nfs3", "remove", start, nil)
		}, "remove")
	}})

	r.register(&Operation{Protocol: "nfs3", Name: "rmdir", NewParams: func() any { return &nfs3DirOpParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p nfs3DirOpParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("nfs3", "rmdir", start, err)
		}
		dirHandle, err := decodeHandle(p.DirHandle)
		if err != nil {
			return result.Fail("nfs3", "rmdir", start, err)
		}
		return withNFS3(ctx, p.CommonParams, func(ctx context.Context, c *nfs3.Client) result.Envelope {
			if err := c.Rmdir(ctx, dirHandle, p.Name); err != nil {
				return result.Fail("nfs3", "rmdir", start, err)
			}
			return result.Ok("nfs3", "rmdir", start, nil)
		}, "rmdir")
	}})

	r.register(&Operation{Protocol: "nfs3", Name: "rename", NewParams: func() any { return &nfs3RenameParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p nfs3RenameParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("nfs3", "rename", start, err)
		}
		fromDir, err := decodeHandle(p.FromDir)
		if err != nil {
			return result.Fail("nfs3", "rename", start, err)
		}
		toDir, err := decodeHandle(p.ToDir)
		if err != nil {
			return result.Fail("nfs3", "rename", start, err)
		}
		return withNFS3(ctx, p.CommonParams, func(ctx context.Context, c *nfs3.Client) result.Envelope {
			if err := c.Rename(ctx, fromDir, p.FromName, toDir, p.ToName); err != nil {
				return result.Fail("nfs3", "rename", start, err)
			}
			return result.Ok("nfs3", "rename", start, nil)
		}, "rename")
	}})

	r.register(&Operation{Protocol: "nfs3", Name: "readdir", NewParams: func() any { return &nfs3ReaddirParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p nfs3ReaddirParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("nfs3", "readdir", start, err)
		}
		handle, err := decodeHandle(p.Handle)
		if err != nil {
			return result.Fail("nfs3", "readdir", start, err)
		}
		var verf [8]byte
		if p.CookieVerf != "" {
			v, err := codec.HexDecode(p.CookieVerf)
			if err != nil || len(v) != 8 {
				return result.Fail("nfs3", "readdir", start, result.InvalidArgument("cookie_verf must be 8 raw bytes hex-encoded"))
			}
			copy(verf[:], v)
		}
		return withNFS3(ctx, p.CommonParams, func(ctx context.Context, c *nfs3.Client) result.Envelope {
			res, err := c.Readdir(ctx, handle, p.Cookie, verf, p.Count)
			if err != nil {
				return result.Fail("nfs3", "readdir", start, err)
			}
			return result.Ok("nfs3", "readdir", start, res)
		}, "readdir")
	}})

	r.register(&Operation{Protocol: "nfs3", Name: "probe", NewParams: func() any { return &nfs3ProbeParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p nfs3ProbeParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("nfs3", "probe", start, err)
		}
		return withNFS3(ctx, p.CommonParams, func(ctx context.Context, c *nfs3.Client) result.Envelope {
			res, err := c.ProbeVersions(ctx)
			if err != nil {
				return result.Fail("nfs3", "probe", start, err)
			}
			return result.Ok("nfs3", "probe", start, map[string]any{
				"versions": map[string]any{
					"v2": versionProbePayload(res.V2),
					"v3": versionProbePayload(res.V3),
					"v4": versionProbePayload(res.V4),
				},
			})
		}, "probe")
	}})
}
