package adapter

import (
	"context"
	"time"

	"github.com/pocc/portofcall-sub006/internal/protocol/mount"
	"github.com/pocc/portofcall-sub006/internal/result"
)

type mountMntParams struct {
	CommonParams `mapstructure:",squash"`
	DirPath      string `json:"dir_path" mapstructure:"dir_path" validate:"required"`
}

type mountExportParams struct {
	CommonParams `mapstructure:",squash"`
}

func registerMount(r *Registry) {
	r.register(&Operation{
		Protocol:  "mount",
		Name:      "mnt",
		NewParams: func() any { return &mountMntParams{} },
		Run: func(ctx context.Context, raw map[string]any) result.Envelope {
			start := time.Now()
			var p mountMntParams
			if err := DecodeAndValidate(raw, &p); err != nil {
				return result.Fail("mount", "mnt", start, err)
			}
			ctx, cancel := dial(ctx, p.CommonParams)
			defer cancel()
			tc, conn, release, err := connectPlain(ctx, p.Host, p.Port)
			if err != nil {
				return result.Fail("mount", "mnt", start, err)
			}
			defer tc.Close()
			defer release()

			res, err := mount.NewClient(conn).Mnt(ctx, p.DirPath)
			if err != nil {
				return result.Fail("mount", "mnt", start, err)
			}
			return result.Ok("mount", "mnt", start, res)
		},
	})

	r.register(&Operation{
		Protocol:  "mount",
		Name:      "export",
		NewParams: func() any { return &mountExportParams{} },
		Run: func(ctx context.Context, raw map[string]any) result.Envelope {
			start := time.Now()
			var p mountExportParams
			if err := DecodeAndValidate(raw, &p); err != nil {
				return result.Fail("mount", "export", start, err)
			}
			ctx, cancel := dial(ctx, p.CommonParams)
			defer cancel()
			tc, conn, release, err := connectPlain(ctx, p.Host, p.Port)
			if err != nil {
				return result.Fail("mount", "export", start, err)
			}
			defer tc.Close()
			defer release()

			exports, err := mount.NewClient(conn).Export(ctx)
			if err != nil {
				return result.Fail("mount", "export", start, err)
			}
			return result.Ok("mount", "export", start, exports)
		},
	})
}
