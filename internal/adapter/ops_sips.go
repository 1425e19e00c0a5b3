package adapter

import (
	"context"
	"time"

	"github.com/pocc/portofcall-sub006/internal/protocol/sips"
	"github.com/pocc/portofcall-sub006/internal/result"
)

type sipsRegisterParams struct {
	CommonParams `mapstructure:",squash"`
	URI          string `json:"uri" mapstructure:"uri" validate:"required"`
	AOR          string `json:"aor" mapstructure:"aor" validate:"required"`
	Username     string `json:"username" mapstructure:"username" validate:"required"`
	Password     string `json:"password" mapstructure:"password"`
}

type sipsInviteParams struct {
	CommonParams `mapstructure:",squash"`
	URI          string `json:"uri" mapstructure:"uri" validate:"required"`
	AOR          string `json:"aor" mapstructure:"aor" validate:"required"`
}

func registerSIPS(r *Registry) {
	r.register(&Operation{Protocol: "sips", Name: "register", NewParams: func() any { return &sipsRegisterParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p sipsRegisterParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("sips", "register", start, err)
		}
		ctx, cancel := dial(ctx, p.CommonParams)
		defer cancel()
		tc, conn, release, err := connectTLS(ctx, p.Host, p.Port)
		if err != nil {
			return result.Fail("sips", "register", start, err)
		}
		defer tc.Close()
		defer release()

		res, err := sips.NewClient(conn).Register(ctx, p.URI, p.AOR, p.Username, p.Password)
		if err != nil {
			return result.Fail("sips", "register", start, err)
		}
		return result.Ok("sips", "register", start, res)
	}})

	r.register(&Operation{Protocol: "sips", Name: "invite", NewParams: func() any { return &sipsInviteParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p sipsInviteParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("sips", "invite", start, err)
		}
		ctx, cancel := dial(ctx, p.CommonParams)
		defer cancel()
		tc, conn, release, err := connectTLS(ctx, p.Host, p.Port)
		if err != nil {
			return result.Fail("sips", "invite", start, err)
		}
		defer tc.Close()
		defer release()

		res, err := sips.NewClient(conn).Invite(ctx, p.URI, p.AOR)
		if err != nil {
			return result.Fail("sips", "invite", start, err)
		}
		return result.Ok("sips", "invite", start, res)
	}})
}
