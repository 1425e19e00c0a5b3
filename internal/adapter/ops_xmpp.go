package adapter

import (
	"context"
	"time"

	"github.com/pocc/portofcall-sub006/internal/protocol/xmpp"
	"github.com/pocc/portofcall-sub006/internal/result"
)

type xmppSessionParams struct {
	CommonParams `mapstructure:",squash"`
	Username     string `json:"username" mapstructure:"username" validate:"required"`
	Password     string `json:"password" mapstructure:"password"`
	Message      string `json:"message" mapstructure:"message"`
	MessageTo    string `json:"message_to" mapstructure:"message_to"`
}

func registerXMPP(r *Registry) {
	r.register(&Operation{Protocol: "xmpp", Name: "session", NewParams: func() any { return &xmppSessionParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p xmppSessionParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("xmpp", "session", start, err)
		}
		ctx, cancel := dial(ctx, p.CommonParams)
		defer cancel()
		tc, err := connectStartTLS(ctx, p.Host, p.Port)
		if err != nil {
			return result.Fail("xmpp", "session", start, err)
		}
		defer tc.Close()

		client := xmpp.NewClient(tc, p.Host)
		jid, err := client.Session(ctx, p.Username, p.Password)
		if err != nil {
			return result.Fail("xmpp", "session", start, err)
		}

		if p.Message != "" && p.MessageTo != "" {
			if err := client.SendMessage(ctx, p.MessageTo, p.Message); err != nil {
				return result.Fail("xmpp", "session", start, err)
			}
		}
		_ = client.Close()

		return result.Ok("xmpp", "session", start, map[string]any{
			"jid":    jid,
			"phases": client.Phases(),
		})
	}})
}
