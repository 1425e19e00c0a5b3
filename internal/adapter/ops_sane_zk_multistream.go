package adapter

import (
	"context"
	"time"

	"github.com/pocc/portofcall-sub006/internal/protocol/multistream"
	"github.com/pocc/portofcall-sub006/internal/protocol/sane"
	"github.com/pocc/portofcall-sub006/internal/protocol/zookeeper"
	"github.com/pocc/portofcall-sub006/internal/result"
)

type saneGetDevicesParams struct {
	CommonParams `mapstructure:",squash"`
	CallerName   string `json:"caller_name" mapstructure:"caller_name"`
}

func registerSANE(r *Registry) {
	r.register(&Operation{Protocol: "sane", Name: "get_devices", NewParams: func() any { return &saneGetDevicesParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p saneGetDevicesParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("sane", "get_devices", start, err)
		}
		if p.CallerName == "" {
			p.CallerName = "portofcall"
		}
		ctx, cancel := dial(ctx, p.CommonParams)
		defer cancel()
		tc, conn, release, err := connectPlain(ctx, p.Host, p.Port)
		if err != nil {
			return result.Fail("sane", "get_devices", start, err)
		}
		defer tc.Close()
		defer release()

		client := sane.NewClient(conn)
		if _, err := client.Init(ctx, p.CallerName); err != nil {
			return result.Fail("sane", "get_devices", start, err)
		}
		devices, err := client.GetDevices(ctx)
		if err != nil {
			return result.Fail("sane", "get_devices", start, err)
		}
		return result.Ok("sane", "get_devices", start, devices)
	}})
}

type zookeeperSendParams struct {
	CommonParams `mapstructure:",squash"`
	Command      string `json:"command" mapstructure:"command" validate:"required"`
}

func registerZooKeeper(r *Registry) {
	r.register(&Operation{Protocol: "zookeeper", Name: "send", NewParams: func() any { return &zookeeperSendParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p zookeeperSendParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("zookeeper", "send", start, err)
		}
		ctx, cancel := dial(ctx, p.CommonParams)
		defer cancel()
		tc, conn, release, err := connectPlain(ctx, p.Host, p.Port)
		if err != nil {
			return result.Fail("zookeeper", "send", start, err)
		}
		defer tc.Close()
		defer release()

		res, err := zookeeper.NewClient(conn).Send(ctx, p.Command)
		if err != nil {
			return result.Fail("zookeeper", "send", start, err)
		}
		return result.Ok("zookeeper", "send", start, res)
	}})
}

type multistreamHandshakeParams struct {
	CommonParams `mapstructure:",squash"`
}

type multistreamSelectParams struct {
	CommonParams `mapstructure:",squash"`
	ProtocolID   string `json:"protocol_id" mapstructure:"protocol_id" validate:"required"`
}

func registerMultistream(r *Registry) {
	r.register(&Operation{Protocol: "multistream", Name: "select", NewParams: func() any { return &multistreamSelectParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p multistreamSelectParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("multistream", "select", start, err)
		}
		ctx, cancel := dial(ctx, p.CommonParams)
		defer cancel()
		tc, conn, release, err := connectPlain(ctx, p.Host, p.Port)
		if err != nil {
			return result.Fail("multistream", "select", start, err)
		}
		defer tc.Close()
		defer release()

		client := multistream.NewClient(conn)
		if err := client.Handshake(ctx); err != nil {
			return result.Fail("multistream", "select", start, err)
		}
		accepted, err := client.Select(ctx, p.ProtocolID)
		if err != nil {
			return result.Fail("multistream", "select", start, err)
		}
		return result.Ok("multistream", "select", start, map[string]any{"accepted": accepted})
	}})

	r.register(&Operation{Protocol: "multistream", Name: "list_protocols", NewParams: func() any { return &multistreamHandshakeParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p multistreamHandshakeParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("multistream", "list_protocols", start, err)
		}
		ctx, cancel := dial(ctx, p.CommonParams)
		defer cancel()
		tc, conn, release, err := connectPlain(ctx, p.Host, p.Port)
		if err != nil {
			return result.Fail("multistream", "list_protocols", start, err)
		}
		defer tc.Close()
		defer release()

		client := multistream.NewClient(conn)
		if err := client.Handshake(ctx); err != nil {
			return result.Fail("multistream", "list_protocols", start, err)
		}
		protocols, err := client.ListProtocols(ctx)
		if err != nil {
			return result.Fail("multistream", "list_protocols", start, err)
		}
		return result.Ok("multistream", "list_protocols", start, protocols)
	}})
}
