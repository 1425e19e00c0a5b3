package adapter

import (
	"context"
	"time"

	"github.com/pocc/portofcall-sub006/internal/protocol/clickhouse"
	"github.com/pocc/portofcall-sub006/internal/protocol/tds"
	"github.com/pocc/portofcall-sub006/internal/result"
)

type tdsProbeParams struct {
	CommonParams `mapstructure:",squash"`
}

type tdsLoginParams struct {
	CommonParams `mapstructure:",squash"`
	Username     string `json:"username" mapstructure:"username" validate:"required"`
	Password     string `json:"password" mapstructure:"password"`
	AppName      string `json:"app_name" mapstructure:"app_name"`
	ServerName   string `json:"server_name" mapstructure:"server_name"`
}

func registerTDS(r *Registry) {
	r.register(&Operation{Protocol: "tds", Name: "probe_prelogin", NewParams: func() any { return &tdsProbeParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p tdsProbeParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("tds", "probe_prelogin", start, err)
		}
		ctx, cancel := dial(ctx, p.CommonParams)
		defer cancel()
		tc, conn, release, err := connectPlain(ctx, p.Host, p.Port)
		if err != nil {
			return result.Fail("tds", "probe_prelogin", start, err)
		}
		defer tc.Close()
		defer release()

		ok, err := tds.NewClient(conn).ProbePrelogin(ctx)
		if err != nil {
			return result.Fail("tds", "probe_prelogin", start, err)
		}
		return result.Ok("tds", "probe_prelogin", start, map[string]any{"acknowledged": ok})
	}})

	r.register(&Operation{Protocol: "tds", Name: "login", NewParams: func() any { return &tdsLoginParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p tdsLoginParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("tds", "login", start, err)
		}
		ctx, cancel := dial(ctx, p.CommonParams)
		defer cancel()
		tc, conn, release, err := connectPlain(ctx, p.Host, p.Port)
		if err != nil {
			return result.Fail("tds", "login", start, err)
		}
		defer tc.Close()
		defer release()

		res, err := tds.NewClient(conn).Login(ctx, p.Host, p.Username, p.Password, p.AppName, p.ServerName)
		if err != nil {
			return result.Fail("tds", "login", start, err)
		}
		return result.Ok("tds", "login", start, res)
	}})
}

type ClickHouseHandshakeParams struct {
	CommonParams `mapstructure:",squash"`
	Database     string `json:"database" mapstructure:"database"`
	Username     string `json:"username" mapstructure:"username"`
	Password     string `json:"password" mapstructure:"password"`
}

type clickhouseQueryParams struct {
	ClickHouseHandshakeParams `mapstructure:",squash"`
	Query                     string `json:"query" mapstructure:"query" validate:"required"`
}

type clickhousePingParams struct {
	CommonParams `mapstructure:",squash"`
}

func registerClickHouse(r *Registry) {
	r.register(&Operation{Protocol: "clickhouse", Name: "handshake", NewParams: func() any { return &ClickHouseHandshakeParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p ClickHouseHandshakeParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("clickhouse", "handshake", start, err)
		}
		ctx, cancel := dial(ctx, p.CommonParams)
		defer cancel()
		tc, conn, release, err := connectPlain(ctx, p.Host, p.Port)
		if err != nil {
			return result.Fail("clickhouse", "handshake", start, err)
		}
		defer tc.Close()
		defer release()

		info, err := clickhouse.NewClient(conn).Handshake(ctx, p.Database, p.Username, p.Password)
		if err != nil {
			return result.Fail("clickhouse", "handshake", start, err)
		}
		return result.Ok("clickhouse", "handshake", start, info)
	}})

	r.register(&Operation{Protocol: "clickhouse", Name: "query", NewParams: func() any { return &clickhouseQueryParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p clickhouseQueryParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("clickhouse", "query", start, err)
		}
		ctx, cancel := dial(ctx, p.CommonParams)
		defer cancel()
		tc, conn, release, err := connectPlain(ctx, p.Host, p.Port)
		if err != nil {
			return result.Fail("clickhouse", "query", start, err)
		}
		defer tc.Close()
		defer release()

		client := clickhouse.NewClient(conn)
		if _, err := client.Handshake(ctx, p.Database, p.Username, p.Password); err != nil {
			return result.Fail("clickhouse", "query", start, err)
		}
		res, err := client.Query(ctx, p.Query)
		if err != nil {
			return result.Fail("clickhouse", "query", start, err)
		}
		return result.Ok("clickhouse", "query", start, res)
	}})

	r.register(&Operation{Protocol: "clickhouse", Name: "ping", NewParams: func() any { return &clickhousePingParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p clickhousePingParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("clickhouse", "ping", start, err)
		}
		ctx, cancel := dial(ctx, p.CommonParams)
		defer cancel()
		tc, conn, release, err := connectPlain(ctx, p.Host, p.Port)
		if err != nil {
			return result.Fail("clickhouse", "ping", start, err)
		}
		defer tc.Close()
		defer release()

		if err := clickhouse.NewClient(conn).Ping(ctx); err != nil {
			return result.Fail("clickhouse", "ping", start, err)
		}
		return result.Ok("clickhouse", "ping", start, nil)
	}})
}
