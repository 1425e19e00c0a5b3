package adapter

import (
	"context"
	"time"

	"github.com/pocc/portofcall-sub006/internal/protocol/ipfs"
	"github.com/pocc/portofcall-sub006/internal/result"
)

type ipfsParams struct {
	CommonParams `mapstructure:",squash"`
}

func registerIPFS(r *Registry) {
	r.register(&Operation{Protocol: "ipfs", Name: "id", NewParams: func() any { return &ipfsParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p ipfsParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("ipfs", "id", start, err)
		}
		ctx, cancel := dial(ctx, p.CommonParams)
		defer cancel()

		info, err := ipfs.NewClient("http://"+addr(p.Host, p.Port), nil).ID(ctx)
		if err != nil {
			return result.Fail("ipfs", "id", start, err)
		}
		return result.Ok("ipfs", "id", start, info)
	}})

	r.register(&Operation{Protocol: "ipfs", Name: "version", NewParams: func() any { return &ipfsParams{} }, Run: func(ctx context.Context, raw map[string]any) result.Envelope {
		start := time.Now()
		var p ipfsParams
		if err := DecodeAndValidate(raw, &p); err != nil {
			return result.Fail("ipfs", "version", start, err)
		}
		ctx, cancel := dial(ctx, p.CommonParams)
		defer cancel()

		info, err := ipfs.NewClient("http://"+addr(p.Host, p.Port), nil).Version(ctx)
		if err != nil {
			return result.Fail("ipfs", "version", start, err)
		}
		return result.Ok("ipfs", "version", start, info)
	}})
}

func registerAll(r *Registry) {
	registerMount(r)
	registerNFS3(r)
	registerSFTP(r)
	registerTDS(r)
	registerClickHouse(r)
	registerXMPP(r)
	registerSIPS(r)
	registerSANE(r)
	registerZooKeeper(r)
	registerMultistream(r)
	registerIPFS(r)
}
