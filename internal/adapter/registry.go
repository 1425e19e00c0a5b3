package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/pocc/portofcall-sub006/internal/deadline"
	"github.com/pocc/portofcall-sub006/internal/logger"
	"github.com/pocc/portofcall-sub006/internal/result"
)

// Handler runs one operation against a raw parameter map and returns a
// Result Envelope. It never panics on bad input: decode/validate
// failures are folded into the envelope like any other error.
type Handler func(ctx context.Context, raw map[string]any) result.Envelope

// Operation is one dispatchable (protocol, name) pair: its params
// prototype (for schema generation) and its handler.
type Operation struct {
	Protocol  string
	Name      string
	NewParams func() any
	Run       Handler
}

// key is the dispatch table's lookup key, "<protocol>.<name>".
func key(protocol, name string) string { return protocol + "." + name }

// Registry is the full set of operations this repo exposes, keyed by
// protocol then operation name.
type Registry struct {
	ops map[string]*Operation
}

// NewRegistry builds the registry with every protocol module's
// operations wired in (see ops_*.go).
func NewRegistry() *Registry {
	r := &Registry{ops: make(map[string]*Operation)}
	registerAll(r)
	return r
}

func (r *Registry) register(op *Operation) {
	r.ops[key(op.Protocol, op.Name)] = op
}

// Lookup finds the operation for protocol/name.
func (r *Registry) Lookup(protocol, name string) (*Operation, bool) {
	op, ok := r.ops[key(protocol, name)]
	return op, ok
}

// List returns every registered operation, for CLI help text and
// schema dumps.
func (r *Registry) List() []*Operation {
	out := make([]*Operation, 0, len(r.ops))
	for _, op := range r.ops {
		out = append(out, op)
	}
	return out
}

// Dispatch looks up protocol/name and runs it, wrapping an unknown
// operation in an Unsupported envelope rather than an error return, so
// every call site gets a uniform Envelope regardless of outcome.
func (r *Registry) Dispatch(ctx context.Context, protocol, name string, raw map[string]any) result.Envelope {
	start := time.Now()
	log := logger.With("protocol", protocol, "operation", name)

	op, ok := r.Lookup(protocol, name)
	if !ok {
		log.Warn("unsupported operation")
		return result.Fail(protocol, name, start, result.Unsupported("unknown operation %s.%s", protocol, name))
	}

	log.Debug("dispatch start")
	env := op.Run(ctx, raw)
	if env.Success {
		log.Debug("dispatch complete", "latency_ms", env.LatencyMS)
	} else {
		log.Error("dispatch failed", "latency_ms", env.LatencyMS, "error_kind", env.Error.Kind, "error", env.Error.Message)
	}
	return env
}

// dial is the shared "decode common fields, derive a deadline" prelude
// every ops_*.go handler runs before opening its protocol-specific
// connection.
func dial(ctx context.Context, common CommonParams) (context.Context, context.CancelFunc) {
	return deadline.New(ctx, common.TimeoutMS)
}

func addr(host string, port uint16) string {
	return fmt.Sprintf("%s:%d", host, port)
}
