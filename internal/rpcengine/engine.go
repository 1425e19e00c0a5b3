// Package rpcengine implements the request/response correlation layer
// (spec §4.5) used by the SFTP and ClickHouse native clients. For
// strictly sequential protocols it degrades to a single pending
// request, which is exactly what NewSequential configures.
package rpcengine

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/pocc/portofcall-sub006/internal/result"
)

// IDPolicy selects how request ids are generated.
type IDPolicy int

const (
	// Monotonic starts a per-session counter at 1 (SFTP, ClickHouse).
	Monotonic IDPolicy = iota
	// RandomXID draws a cryptographically-arbitrary 32-bit id per call
	// (NFS/ONC-RPC XID).
	RandomXID
)

// MismatchPolicy controls what happens when a reply's id doesn't match
// any currently pending request.
type MismatchPolicy int

const (
	// Skip silently discards the reply and keeps waiting (SFTP).
	Skip MismatchPolicy = iota
	// Strict treats a mismatched id as a ProtocolError (NFS/ONC-RPC).
	Strict
)

// Engine correlates one or more outstanding requests, keyed by a u32
// request id, with their replies.
type Engine struct {
	idPolicy       IDPolicy
	mismatchPolicy MismatchPolicy
	counter        uint32

	mu      sync.Mutex
	pending map[uint32]chan []byte
}

// New builds an Engine. Pass Monotonic+Skip for SFTP/ClickHouse-style
// sessions, RandomXID+Strict for strict ONC-RPC sessions.
func New(idPolicy IDPolicy, mismatchPolicy MismatchPolicy) *Engine {
	return &Engine{
		idPolicy:       idPolicy,
		mismatchPolicy: mismatchPolicy,
		pending:        make(map[uint32]chan []byte),
	}
}

// NewSequential builds an Engine for protocols where the session never
// has more than one request in flight: NextID allocates the next id,
// Register marks it outstanding, the caller sends it, reads exactly one
// frame, and calls Deliver (or Abandon) with that id — the concurrency
// machinery is there for uniformity and costs nothing when only one id
// is ever pending.
func NewSequential(idPolicy IDPolicy) *Engine {
	return New(idPolicy, Skip)
}

// NextID allocates the next request id per the Engine's IDPolicy.
func (e *Engine) NextID() (uint32, error) {
	switch e.idPolicy {
	case RandomXID:
		var buf [4]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, result.Network("generate xid: %v", err)
		}
		return binary.BigEndian.Uint32(buf[:]), nil
	default:
		return atomic.AddUint32(&e.counter, 1), nil
	}
}

// Register marks id as outstanding and returns a channel its reply will
// be delivered on. Invariant (spec §3): at most one outstanding request
// per id.
func (e *Engine) Register(id uint32) (<-chan []byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.pending[id]; exists {
		return nil, result.ProtocolError("request id %d already outstanding", id)
	}
	ch := make(chan []byte, 1)
	e.pending[id] = ch
	return ch, nil
}

// Deliver routes a reply frame carrying id to its waiter. If id has no
// waiter, behavior follows MismatchPolicy: Skip drops it (returns false,
// nil), Strict reports a ProtocolError.
func (e *Engine) Deliver(id uint32, frame []byte) (delivered bool, err error) {
	e.mu.Lock()
	ch, exists := e.pending[id]
	if exists {
		delete(e.pending, id)
	}
	e.mu.Unlock()

	if !exists {
		if e.mismatchPolicy == Strict {
			return false, result.ProtocolError("reply id %d has no outstanding request", id)
		}
		return false, nil
	}
	ch <- frame
	close(ch)
	return true, nil
}

// Abandon removes id from the pending set without delivering anything,
// used when the deadline fires mid-RPC (spec §4.5 Cancellation): no
// compensating request is sent on the wire for protocols that don't
// mandate one.
func (e *Engine) Abandon(id uint32) {
	e.mu.Lock()
	delete(e.pending, id)
	e.mu.Unlock()
}

// Pending reports how many requests are currently outstanding, mostly
// useful for tests asserting cleanup happened.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}
