// Package transport implements the uniform handle over plain TCP and
// TLS (spec §4.4), including lazy STARTTLS promotion that re-frames a
// cleartext socket into an encrypted one in place.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"

	"github.com/pocc/portofcall-sub006/internal/result"
)

// Mode selects how Connect opens the socket.
type Mode int

const (
	// Plain never encrypts.
	Plain Mode = iota
	// TLS opens an encrypted session synchronously during the handshake.
	TLS
	// StartTLS opens cleartext but retains the ability to Promote later.
	StartTLS
)

// state mirrors the Cleartext → (STARTTLS) → Encrypted → Closed machine
// from spec §4.4.
type state int

const (
	stateCleartext state = iota
	stateEncrypted
	stateClosed
)

// Conn is a transport session: exactly one of a plain net.Conn or a
// *tls.Conn is live at any time. The connection handed out by Reader
// is borrowed; Promote refuses to run while it is checked out, matching
// the "release before upgrade" ownership rule in §4.4 and §5.
type Conn struct {
	mu       sync.Mutex
	raw      net.Conn
	mode     Mode
	state    state
	borrowed bool
	tlsConf  *tls.Config
}

// Connect opens host:port under mode. For Mode=TLS the handshake runs
// before Connect returns; for Plain/StartTLS the socket is cleartext on
// return. ctx's deadline (see internal/deadline) bounds both the dial
// and, for Mode=TLS, the handshake.
func Connect(ctx context.Context, host string, port uint16, mode Mode, tlsConf *tls.Config) (*Conn, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	dialer := &net.Dialer{}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, result.Network("dial %s: %v", addr, err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = raw.SetDeadline(dl)
	}

	c := &Conn{raw: raw, mode: mode, state: stateCleartext, tlsConf: tlsConf}

	if mode == TLS {
		tc := tls.Client(raw, effectiveTLSConfig(tlsConf, host))
		if err := tc.HandshakeContext(ctx); err != nil {
			_ = raw.Close()
			return nil, result.Network("tls handshake with %s: %v", addr, err)
		}
		c.raw = tc
		c.state = stateEncrypted
	}

	return c, nil
}

func effectiveTLSConfig(base *tls.Config, host string) *tls.Config {
	if base == nil {
		base = &tls.Config{}
	}
	cfg := base.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	return cfg
}

// Reader borrows the underlying connection for reading. Callers must
// call the returned release func when done, before calling Promote.
func (c *Conn) Reader() (net.Conn, func()) {
	c.mu.Lock()
	c.borrowed = true
	conn := c.raw
	c.mu.Unlock()
	return conn, c.release
}

func (c *Conn) release() {
	c.mu.Lock()
	c.borrowed = false
	c.mu.Unlock()
}

// Promote upgrades a StartTLS-mode cleartext connection to TLS in
// place. It is only valid when the connection is in StartTLS mode and
// still cleartext, and when no reader/writer handle is currently
// borrowed (spec §4.4: "only when no reader or writer is held").
func (c *Conn) Promote(ctx context.Context, host string) error {
	c.mu.Lock()
	if c.mode != StartTLS {
		c.mu.Unlock()
		return result.InvalidArgument("promote_to_tls called outside starttls mode")
	}
	if c.state != stateCleartext {
		c.mu.Unlock()
		return result.InvalidArgument("promote_to_tls called in state %d", c.state)
	}
	if c.borrowed {
		c.mu.Unlock()
		return result.InvalidArgument("promote_to_tls called while a reader/writer is borrowed")
	}
	raw := c.raw
	c.mu.Unlock()

	tc := tls.Client(raw, effectiveTLSConfig(c.tlsConf, host))
	if err := tc.HandshakeContext(ctx); err != nil {
		return result.Network("starttls handshake: %v", err)
	}

	c.mu.Lock()
	c.raw = tc
	c.state = stateEncrypted
	c.mu.Unlock()
	return nil
}

// IsEncrypted reports whether the connection is currently TLS.
func (c *Conn) IsEncrypted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateEncrypted
}

// SetDeadline re-arms the underlying socket's deadline, used when a
// single session spans several deadline-bearing sub-operations (e.g.
// XMPP's connect → STARTTLS → authenticate → bind chain).
func (c *Conn) SetDeadline(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if dl, ok := ctx.Deadline(); ok {
		_ = c.raw.SetDeadline(dl)
	}
}

// Close is idempotent (spec §8 property 8 / §4.4): closing an
// already-closed connection is a no-op and never errors.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateClosed {
		return nil
	}
	c.state = stateClosed
	if err := c.raw.Close(); err != nil {
		return result.Network("close: %v", err)
	}
	return nil
}
