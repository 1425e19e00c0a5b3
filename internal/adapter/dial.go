package adapter

import (
	"context"
	"net"

	"github.com/pocc/portofcall-sub006/internal/transport"
)

// connectPlain opens a cleartext TCP connection and hands back both the
// transport.Conn (for Close/lifecycle) and the borrowed net.Conn the
// protocol-specific client wants. The caller must call release before
// conn.Close returns control, and must always Close conn.
func connectPlain(ctx context.Context, host string, port uint16) (conn *transport.Conn, raw net.Conn, release func(), err error) {
	conn, err = transport.Connect(ctx, host, port, transport.Plain, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	raw, release = conn.Reader()
	return conn, raw, release, nil
}

// connectTLS opens a connection that is TLS-encrypted from the first
// byte (spec §4.4 Mode=TLS), used by protocols that never speak
// cleartext on the wire (e.g. SIPS).
func connectTLS(ctx context.Context, host string, port uint16) (conn *transport.Conn, raw net.Conn, release func(), err error) {
	conn, err = transport.Connect(ctx, host, port, transport.TLS, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	raw, release = conn.Reader()
	return conn, raw, release, nil
}

// connectStartTLS opens cleartext but keeps the conn promotable, for
// protocols (XMPP) whose client drives its own STARTTLS negotiation.
func connectStartTLS(ctx context.Context, host string, port uint16) (*transport.Conn, error) {
	return transport.Connect(ctx, host, port, transport.StartTLS, nil)
}
