package sftp

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/pocc/portofcall-sub006/internal/deadline"
	"github.com/pocc/portofcall-sub006/internal/result"
	"golang.org/x/crypto/ssh"
)

// Credentials selects how the collaborator SSH client authenticates.
// Exactly one of Password or PrivateKeyPEM should be set; if both are
// empty the connection is attempted with no auth methods (useful only
// against a server allowing none).
type Credentials struct {
	User          string
	Password      string
	PrivateKeyPEM []byte
}

func (c Credentials) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if c.Password != "" {
		methods = append(methods, ssh.Password(c.Password))
	}
	if len(c.PrivateKeyPEM) > 0 {
		signer, err := ssh.ParsePrivateKey(c.PrivateKeyPEM)
		if err != nil {
			return nil, result.InvalidArgument("parse private key: %v", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	return methods, nil
}

// Session wraps the collaborator SSH connection and the resulting
// "sftp" subsystem channel. Close tears down both, per spec §5's
// scoped-acquisition rule.
type Session struct {
	sshConn *ssh.Client
	sshSess *ssh.Session
	Channel Channel
}

// Dial opens an SSH connection to host:port, authenticates with creds,
// and requests the sftp subsystem on a new session channel — the
// "collaborator module" spec §4.7.b assumes is already in place.
func Dial(ctx context.Context, host string, port uint16, creds Credentials) (*Session, error) {
	if ctx.Err() != nil {
		return nil, result.Timeout("context expired before ssh dial: %v", ctx.Err())
	}
	methods, err := creds.authMethods()
	if err != nil {
		return nil, err
	}

	// No persisted known_hosts store in scope (spec §1 non-goal: no
	// persistent state across requests), so host key verification is
	// always skipped rather than failing every connection.
	config := &ssh.ClientConfig{
		User:            creds.User,
		Auth:            methods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}
	if dl, ok := deadline.Deadline(ctx); ok {
		config.Timeout = time.Until(dl)
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	dialer := net.Dialer{}
	if dl, ok := deadline.Deadline(ctx); ok {
		dialer.Deadline = dl
	}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, result.Network("dial %s: %v", addr, err)
	}

	cc, chans, reqs, err := ssh.NewClientConn(netConn, addr, config)
	if err != nil {
		_ = netConn.Close()
		return nil, result.AuthFailed("ssh handshake: %v", err)
	}
	client := ssh.NewClient(cc, chans, reqs)

	sess, err := client.NewSession()
	if err != nil {
		_ = client.Close()
		return nil, result.Network("open ssh session: %v", err)
	}
	pipeIn, err := sess.StdinPipe()
	if err != nil {
		_ = sess.Close()
		_ = client.Close()
		return nil, result.Network("open stdin pipe: %v", err)
	}
	pipeOut, err := sess.StdoutPipe()
	if err != nil {
		_ = sess.Close()
		_ = client.Close()
		return nil, result.Network("open stdout pipe: %v", err)
	}
	if err := sess.RequestSubsystem("sftp"); err != nil {
		_ = sess.Close()
		_ = client.Close()
		return nil, result.Unsupported("server does not offer the sftp subsystem: %v", err)
	}

	return &Session{
		sshConn: client,
		sshSess: sess,
		Channel: &rwChannel{r: pipeOut, w: pipeIn},
	}, nil
}

// Close tears down the subsystem session and the underlying SSH
// connection, in that order.
func (s *Session) Close() error {
	sessErr := s.sshSess.Close()
	connErr := s.sshConn.Close()
	if sessErr != nil {
		return sessErr
	}
	return connErr
}

type rwChannel struct {
	r interface{ Read([]byte) (int, error) }
	w interface{ Write([]byte) (int, error) }
}

func (c *rwChannel) Read(p []byte) (int, error)  { return c.r.Read(p) }
func (c *rwChannel) Write(p []byte) (int, error) { return c.w.Write(p) }
