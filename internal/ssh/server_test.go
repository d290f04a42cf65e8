package ssh

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"

	"tether/internal/connection"
	"tether/internal/tui"
	"tether/pkg/protocol"
)

type sessionClient struct {
	connected    chan struct{}
	disconnected chan struct{}
}

func newSessionClient() *sessionClient {
	return &sessionClient{
		connected:    make(chan struct{}, 4),
		disconnected: make(chan struct{}, 4),
	}
}

func (c *sessionClient) Connect()                               { c.connected <- struct{}{} }
func (c *sessionClient) Disconnect()                            { c.disconnected <- struct{}{} }
func (c *sessionClient) Send(protocol.Message) error            { return connection.ErrNotConnected }
func (c *sessionClient) IsConnected() bool                      { return false }
func (c *sessionClient) State() connection.State                { return connection.StateConnecting }
func (c *sessionClient) Reconnect() connection.ReconnectContext { return connection.ReconnectContext{} }
func (c *sessionClient) URL() string                            { return "ws://gateway.test/ws" }
func (c *sessionClient) SetHandlers(connection.Handlers)        {}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestNewServer_RequiresFactoryAndHostKey(t *testing.T) {
	_, err := NewServer(SSHConfig{HostKeyPath: filepath.Join(t.TempDir(), "host_key")})
	assert.ErrorContains(t, err, "client factory")

	_, err = NewServer(SSHConfig{NewClient: func(string) tui.GatewayClient { return newSessionClient() }})
	assert.ErrorContains(t, err, "host key")
}

func TestServer_SessionOwnsClient(t *testing.T) {
	dir := t.TempDir()
	keysPath := filepath.Join(dir, "authorized_keys")
	line, signer := newAuthorizedKey(t, "ada@test")
	require.NoError(t, os.WriteFile(keysPath, []byte(line+"\n"), 0600))

	client := newSessionClient()
	users := make(chan string, 1)
	srv, err := NewServer(SSHConfig{
		HostKeyPath:        filepath.Join(dir, "host_key"),
		AuthorizedKeysPath: keysPath,
		NewClient: func(user string) tui.GatewayClient {
			users <- user
			return client
		},
	})
	require.NoError(t, err)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := gossh.Dial("tcp", l.Addr().String(), &gossh.ClientConfig{
		User:            "ada",
		Auth:            []gossh.AuthMethod{gossh.PublicKeys(signer)},
		HostKeyCallback: gossh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
	require.NoError(t, err)

	sess, err := conn.NewSession()
	require.NoError(t, err)
	require.NoError(t, sess.RequestPty("xterm-256color", 40, 120, gossh.TerminalModes{}))
	require.NoError(t, sess.Shell())

	select {
	case user := <-users:
		assert.Equal(t, "ada", user)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not build a client")
	}
	waitFor(t, client.connected, "connect")

	require.NoError(t, conn.Close())
	waitFor(t, client.disconnected, "disconnect")
}

func TestServer_RejectsUnknownKey(t *testing.T) {
	dir := t.TempDir()
	keysPath := filepath.Join(dir, "authorized_keys")
	line, _ := newAuthorizedKey(t, "ada@test")
	require.NoError(t, os.WriteFile(keysPath, []byte(line+"\n"), 0600))
	_, stranger := newAuthorizedKey(t, "stranger")

	srv, err := NewServer(SSHConfig{
		HostKeyPath:        filepath.Join(dir, "host_key"),
		AuthorizedKeysPath: keysPath,
		NewClient:          func(string) tui.GatewayClient { return newSessionClient() },
	})
	require.NoError(t, err)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })

	_, err = gossh.Dial("tcp", l.Addr().String(), &gossh.ClientConfig{
		User:            "mallory",
		Auth:            []gossh.AuthMethod{gossh.PublicKeys(stranger)},
		HostKeyCallback: gossh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
	assert.Error(t, err)
}
