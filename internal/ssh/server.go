package ssh

import (
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	charmssh "github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	wishbubbletea "github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"

	"tether/internal/tui"
)

// DefaultListenAddr is used when no listen address is configured.
const DefaultListenAddr = ":2222"

// ClientFactory builds the gateway client for one SSH session. Every
// session gets its own client; it is disconnected when the session ends.
type ClientFactory func(sshUser string) tui.GatewayClient

// SSHConfig holds configuration for the SSH server
type SSHConfig struct {
	ListenAddr         string
	HostKeyPath        string
	AuthorizedKeysPath string
	AssistantName      string
	// Location is the timezone for rendering timestamps in the TUI. If nil, times render as-is.
	Location  *time.Location
	NewClient ClientFactory
	Logger    *log.Logger
}

// NewServer creates a Wish SSH server that serves the TUI
func NewServer(config SSHConfig) (*charmssh.Server, error) {
	if config.NewClient == nil {
		return nil, errors.New("ssh server needs a client factory")
	}
	if config.HostKeyPath == "" {
		return nil, errors.New("ssh server needs a host key path")
	}
	if config.ListenAddr == "" {
		config.ListenAddr = DefaultListenAddr
	}
	if config.Logger == nil {
		config.Logger = log.New(io.Discard)
	}
	logger := config.Logger

	authorizedKeys, err := LoadAuthorizedKeys(config.AuthorizedKeysPath)
	if err != nil {
		logger.Warn("no authorized keys loaded", "err", err)
		authorizedKeys = nil
	} else {
		logger.Info("loaded authorized keys", "count", len(authorizedKeys))
	}

	handler := func(sess charmssh.Session) (tea.Model, []tea.ProgramOption) {
		return sessionHandler(sess, config)
	}

	opts := []charmssh.Option{
		wish.WithAddress(config.ListenAddr),
		wish.WithHostKeyPath(config.HostKeyPath),
		wish.WithMiddleware(
			wishbubbletea.Middleware(handler),
			activeterm.Middleware(),
			logging.StructuredMiddlewareWithLogger(logger, log.InfoLevel),
		),
	}

	if len(authorizedKeys) > 0 {
		opts = append(opts, wish.WithPublicKeyAuth(func(ctx charmssh.Context, key charmssh.PublicKey) bool {
			return publicKeyHandler(ctx, key, authorizedKeys, logger)
		}))
	} else {
		logger.Warn("no authorized keys, accepting any client")
	}

	server, err := wish.NewServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH server: %w", err)
	}

	return server, nil
}

// sessionHandler creates a client and a TUI model for each SSH session
func sessionHandler(sess charmssh.Session, config SSHConfig) (tea.Model, []tea.ProgramOption) {
	sshUser := sess.User()
	if sshUser == "" {
		sshUser = "ssh-user"
	}

	client := config.NewClient(sshUser)
	go func() {
		<-sess.Context().Done()
		client.Disconnect()
	}()

	// Renderer for this session so styles emit the right ANSI sequences
	// for the connecting terminal.
	renderer := wishbubbletea.MakeRenderer(sess)

	model := tui.NewModel(tui.ModelConfig{
		Client:        client,
		UserID:        sshUser,
		AssistantName: config.AssistantName,
		Location:      config.Location,
		Renderer:      renderer,
		Logger:        config.Logger.With("user", sshUser),
	})
	model.SetSSHUser(sshUser)

	return model, []tea.ProgramOption{tea.WithAltScreen()}
}

// publicKeyHandler validates SSH public keys against the authorized keys list
func publicKeyHandler(ctx charmssh.Context, key charmssh.PublicKey, authorizedKeys []charmssh.PublicKey, logger *log.Logger) bool {
	for _, authKey := range authorizedKeys {
		if charmssh.KeysEqual(key, authKey) {
			logger.Info("public key accepted", "user", ctx.User())
			return true
		}
	}
	logger.Warn("public key rejected", "user", ctx.User())
	return false
}
