package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"tether/internal/config"
	"tether/internal/connection"
	"tether/internal/credentials"
	"tether/internal/version"
)

// tokenLoader is the part of credentials.Store token resolution needs.
type tokenLoader interface {
	LoadToken() (string, error)
}

// resolveToken picks the gateway token: flag, then keyring, then config
// file. source names where it came from and is empty when no token is set.
func resolveToken(flagToken string, store tokenLoader, configToken string) (token, source string, err error) {
	if flagToken != "" {
		return flagToken, "flag", nil
	}
	if store != nil {
		t, err := store.LoadToken()
		switch {
		case err == nil:
			return t, "keyring", nil
		case !errors.Is(err, credentials.ErrNoToken):
			if configToken != "" {
				return configToken, "config", err
			}
			return "", "", err
		}
	}
	if configToken != "" {
		return configToken, "config", nil
	}
	return "", "", nil
}

// applyToken resolves the token into cfg. A keyring failure is logged and
// the config token used instead.
func applyToken(cfg *config.Config, flagToken string, logger *log.Logger) {
	var store tokenLoader
	if flagToken == "" {
		if s, err := credentials.Open(dirs.Root()); err != nil {
			logger.Debug("credential store unavailable", "err", err)
		} else {
			store = s
		}
	}

	token, source, err := resolveToken(flagToken, store, cfg.Token)
	if err != nil {
		logger.Warn("keyring lookup failed", "err", err)
	}
	cfg.Token = token
	if token == "" {
		logger.Warn("no gateway token, run 'tether login' if the gateway requires one")
		return
	}
	logger.Debug("using gateway token", "source", source)
}

// reportPlaceholders logs where each ${VAR} in the config came from and
// warns about the ones nothing set.
func reportPlaceholders(cfg *config.Config, logger *log.Logger) {
	resolved, unresolved := cfg.Placeholders()
	for _, name := range resolved {
		logger.Debug("config placeholder resolved", "var", name, "from", envVars.Source(name))
	}
	for _, name := range unresolved {
		logger.Warn("config placeholder not set", "var", name)
	}
}

// openLogger builds the process logger. The TUI owns the terminal, so logs
// go to a file unless --log-file - is given.
func openLogger(cfg *config.Config) (*log.Logger, func(), error) {
	path := logFile
	if path == "" {
		path = cfg.LogFile
	}
	if path == "" {
		path = dirs.LogPath()
	}

	if path == "-" {
		return newLogger(os.Stderr, cfg.LogLevel, verbose), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return newLogger(f, cfg.LogLevel, verbose), func() { f.Close() }, nil
}

func newLogger(w io.Writer, level string, debug bool) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	if debug {
		lvl = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           lvl,
		Prefix:          "tether",
	})
}

// newClient builds a resilient client from the config. rec may be nil.
func newClient(cfg *config.Config, logger *log.Logger, rec connection.Recorder) *connection.Client {
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())

	opts := []connection.Option{
		connection.WithDialer(&connection.WebSocketDialer{
			Token:  cfg.Token,
			Header: header,
		}),
		connection.WithReconnect(cfg.ShouldReconnect()),
		connection.WithReconnectDelay(cfg.ReconnectDelaySeconds),
		connection.WithHeartbeat(cfg.Heartbeat()),
		connection.WithLogger(logger.WithPrefix("connection")),
	}
	if rec != nil {
		opts = append(opts, connection.WithRecorder(rec))
	}
	return connection.New(cfg.URL, opts...)
}

// reconnectOverride turns a --no-reconnect flag into a config override.
func reconnectOverride(disabled bool) *bool {
	if !disabled {
		return nil
	}
	off := false
	return &off
}
