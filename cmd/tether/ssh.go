package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	charmssh "github.com/charmbracelet/ssh"
	"github.com/spf13/cobra"

	"tether/internal/config"
	"tether/internal/connection"
	"tether/internal/metrics"
	internalssh "tether/internal/ssh"
	"tether/internal/tui"
)

var (
	sshListen         string
	sshHostKey        string
	sshAuthorizedKeys string
	sshURL            string
	sshToken          string
	sshMetricsAddr    string
)

var sshServerCmd = &cobra.Command{
	Use:   "ssh-server",
	Short: "Serve the chat TUI over SSH",
	Long: `Start an SSH server that serves the chat TUI. Every SSH session opens
its own connection to the gateway and closes it when the session ends.

  ssh -p 2222 user@localhost

Only keys in the authorized_keys file are accepted; manage them with
'tether ssh-keys'. Without any keys every client is let in.`,
	RunE: runSSHServer,
}

func init() {
	sshServerCmd.Flags().StringVar(&sshListen, "listen", "", "SSH listen address (default :2222)")
	sshServerCmd.Flags().StringVar(&sshHostKey, "host-key", "", "path to SSH host key, generated if missing (default {data-dir}/ssh/ssh_host_key)")
	sshServerCmd.Flags().StringVar(&sshAuthorizedKeys, "authorized-keys", "", "path to authorized_keys file (default {data-dir}/ssh/authorized_keys)")
	sshServerCmd.Flags().StringVar(&sshURL, "url", "", "gateway WebSocket URL (saved to config)")
	sshServerCmd.Flags().StringVar(&sshToken, "token", "", "gateway token (overrides keyring and config)")
	sshServerCmd.Flags().StringVar(&sshMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

func runSSHServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadOrCreate(cfgFile, config.Overrides{URL: sshURL})
	if err != nil {
		return err
	}
	logger, closeLog, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	reportPlaceholders(cfg, logger)
	applyToken(cfg, sshToken, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rec connection.Recorder
	metricsAddr := firstNonEmpty(sshMetricsAddr, cfg.MetricsAddr)
	if metricsAddr != "" {
		collector := metrics.NewCollector()
		rec = collector
		startMetrics(ctx, metricsAddr, collector, func() string { return "per-session" }, logger)
	}

	sshLogger := logger.WithPrefix("ssh")
	server, err := internalssh.NewServer(internalssh.SSHConfig{
		ListenAddr:         firstNonEmpty(sshListen, cfg.SSH.Listen),
		HostKeyPath:        firstNonEmpty(sshHostKey, cfg.SSH.HostKey, dirs.SSHFilePath("ssh_host_key")),
		AuthorizedKeysPath: firstNonEmpty(sshAuthorizedKeys, cfg.SSH.AuthorizedKeys, dirs.SSHFilePath("authorized_keys")),
		AssistantName:      cfg.AssistantName,
		Location:           cfg.GetLocation(),
		Logger:             sshLogger,
		NewClient: func(sshUser string) tui.GatewayClient {
			return newClient(cfg, logger.With("user", sshUser), rec)
		},
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		sshLogger.Info("shutting down SSH server")
		server.Close()
	}()

	sshLogger.Info("SSH server listening", "addr", server.Addr, "gateway", cfg.URL)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, charmssh.ErrServerClosed) {
		return err
	}
	return nil
}

// authorizedKeysPath resolves the authorized_keys file for ssh-keys: flag,
// then config, then the data directory.
func authorizedKeysPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if _, err := os.Stat(cfgFile); err == nil {
		if cfg, err := config.Load(cfgFile); err == nil && cfg.SSH.AuthorizedKeys != "" {
			return cfg.SSH.AuthorizedKeys
		}
	}
	return dirs.SSHFilePath("authorized_keys")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
