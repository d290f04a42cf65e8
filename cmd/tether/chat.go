package main

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"tether/internal/config"
	"tether/internal/connection"
	"tether/internal/metrics"
	"tether/internal/tui"
)

var (
	chatURL         string
	chatToken       string
	chatMetricsAddr string
	chatNoReconnect bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat TUI",
	Long: `Open a terminal chat with the gateway. The connection is kept alive:
when it drops, the status bar counts down and the client redials.

Keys: Enter sends, Alt+Enter inserts a newline, Ctrl+R reconnects now,
Tab toggles the sidebar, Ctrl+C quits. Type /help for slash commands.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatURL, "url", "", "gateway WebSocket URL (saved to config)")
	chatCmd.Flags().StringVar(&chatToken, "token", "", "gateway token (overrides keyring and config)")
	chatCmd.Flags().StringVar(&chatMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	chatCmd.Flags().BoolVar(&chatNoReconnect, "no-reconnect", false, "do not redial after the connection drops")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadOrCreate(cfgFile, config.Overrides{
		URL:       chatURL,
		Reconnect: reconnectOverride(chatNoReconnect),
	})
	if err != nil {
		return err
	}

	logger, closeLog, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	reportPlaceholders(cfg, logger)
	applyToken(cfg, chatToken, logger)

	addr := chatMetricsAddr
	if addr == "" {
		addr = cfg.MetricsAddr
	}

	var rec connection.Recorder
	var collector *metrics.Collector
	if addr != "" {
		collector = metrics.NewCollector()
		rec = collector
	}
	client := newClient(cfg, logger, rec)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if collector != nil {
		startMetrics(ctx, addr, collector, func() string { return client.State().String() }, logger)
	}

	logger.Info("starting chat", "url", cfg.URL, "reconnect", cfg.ShouldReconnect())
	return tui.Run(tui.ModelConfig{
		Client:        client,
		UserID:        cfg.UserID,
		AssistantName: cfg.AssistantName,
		Location:      cfg.GetLocation(),
		Logger:        logger.WithPrefix("tui"),
	})
}

// startMetrics serves the collector in the background until ctx ends.
func startMetrics(ctx context.Context, addr string, c *metrics.Collector, status metrics.StatusFunc, logger *log.Logger) {
	srv := metrics.NewServer(addr, c, status, logger.WithPrefix("metrics"))
	go func() {
		if err := srv.Run(ctx); err != nil {
			logger.Error("metrics server stopped", "err", err)
		}
	}()
}
