package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tether/internal/datadir"
	"tether/internal/version"
)

var (
	cfgFile    string
	dataDirArg string
	logFile    string
	verbose    bool

	dirs    *datadir.DataDir
	envVars *datadir.Env
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tether",
	Short: "Terminal client for an AI-assistant gateway",
	Long: `tether connects to an AI-assistant gateway over a WebSocket and keeps
the connection alive: when the gateway drops, it counts down and redials.

Use 'tether chat' for the interactive terminal UI, 'tether send' for a
one-shot prompt, or 'tether ssh-server' to serve the chat over SSH.`,
	Version:       version.Full(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dd, err := datadir.New(dataDirArg)
		if err != nil {
			return fmt.Errorf("failed to resolve data directory: %w", err)
		}
		if err := dd.EnsureDirs(); err != nil {
			return err
		}
		// .env first so ${VAR} placeholders in the config resolve
		env, err := datadir.LoadEnv(dd.Root())
		if err != nil {
			return fmt.Errorf("failed to load .env files: %w", err)
		}
		envVars = env
		if cfgFile == "" {
			cfgFile = dd.ConfigPath()
		}
		dirs = dd
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default {data-dir}/config.json)")
	rootCmd.PersistentFlags().StringVar(&dataDirArg, "data-dir", "", "data directory (default ~/.tether, or $TETHER_DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file path, '-' for stderr (default {data-dir}/logs/tether.log)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(sshServerCmd)
	rootCmd.AddCommand(sshKeysCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
