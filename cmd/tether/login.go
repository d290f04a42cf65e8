package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"tether/internal/credentials"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the gateway token in the OS keyring",
	Long: `Store the gateway token in the OS credential store. The token is read
from --token, or from the first line of stdin when the flag is omitted:

  echo "$TOKEN" | tether login

Set TETHER_KEYRING_PASSWORD to unlock the encrypted file store on systems
without a native keyring.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token := strings.TrimSpace(loginToken)
		if token == "" {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("no token given: pass --token or pipe it on stdin")
			}
			token = strings.TrimSpace(line)
		}
		if token == "" {
			return fmt.Errorf("no token given: pass --token or pipe it on stdin")
		}

		store, err := credentials.OpenInteractive(dirs.Root())
		if err != nil {
			return err
		}
		if err := store.SaveToken(token); err != nil {
			return err
		}
		pterm.Success.Println("Gateway token saved.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored gateway token",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := credentials.OpenInteractive(dirs.Root())
		if err != nil {
			return err
		}
		if err := store.DeleteToken(); err != nil {
			return err
		}
		pterm.Success.Println("Gateway token removed.")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "gateway token to store")
}
