package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"

	"github.com/timmy/jobscout/internal/notify"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage the SMTP password in the OS keyring",
}

var secretSetCmd = &cobra.Command{
	Use:   "set ACCOUNT",
	Short: "Store the SMTP password for ACCOUNT, read from stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		pw := strings.TrimRight(line, "\r\n")
		if pw == "" {
			return errors.New("empty password")
		}
		if err := keyring.Set(notify.KeyringService, args[0], pw); err != nil {
			return fmt.Errorf("store password: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored password for %s\n", args[0])
		return nil
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete ACCOUNT",
	Short: "Remove the stored SMTP password for ACCOUNT",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keyring.Delete(notify.KeyringService, args[0]); err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				return fmt.Errorf("no password stored for %s", args[0])
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted password for %s\n", args[0])
		return nil
	},
}

func init() {
	secretCmd.AddCommand(secretSetCmd, secretDeleteCmd)
}
