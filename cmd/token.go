package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"litegram/pkg/keychain"
)

const defaultTokenAccount = "telegram"

var tokenAccount string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the bot token stored in the system keychain",
	Long:  `Stores the Telegram bot token in the system keychain. Point bot.token_keyring in config.json at the account name to use it.`,
}

var tokenSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Read a token from stdin and store it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		token, err := readToken(cmd.InOrStdin())
		if err != nil {
			return err
		}
		if err := keychain.Set(tokenAccount, token); err != nil {
			return fmt.Errorf("store token: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "token stored for account %q\n", tokenAccount)
		return nil
	},
}

var tokenDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := keychain.Delete(tokenAccount); err != nil {
			return fmt.Errorf("delete token: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "token removed for account %q\n", tokenAccount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenSetCmd, tokenDeleteCmd)
	tokenCmd.PersistentFlags().StringVar(&tokenAccount, "account", defaultTokenAccount, "keychain account name")
}

func readToken(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}

	token := strings.TrimSpace(line)
	if token == "" {
		return "", errors.New("token is empty")
	}
	return token, nil
}
