package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"litegram/pkg/bus"
	"litegram/pkg/config"
	"litegram/pkg/logger"
	"litegram/pkg/store"
	"litegram/pkg/ui/console"
)

var consoleUserID int64

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Talk to the bot routes from the terminal",
	Long:  "Runs the same routes as the gateway against typed lines instead of Telegram updates. Replies are shown in place of sent messages.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := loadConsoleConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		st, err := store.Open(cfg.Storage.Driver, cfg.Storage.Path)
		if err != nil {
			fmt.Printf("failed to open store: %v\n", err)
			return
		}

		// Logs stay off the terminal while the view owns it.
		mb := bus.NewMessageBus()
		b := newBot(cfg, console.NewAPI(mb), st, logger.Discard())

		if err := console.Run(context.Background(), b.RunRaw, mb, console.NewUpdates(consoleUserID)); err != nil {
			fmt.Printf("console failed: %v\n", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().Int64Var(&consoleUserID, "user", 1, "user and chat id the typed lines are sent as")
}

// loadConsoleConfig falls back to defaults when no config file exists.
func loadConsoleConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if errors.Is(err, config.ErrNotFound) {
		return config.Default(), nil
	}
	return cfg, err
}
