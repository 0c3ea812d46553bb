package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mymmrac/telego"
	"github.com/spf13/cobra"

	"litegram/pkg/bus"
	"litegram/pkg/channel"
	"litegram/pkg/channel/telegram"
	"litegram/pkg/channel/webhook"
	"litegram/pkg/config"
	"litegram/pkg/gateway"
	"litegram/pkg/keychain"
	"litegram/pkg/logger"
	"litegram/pkg/store"
	telegramapi "litegram/pkg/telegram"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the bot gateway",
	Long:  "Receives Telegram updates by long polling or webhook, dispatches them one at a time and serves health, readiness and status endpoints.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.gateway")

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		token, err := cfg.ResolveToken(keychain.Get)
		if err != nil {
			log.Error("Bot token unavailable", "error", err)
			return
		}

		tgBot, err := telegramapi.NewBot(token, appLogger)
		if err != nil {
			log.Error("Failed to initialize Telegram client", "error", err)
			return
		}
		client := telegramapi.NewClient(tgBot, appLogger)

		st, err := store.Open(cfg.Storage.Driver, cfg.Storage.Path)
		if err != nil {
			log.Error("Failed to open store", "driver", cfg.Storage.Driver, "error", err)
			return
		}

		adapters, err := enabledAdapters(cfg, tgBot, appLogger)
		if err != nil {
			log.Error("Gateway configuration invalid", "error", err)
			return
		}

		if url := webhookURL(cfg.Gateway); url != "" {
			if err := client.SetWebhook(runCtx, url, cfg.Gateway.SecretToken); err != nil {
				log.Error("Failed to register webhook", "url", url, "error", err)
				return
			}
			log.Info("Webhook registered", "url", url)
		}

		mb := bus.NewMessageBus()
		svc, err := gateway.NewService(cfg, newBot(cfg, client, st, appLogger), mb, adapters, appLogger)
		if err != nil {
			log.Error("Failed to initialize gateway service", "error", err)
			return
		}

		log.Info("Gateway started", "mode", cfg.Gateway.Mode, "channels", enabledChannelNames(adapters), "addr", cfg.Gateway.Addr(), "storage", cfg.Storage.Driver)
		if err := svc.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Gateway runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}

func enabledAdapters(cfg *config.Config, tgBot *telego.Bot, log *slog.Logger) ([]channel.Adapter, error) {
	switch cfg.Gateway.Mode {
	case config.ModePolling:
		adapter, err := telegram.NewAdapter(tgBot, cfg.Bot.AllowFrom, log)
		if err != nil {
			return nil, fmt.Errorf("configure polling channel: %w", err)
		}
		return []channel.Adapter{adapter}, nil
	case config.ModeWebhook:
		return []channel.Adapter{
			webhook.NewAdapter(cfg.Gateway.WebhookPath, cfg.Gateway.SecretToken, cfg.Bot.AllowFrom, log),
		}, nil
	default:
		return nil, fmt.Errorf("unknown gateway mode %q", cfg.Gateway.Mode)
	}
}

// webhookURL is the address registered with Telegram, or "" when nothing should be registered.
func webhookURL(cfg config.GatewayConfig) string {
	base := strings.TrimSpace(cfg.PublicURL)
	if cfg.Mode != config.ModeWebhook || base == "" {
		return ""
	}

	return strings.TrimRight(base, "/") + cfg.WebhookPath
}

func enabledChannelNames(adapters []channel.Adapter) string {
	names := make([]string, 0, len(adapters))
	for _, adapter := range adapters {
		names = append(names, adapter.Name())
	}

	return strings.Join(names, ",")
}
