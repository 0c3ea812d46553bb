package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mymmrac/telego"

	"litegram/pkg/bus"
	"litegram/pkg/channel"
	"litegram/pkg/payload"
)

const channelName = "telegram"

// poller is the subset of *telego.Bot used for long polling.
type poller interface {
	UpdatesViaLongPolling(ctx context.Context, params *telego.GetUpdatesParams, options ...telego.LongPollingOption) (<-chan telego.Update, error)
}

// Adapter long-polls Telegram and forwards every update as raw JSON.
type Adapter struct {
	bot       poller
	allowFrom channel.Allowlist
	log       *slog.Logger
}

// NewAdapter constructs a long-polling adapter over an initialized bot.
func NewAdapter(bot *telego.Bot, allowFrom []string, log *slog.Logger) (*Adapter, error) {
	if bot == nil {
		return nil, errors.New("telegram bot is required")
	}
	return newAdapter(bot, allowFrom, log), nil
}

func newAdapter(bot poller, allowFrom []string, log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		bot:       bot,
		allowFrom: channel.NewAllowlist(allowFrom),
		log:       log.With("component", "channel.telegram"),
	}
}

// Name returns the channel identifier used in bus metadata and logs.
func (a *Adapter) Name() string {
	return channelName
}

// Run starts long polling and hands each update to handler in arrival order.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	updates, err := a.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	a.log.Info("Telegram channel started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			if err := a.forward(ctx, handler, update); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				a.log.Error("Failed to forward update", "update_id", update.UpdateID, "error", err)
			}
		}
	}
}

func (a *Adapter) forward(ctx context.Context, handler channel.Handler, update telego.Update) error {
	raw, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("encode update: %w", err)
	}

	p, err := payload.New(raw)
	if err != nil {
		return err
	}

	senderID, err := p.UserID()
	if !a.allowFrom.Allows(senderID, err == nil) {
		a.log.Debug("Ignoring update from unauthorized sender", "update_id", update.UpdateID, "sender_id", senderID)
		return nil
	}

	variant, _ := p.Variant()
	a.log.Debug("Received update", "update_id", update.UpdateID, "variant", variant, "sender_id", senderID)

	return handler(ctx, bus.Update{
		Channel:  channelName,
		UpdateID: int64(update.UpdateID),
		Raw:      raw,
	})
}
