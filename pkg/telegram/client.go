// Package telegram is the outbound Bot API client used by handlers.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const messagePreviewLimit = 240

// sender is the subset of *telego.Bot the client calls.
type sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error
	SendChatAction(ctx context.Context, params *telego.SendChatActionParams) error
	SetWebhook(ctx context.Context, params *telego.SetWebhookParams) error
}

// Client sends replies through the Telegram Bot API.
type Client struct {
	api sender
	log *slog.Logger
}

// NewBot constructs a telego bot whose internal logging goes through log.
func NewBot(token string, log *slog.Logger) (*telego.Bot, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("telegram bot token is required")
	}
	if log == nil {
		log = slog.Default()
	}

	bot, err := telego.NewBot(token, telego.WithLogger(telegoLogger{log: log.With("component", "telego")}))
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}
	return bot, nil
}

func NewClient(bot *telego.Bot, log *slog.Logger) *Client {
	return newClient(bot, log)
}

func newClient(api sender, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{api: api, log: log.With("component", "telegram.client")}
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	c.log.Info("Sending message", "chat_id", chatID, "content", previewText(text))

	if _, err := c.api.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return nil
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	params := tu.CallbackQuery(callbackID)
	if text != "" {
		params = params.WithText(text)
	}

	if err := c.api.AnswerCallbackQuery(ctx, params); err != nil {
		return fmt.Errorf("answer callback %s: %w", callbackID, err)
	}
	return nil
}

func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	if action == "" {
		action = telego.ChatActionTyping
	}

	if err := c.api.SendChatAction(ctx, tu.ChatAction(tu.ID(chatID), action)); err != nil {
		return fmt.Errorf("send chat action to %d: %w", chatID, err)
	}
	return nil
}

// SetWebhook points Telegram at url, signing deliveries with secret.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	params := &telego.SetWebhookParams{URL: url, SecretToken: secret}
	if err := c.api.SetWebhook(ctx, params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	c.log.Info("Webhook registered", "url", url)
	return nil
}

// previewText returns a bounded log-safe preview of message text, cut on a rune boundary.
func previewText(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= messagePreviewLimit {
		return string(runes)
	}

	return string(runes[:messagePreviewLimit]) + "..."
}

// telegoLogger routes telego's printf-style logging into slog.
type telegoLogger struct {
	log *slog.Logger
}

func (l telegoLogger) Debugf(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l telegoLogger) Errorf(format string, args ...any) {
	l.log.Error(fmt.Sprintf(format, args...))
}
