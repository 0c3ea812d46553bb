// Package webhook receives Telegram updates pushed over HTTP.
package webhook

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"litegram/pkg/bus"
	"litegram/pkg/channel"
	"litegram/pkg/payload"
)

const (
	channelName = "webhook"

	// SecretHeader carries the secret_token registered with setWebhook.
	SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

	maxBodyBytes = 1 << 20
)

// Adapter serves the webhook endpoint. Requests are only accepted while Run
// is active.
type Adapter struct {
	pattern   string
	secret    string
	allowFrom channel.Allowlist
	log       *slog.Logger

	mu      sync.RWMutex
	handler channel.Handler
}

func NewAdapter(path, secret string, allowFrom []string, log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		pattern:   "POST " + path,
		secret:    secret,
		allowFrom: channel.NewAllowlist(allowFrom),
		log:       log.With("component", "channel.webhook"),
	}
}

func (a *Adapter) Name() string {
	return channelName
}

// Pattern is the ServeMux pattern the adapter is mounted on.
func (a *Adapter) Pattern() string {
	return a.pattern
}

// Run accepts updates until ctx is done.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	a.mu.Lock()
	a.handler = handler
	a.mu.Unlock()

	if a.secret == "" {
		a.log.Warn("Webhook has no secret token; any caller can inject updates")
	}
	a.log.Info("Webhook channel started", "pattern", a.pattern)

	<-ctx.Done()

	a.mu.Lock()
	a.handler = nil
	a.mu.Unlock()
	return nil
}

func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.RLock()
	handler := a.handler
	a.mu.RUnlock()

	if handler == nil {
		http.Error(w, "webhook not running", http.StatusServiceUnavailable)
		return
	}

	if a.secret != "" {
		got := r.Header.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(a.secret)) != 1 {
			a.log.Warn("Rejected webhook request with bad secret", "remote", r.RemoteAddr)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		a.log.Warn("Failed to read webhook body", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "unreadable request body", http.StatusBadRequest)
		return
	}

	p, err := payload.New(body)
	if err != nil {
		http.Error(w, "invalid update", http.StatusBadRequest)
		return
	}

	updateID := p.UpdateID()
	sender, err := p.UserID()
	if !a.allowFrom.Allows(sender, err == nil) {
		a.log.Debug("Ignoring update from unauthorized sender", "update_id", updateID, "sender_id", sender)
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := handler(r.Context(), bus.Update{Channel: channelName, UpdateID: updateID, Raw: body}); err != nil {
		a.log.Error("Failed to queue update", "update_id", updateID, "error", err)
		http.Error(w, "update not accepted", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
}
