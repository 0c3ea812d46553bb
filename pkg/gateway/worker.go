package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"litegram/pkg/bot"
	"litegram/pkg/bus"
	"litegram/pkg/payload"
)

// worker is the single consumer of the update queue. Updates are dispatched
// one at a time in arrival order.
type worker struct {
	bot *bot.Bot
	bus *bus.MessageBus
	log *slog.Logger

	mu    sync.Mutex
	stats dispatchStats
}

type dispatchStats struct {
	Handled      int64  `json:"handled"`
	Unhandled    int64  `json:"unhandled"`
	Failed       int64  `json:"failed"`
	LastUpdateAt string `json:"last_update_at,omitempty"`
	LastError    string `json:"last_error,omitempty"`
}

// errPanic marks a handler panic recovered by the worker.
var errPanic = errors.New("handler panicked")

func newWorker(b *bot.Bot, mb *bus.MessageBus, log *slog.Logger) *worker {
	return &worker{bot: b, bus: mb, log: log.With("component", "gateway.worker")}
}

func (w *worker) run(ctx context.Context) {
	for {
		update, ok := w.bus.ConsumeUpdate(ctx)
		if !ok {
			return
		}
		w.process(ctx, update)
	}
}

func (w *worker) process(ctx context.Context, update bus.Update) {
	start := time.Now()
	report, err := w.dispatch(ctx, update)

	event := bus.Event{
		Channel:  update.Channel,
		UpdateID: update.UpdateID,
		CycleID:  report.CycleID,
		Details: map[string]string{
			"rules":       strconv.Itoa(report.Rules),
			"duration_ms": strconv.FormatInt(time.Since(start).Milliseconds(), 10),
		},
	}

	w.mu.Lock()
	w.stats.LastUpdateAt = time.Now().UTC().Format(time.RFC3339)
	switch {
	case err != nil:
		w.stats.Failed++
		w.stats.LastError = err.Error()
		event.Type = bus.EventUpdateFailed
		event.Error = err.Error()
	case report.Fired || report.Skipped || report.Fallback:
		w.stats.Handled++
		event.Type = bus.EventUpdateHandled
	default:
		w.stats.Unhandled++
		event.Type = bus.EventUpdateUnhandled
	}
	w.mu.Unlock()

	if err != nil {
		w.log.Error("Update failed", "channel", update.Channel, "update_id", update.UpdateID, "cycle_id", report.CycleID, "error", err)
	} else {
		w.log.Debug("Update dispatched", "channel", update.Channel, "update_id", update.UpdateID, "event", event.Type)
	}

	w.bus.PublishEvent(ctx, event)
}

// dispatch runs one bot cycle, turning a handler panic into an error.
func (w *worker) dispatch(ctx context.Context, update bus.Update) (report bot.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Recovered handler panic", "update_id", update.UpdateID, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()

	p, err := payload.New(update.Raw)
	if err != nil {
		return bot.Report{}, err
	}

	return w.bot.Run(ctx, p)
}

func (w *worker) snapshot() dispatchStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
