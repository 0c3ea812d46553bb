package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"litegram/pkg/bot"
	"litegram/pkg/bus"
	"litegram/pkg/channel"
	"litegram/pkg/config"
)

const recentEventLimit = 20

// ErrQueueClosed is returned to adapters once the gateway stops accepting updates.
var ErrQueueClosed = errors.New("update queue closed")

// Service runs the update adapters, feeds their updates through the bus into
// the bot, and serves health and status endpoints.
type Service struct {
	cfg      *config.Config
	log      *slog.Logger
	bus      *bus.MessageBus
	worker   *worker
	channels []channel.Adapter

	mu            sync.RWMutex
	startedAt     time.Time
	workerRunning bool
	channelStates map[string]channelState
	recent        []bus.Event
}

type channelState struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

type statusResponse struct {
	Status        string                  `json:"status"`
	UptimeSeconds int64                   `json:"uptime_seconds"`
	Mode          string                  `json:"mode"`
	Pending       int                     `json:"pending"`
	Dispatch      dispatchStats           `json:"dispatch"`
	Channels      map[string]channelState `json:"channels"`
	RecentEvents  []bus.Event             `json:"recent_events"`
}

func NewService(cfg *config.Config, b *bot.Bot, mb *bus.MessageBus, adapters []channel.Adapter, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if b == nil {
		return nil, errors.New("bot is required")
	}
	if len(adapters) == 0 {
		return nil, errors.New("at least one channel adapter is required")
	}
	if log == nil {
		log = slog.Default()
	}
	if mb == nil {
		mb = bus.NewMessageBus()
	}

	channelStates := make(map[string]channelState, len(adapters))
	for _, adapter := range adapters {
		channelStates[adapter.Name()] = channelState{}
	}

	return &Service{
		cfg:           cfg,
		log:           log.With("component", "gateway.service"),
		bus:           mb,
		worker:        newWorker(b, mb, log),
		channels:      adapters,
		channelStates: channelStates,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	events, unsubscribe := s.bus.SubscribeEvents(ctx, 64)
	defer unsubscribe()
	eventsDone := make(chan struct{})
	go func() {
		defer close(eventsDone)
		s.recordEvents(events)
	}()

	serverErrors := make(chan error, 1)
	go s.runServer(ctx, serverErrors)

	workerDone := make(chan struct{})
	s.setWorkerRunning(true)
	go func() {
		defer close(workerDone)
		defer s.setWorkerRunning(false)
		s.worker.run(ctx)
	}()

	errCh := make(chan error, len(s.channels))
	for _, adapter := range s.channels {
		s.setChannelState(adapter.Name(), channelState{Running: true})

		go func() {
			err := adapter.Run(ctx, s.enqueue)
			s.setChannelState(adapter.Name(), channelState{Running: false, Error: errorString(err)})
			if err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("run %s channel: %w", adapter.Name(), err)
			}
		}()
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-serverErrors:
	case err = <-errCh:
	}

	s.bus.Close()
	<-workerDone
	<-eventsDone
	return err
}

// enqueue is the channel.Handler given to every adapter.
func (s *Service) enqueue(ctx context.Context, update bus.Update) error {
	if !s.bus.PublishUpdate(ctx, update) {
		return ErrQueueClosed
	}

	s.bus.PublishEvent(ctx, bus.Event{
		Type:     bus.EventUpdateReceived,
		Channel:  update.Channel,
		UpdateID: update.UpdateID,
	})
	return nil
}

// Handler returns the gateway's HTTP routes, including webhook adapters.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /statusz", s.handleStatus)

	for _, adapter := range s.channels {
		if httpAdapter, ok := adapter.(channel.HTTPAdapter); ok {
			mux.Handle(httpAdapter.Pattern(), httpAdapter)
		}
	}
	return mux
}

func (s *Service) runServer(ctx context.Context, errCh chan<- error) {
	addr := s.cfg.Gateway.Addr()
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Gateway server started", "address", addr, "mode", s.cfg.Gateway.Mode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start gateway server: %w", err)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondStatus(w, statusCode, status)
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := "ready"
	if !s.isReady() {
		status = "not_ready"
	}
	s.respondStatus(w, http.StatusOK, status)
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	channels := make(map[string]channelState, len(s.channelStates))
	for name, state := range s.channelStates {
		channels[name] = state
	}

	return statusResponse{
		Status:        status,
		UptimeSeconds: uptime,
		Mode:          s.cfg.Gateway.Mode,
		Pending:       s.bus.Pending(),
		Dispatch:      s.worker.snapshot(),
		Channels:      channels,
		RecentEvents:  slices.Clone(s.recent),
	}
}

// recordEvents logs dispatch events and keeps the latest ones for /statusz.
// It returns once the subscription is closed.
func (s *Service) recordEvents(events <-chan bus.Event) {
	for event := range events {
		s.log.Debug("Gateway event", "type", event.Type, "channel", event.Channel, "update_id", event.UpdateID, "cycle_id", event.CycleID)

		s.mu.Lock()
		s.recent = append(s.recent, event)
		if extra := len(s.recent) - recentEventLimit; extra > 0 {
			s.recent = slices.Delete(s.recent, 0, extra)
		}
		s.mu.Unlock()
	}
}

// isReady requires the dispatch worker and at least one channel to be running.
func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.workerRunning {
		return false
	}

	for _, state := range s.channelStates {
		if state.Running {
			return true
		}
	}
	return false
}

func (s *Service) setWorkerRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workerRunning = running
}

func (s *Service) setChannelState(name string, state channelState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelStates[name] = state
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
