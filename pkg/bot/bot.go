// Package bot routes updates to handlers: rules with selectors and priorities,
// continuation-passing middleware, and per-user conversations kept in a store.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"litegram/pkg/match"
	"litegram/pkg/payload"
	"litegram/pkg/store"
)

var (
	// ErrStop ends dispatch of the current update without reporting an error.
	ErrStop = errors.New("stop dispatch")
	// ErrUnknownMiddleware is returned when a rule names middleware that was never registered.
	ErrUnknownMiddleware = errors.New("unknown middleware")
	ErrNoAPI             = errors.New("bot has no API client")
	ErrNotCallback       = errors.New("update is not a callback query")
)

// DefaultPrefixes are the command prefixes used when none are configured.
var DefaultPrefixes = []string{"/", "!", "."}

// Handler handles a matched update. args are the pattern captures.
type Handler func(c *Context, args ...string) error

// RoutesFunc registers the rules of one cycle.
type RoutesFunc func(r *Router) error

// API is the outbound side of the chat platform used by Context replies.
type API interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
}

// Report summarises one update cycle.
type Report struct {
	CycleID  string
	Rules    int
	Fired    bool
	Skipped  bool
	Fallback bool
	Duration time.Duration
}

type Option func(*Bot)

func WithAPI(api API) Option {
	return func(b *Bot) { b.api = api }
}

func WithStore(s store.Store) Option {
	return func(b *Bot) { b.store = s }
}

func WithLogger(log *slog.Logger) Option {
	return func(b *Bot) { b.log = log }
}

func WithPrefixes(prefixes ...string) Option {
	return func(b *Bot) {
		if len(prefixes) > 0 {
			b.prefixes = prefixes
		}
	}
}

func WithMatcher(m *match.Matcher) Option {
	return func(b *Bot) { b.matcher = m }
}

// Bot holds configuration shared by every cycle. Rules are not kept between
// cycles; routes rebuilds them for each update.
type Bot struct {
	api      API
	store    store.Store
	log      *slog.Logger
	prefixes []string
	matcher  *match.Matcher
	routes   RoutesFunc

	dispatcher *Dispatcher

	mu          sync.RWMutex
	middlewares map[string]Middleware
}

func New(routes RoutesFunc, opts ...Option) *Bot {
	b := &Bot{
		routes:      routes,
		prefixes:    DefaultPrefixes,
		middlewares: make(map[string]Middleware),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.store == nil {
		b.store = store.NewMemory()
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	b.log = b.log.With("component", "bot")
	b.dispatcher = NewDispatcher(b.matcher, b.middleware)

	return b
}

// Middleware registers named middleware referenced by MiddlewareName.
func (b *Bot) Middleware(name string, mw Middleware) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.middlewares[name] = mw
}

func (b *Bot) middleware(name string) (Middleware, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	mw, ok := b.middlewares[name]
	return mw, ok
}

func (b *Bot) Prefixes() []string {
	return b.prefixes
}

func (b *Bot) Store() store.Store {
	return b.store
}

// RunRaw decodes raw update JSON and runs one cycle.
func (b *Bot) RunRaw(ctx context.Context, raw []byte) (Report, error) {
	p, err := payload.New(raw)
	if err != nil {
		return Report{}, err
	}
	return b.Run(ctx, p)
}

// Run handles one update: routes are rebuilt, before hooks run, the rules are
// dispatched unless events were skipped (with fallbacks when nothing fired),
// and after hooks run.
func (b *Bot) Run(ctx context.Context, p *payload.Payload) (report Report, err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	report = Report{CycleID: uuid.NewString()}
	c := newContext(ctx, b, p, report.CycleID)
	r := newRouter(b, c)

	defer func() {
		report.Duration = time.Since(start)
	}()

	if b.routes != nil {
		if err := b.routes(r); err != nil {
			return report, fmt.Errorf("build routes: %w", err)
		}
	}
	report.Rules = r.registry.Len()

	for _, h := range sortedHooks(r.before) {
		err := h.fn(c)
		if errors.Is(err, ErrStop) {
			c.SkipEvents()
			break
		}
		if err != nil {
			return report, fmt.Errorf("before run: %w", err)
		}
	}

	report.Skipped = c.EventsSkipped()
	if !report.Skipped {
		fired, err := b.dispatcher.Dispatch(c, r.registry.Flatten())
		report.Fired = fired
		if err != nil {
			return report, fmt.Errorf("dispatch: %w", err)
		}

		if !fired {
			ran, err := b.runFallbacks(c, r.fallbacks)
			report.Fallback = ran
			if err != nil {
				return report, fmt.Errorf("fallback: %w", err)
			}
		}
	}

	for _, h := range sortedHooks(r.after) {
		err := h.fn(c)
		if errors.Is(err, ErrStop) {
			break
		}
		if err != nil {
			return report, fmt.Errorf("after run: %w", err)
		}
	}

	r.registry.Clear()

	c.Logger().Debug("update handled",
		"rules", report.Rules,
		"fired", report.Fired,
		"skipped", report.Skipped,
		"fallback", report.Fallback,
	)
	return report, nil
}

func (b *Bot) runFallbacks(c *Context, fallbacks []fallback) (bool, error) {
	ran := false
	for _, fb := range fallbacks {
		for _, path := range fb.paths {
			if !c.payload.Exists(path) {
				continue
			}

			ran = true
			err := fb.fn(c)
			if errors.Is(err, ErrStop) {
				return ran, nil
			}
			if err != nil {
				return ran, err
			}
			break
		}
	}
	return ran, nil
}
