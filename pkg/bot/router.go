package bot

import (
	"cmp"
	"slices"
	"strings"
)

// HookFunc runs before or after dispatch, and for fallbacks.
type HookFunc func(c *Context) error

type hook struct {
	priority int
	fn       HookFunc
}

type fallback struct {
	paths []string
	fn    HookFunc
}

// Router collects the rules of one cycle. It is built fresh for every update
// and handed to the bot's RoutesFunc, so registrations may depend on the
// update being handled.
type Router struct {
	bot      *Bot
	ctx      *Context
	registry *Registry

	before    []hook
	after     []hook
	fallbacks []fallback
}

func newRouter(b *Bot, c *Context) *Router {
	return &Router{bot: b, ctx: c, registry: NewRegistry()}
}

// Context returns the cycle context, for routes that depend on the update.
func (r *Router) Context() *Context {
	return r.ctx
}

func (r *Router) Registry() *Registry {
	return r.registry
}

// On registers h for updates matching sel.
func (r *Router) On(sel Selector, h Handler, opts ...RuleOption) *Rule {
	return r.OnAny([]Selector{sel}, h, opts...)
}

// OnAny registers h for updates matching any of selectors.
func (r *Router) OnAny(selectors []Selector, h Handler, opts ...RuleOption) *Rule {
	rule := &Rule{Priority: DefaultPriority, Selectors: selectors, Handler: h}
	for _, opt := range opts {
		opt(rule)
	}

	r.registry.Register(rule)
	return rule
}

// Command registers h for a command message. Each pattern is tried with every
// configured prefix, so "start" answers "/start", "!start" and ".start".
// Nothing is registered when the update is not a command.
func (r *Router) Command(pattern string, h Handler, opts ...RuleOption) *Rule {
	return r.Commands([]string{pattern}, h, opts...)
}

func (r *Router) Commands(patterns []string, h Handler, opts ...RuleOption) *Rule {
	prefixes := r.bot.prefixes
	if !r.ctx.payload.IsCommand(prefixes) {
		return nil
	}

	expanded := make([]string, 0, len(patterns)*len(prefixes))
	for _, pattern := range patterns {
		pattern = strings.TrimLeft(pattern, strings.Join(prefixes, ""))
		for _, prefix := range prefixes {
			expanded = append(expanded, prefix+pattern)
		}
	}

	return r.On(FieldMatches("*.text", expanded...), h, opts...)
}

// Hear registers h for plain message text that is not a command.
func (r *Router) Hear(pattern string, h Handler, opts ...RuleOption) *Rule {
	p := r.ctx.payload
	if !p.IsMessage() || p.IsCommand(r.bot.prefixes) {
		return nil
	}
	return r.On(FieldMatches("message.text", pattern), h, opts...)
}

// Action registers h for callback query data.
func (r *Router) Action(pattern string, h Handler, opts ...RuleOption) *Rule {
	if !r.ctx.payload.IsCallbackQuery() {
		return nil
	}
	return r.On(FieldMatches("callback_query.data", pattern), h, opts...)
}

// Inline registers h for inline query text.
func (r *Router) Inline(pattern string, h Handler, opts ...RuleOption) *Rule {
	if !r.ctx.payload.IsInlineQuery() {
		return nil
	}
	return r.On(FieldMatches("inline_query.query", pattern), h, opts...)
}

// Conversation runs a conversation step immediately: when the current user
// waits on expected, h runs and the state moves to next (or ends when next is
// empty). Updates matching any of exceptions are left to ordinary rules.
func (r *Router) Conversation(expected, next string, h Handler, exceptions ...Selector) error {
	if h == nil {
		h = func(*Context, ...string) error { return nil }
	}
	return r.ctx.step(r.bot.dispatcher, expected, next, h, exceptions)
}

// Fallback runs fn when no rule fired and any of paths is present.
func (r *Router) Fallback(fn HookFunc, paths ...string) {
	r.fallbacks = append(r.fallbacks, fallback{paths: paths, fn: fn})
}

// BeforeRun registers a hook that runs before dispatch. Lower priorities run
// first. A hook returning ErrStop skips dispatch.
func (r *Router) BeforeRun(fn HookFunc, priority int) {
	r.before = append(r.before, hook{priority: priority, fn: fn})
}

// AfterRun registers a hook that runs after dispatch, including cycles whose
// events were skipped.
func (r *Router) AfterRun(fn HookFunc, priority int) {
	r.after = append(r.after, hook{priority: priority, fn: fn})
}

func sortedHooks(hooks []hook) []hook {
	sorted := slices.Clone(hooks)
	slices.SortStableFunc(sorted, func(a, b hook) int {
		return cmp.Compare(a.priority, b.priority)
	})
	return sorted
}
