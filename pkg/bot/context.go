package bot

import (
	"context"
	"log/slog"

	"litegram/pkg/payload"
	"litegram/pkg/store"
)

// Context carries one update through a cycle. It is not shared between cycles.
type Context struct {
	ctx     context.Context
	bot     *Bot
	payload *payload.Payload
	log     *slog.Logger
	cycleID string

	args []string
	vars map[string]any

	skipEvents       bool
	conversationDone bool
}

func newContext(ctx context.Context, b *Bot, p *payload.Payload, cycleID string) *Context {
	return &Context{
		ctx:     ctx,
		bot:     b,
		payload: p,
		cycleID: cycleID,
		log:     b.log.With("update_id", p.UpdateID(), "cycle_id", cycleID),
		vars:    make(map[string]any),
	}
}

// Context returns the Go context of the cycle.
func (c *Context) Context() context.Context {
	return c.ctx
}

func (c *Context) Payload() *payload.Payload {
	return c.payload
}

// Get resolves a payload path, returning def when it is absent.
func (c *Context) Get(path, def string) string {
	return c.payload.Get(path, def)
}

// Args returns the captures of the rule being handled.
func (c *Context) Args() []string {
	return c.args
}

func (c *Context) CycleID() string {
	return c.cycleID
}

func (c *Context) Logger() *slog.Logger {
	return c.log
}

func (c *Context) Var(name string) (any, bool) {
	v, ok := c.vars[name]
	return v, ok
}

func (c *Context) SetVar(name string, value any) {
	c.vars[name] = value
}

func (c *Context) Storage() store.Store {
	return c.bot.store
}

// Session returns the per-chat session of the update's chat.
func (c *Context) Session() (*store.Session, error) {
	chatID, err := c.payload.ChatID()
	if err != nil {
		return nil, err
	}
	return store.NewSession(c.bot.store, chatID), nil
}

// SkipEvents suppresses ordinary rule dispatch for the rest of the cycle.
func (c *Context) SkipEvents() {
	c.skipEvents = true
}

func (c *Context) EventsSkipped() bool {
	return c.skipEvents
}

// Reply sends text to the chat the update came from.
func (c *Context) Reply(text string) error {
	if c.bot.api == nil {
		return ErrNoAPI
	}

	chatID, err := c.payload.ChatID()
	if err != nil {
		return err
	}
	return c.bot.api.SendMessage(c.ctx, chatID, text)
}

// ReplyAction shows a chat action such as "typing".
func (c *Context) ReplyAction(action string) error {
	if c.bot.api == nil {
		return ErrNoAPI
	}

	chatID, err := c.payload.ChatID()
	if err != nil {
		return err
	}
	return c.bot.api.SendChatAction(c.ctx, chatID, action)
}

// AnswerCallback acknowledges the callback query of the update.
func (c *Context) AnswerCallback(text string) error {
	if c.bot.api == nil {
		return ErrNoAPI
	}

	id := c.payload.CallbackID()
	if id == "" {
		return ErrNotCallback
	}
	return c.bot.api.AnswerCallbackQuery(c.ctx, id, text)
}
