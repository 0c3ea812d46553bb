package bot

import (
	"errors"
	"fmt"
	"strconv"
)

const conversationKeyPrefix = "conversation:"

func (c *Context) conversationKey() (string, error) {
	id, err := c.payload.UserID()
	if err != nil {
		id, err = c.payload.ChatID()
	}
	if err != nil {
		return "", err
	}
	return conversationKeyPrefix + strconv.FormatInt(id, 10), nil
}

// Conversation enters state for the current user. Conversation steps later in
// the same cycle do not run.
func (c *Context) Conversation(state string) error {
	key, err := c.conversationKey()
	if err != nil {
		return fmt.Errorf("enter conversation: %w", err)
	}

	if err := c.bot.store.Set(c.ctx, key, state); err != nil {
		return fmt.Errorf("enter conversation: %w", err)
	}

	c.conversationDone = true
	c.log.Debug("conversation entered", "state", state)
	return nil
}

// ConversationState returns the stored state of the current user.
func (c *Context) ConversationState() (string, bool, error) {
	key, err := c.conversationKey()
	if err != nil {
		return "", false, err
	}
	return c.bot.store.Get(c.ctx, key)
}

// ExitConversation clears the stored state of the current user.
func (c *Context) ExitConversation() error {
	key, err := c.conversationKey()
	if err != nil {
		return fmt.Errorf("exit conversation: %w", err)
	}

	if err := c.bot.store.Delete(c.ctx, key); err != nil {
		return fmt.Errorf("exit conversation: %w", err)
	}

	c.log.Debug("conversation exited")
	return nil
}

// step runs h when the current user waits on expected. On success the state
// moves to next, or is cleared when next is empty; ErrStop from h keeps it.
// A step that ran takes the update: remaining rules are skipped.
func (c *Context) step(d *Dispatcher, expected, next string, h Handler, exceptions []Selector) error {
	if len(exceptions) > 0 {
		if ok, _ := d.Matches(c, exceptions); ok {
			return nil
		}
	}

	if c.conversationDone {
		return nil
	}

	state, ok, err := c.ConversationState()
	if err != nil {
		return fmt.Errorf("conversation step %q: %w", expected, err)
	}
	if !ok || state != expected {
		return nil
	}

	c.conversationDone = true
	c.log.Debug("conversation step", "state", expected, "next", next)

	err = h(c)
	switch {
	case errors.Is(err, ErrStop):
	case err != nil:
		return fmt.Errorf("conversation step %q: %w", expected, err)
	case next == "":
		if err := c.ExitConversation(); err != nil {
			return err
		}
	default:
		key, err := c.conversationKey()
		if err != nil {
			return err
		}
		if err := c.bot.store.Set(c.ctx, key, next); err != nil {
			return fmt.Errorf("conversation step %q: %w", expected, err)
		}
	}

	c.SkipEvents()
	return nil
}
