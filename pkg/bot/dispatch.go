package bot

import (
	"errors"

	"litegram/pkg/match"
)

// Dispatcher evaluates flattened rules against one update.
type Dispatcher struct {
	matcher *match.Matcher
	lookup  func(name string) (Middleware, bool)
}

func NewDispatcher(matcher *match.Matcher, lookup func(name string) (Middleware, bool)) *Dispatcher {
	if matcher == nil {
		matcher = match.New()
	}
	return &Dispatcher{matcher: matcher, lookup: lookup}
}

// Dispatch runs every rule whose selectors match, in order. Within a rule only
// the first matching selector fires it. A handler or middleware returning
// ErrStop ends the dispatch without error; any other error ends it and is
// returned. fired reports whether at least one rule matched.
func (d *Dispatcher) Dispatch(c *Context, rules []*Rule) (fired bool, err error) {
	for _, rule := range rules {
		ok, args := d.Matches(c, rule.Selectors)
		if !ok {
			continue
		}

		fired = true
		c.args = args
		err := chain{rule: rule, args: args, lookup: d.lookup}.call(c, 0)
		c.args = nil

		if errors.Is(err, ErrStop) {
			c.Logger().Debug("dispatch stopped", "priority", rule.Priority)
			return fired, nil
		}
		if err != nil {
			return fired, err
		}
	}

	return fired, nil
}

// Matches reports whether any selector holds for the context's update,
// returning the captures of the first one that does.
func (d *Dispatcher) Matches(c *Context, selectors []Selector) (bool, []string) {
	for _, sel := range selectors {
		if ok, args := sel.test(c.payload, d.matcher); ok {
			return true, args
		}
	}
	return false, nil
}
