package bot

import "fmt"

// Next continues a middleware chain.
type Next func(c *Context) error

// Middleware wraps a rule's handler. Returning without calling next
// short-circuits the rule; returning ErrStop also aborts the dispatch.
type Middleware func(c *Context, rule *Rule, next Next) error

// MiddlewareName refers to middleware registered on the Bot by name.
type MiddlewareName string

// MiddlewareRef is a Middleware or a MiddlewareName.
type MiddlewareRef interface {
	middlewareRef()
}

func (Middleware) middlewareRef()     {}
func (MiddlewareName) middlewareRef() {}

// chain walks a rule's middleware with an index cursor; the rule's list is
// never modified.
type chain struct {
	rule   *Rule
	args   []string
	lookup func(name string) (Middleware, bool)
}

func (ch chain) call(c *Context, i int) error {
	if i >= len(ch.rule.Middlewares) {
		if ch.rule.Handler == nil {
			return nil
		}
		return ch.rule.Handler(c, ch.args...)
	}

	mw, err := ch.resolve(ch.rule.Middlewares[i])
	if err != nil {
		return err
	}
	if mw == nil {
		return ch.call(c, i+1)
	}

	return mw(c, ch.rule, func(c *Context) error {
		return ch.call(c, i+1)
	})
}

func (ch chain) resolve(ref MiddlewareRef) (Middleware, error) {
	switch v := ref.(type) {
	case Middleware:
		return v, nil
	case MiddlewareName:
		if ch.lookup != nil {
			if mw, ok := ch.lookup(string(v)); ok {
				return mw, nil
			}
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownMiddleware, string(v))
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMiddleware, ref)
	}
}
