package channel

import (
	"context"
	"net/http"

	"litegram/pkg/bus"
)

// Handler accepts one raw update from a transport. It returns once the update
// is queued, not when it has been dispatched.
type Handler func(context.Context, bus.Update) error

// Adapter bridges one external transport (for example Telegram long polling) into the gateway.
type Adapter interface {
	Name() string
	Run(context.Context, Handler) error
}

// HTTPAdapter is an Adapter that receives updates over the gateway's HTTP server.
type HTTPAdapter interface {
	Adapter
	http.Handler
	Pattern() string
}
