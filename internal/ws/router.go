package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"roomsync/internal/session"
)

var ErrUnknownEvent = errors.New("unknown_event")

// ConnContext is what every handler sees of the connection it serves.
type ConnContext struct {
	Session *session.Coordinator
	conn    *clientConn
}

// internal (untyped) handler signature.
type rawHandler func(ctx context.Context, c *ConnContext, args json.RawMessage) ([]session.Output, error)

// Router keeps a map[event]handler, à‑la gin.Engine.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
}

func NewRouter() *Router { return &Router{handlers: make(map[string]rawHandler)} }

// Register binds an event to a strongly‑typed handler. The positional
// arguments are decoded into Req before h runs.
func Register[Req any](
	r *Router,
	event string,
	h func(ctx context.Context, c *ConnContext, req Req) ([]session.Output, error),
) {
	if event == "" {
		panic("ws router: empty event")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[event] = func(ctx context.Context, c *ConnContext, args json.RawMessage) ([]session.Output, error) {
		if len(args) == 0 || string(args) == "null" {
			args = json.RawMessage("[]")
		}
		var req Req
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, err
		}
		return h(ctx, c, req)
	}
}

// dispatch is called by the server’s reader loop.
func (r *Router) dispatch(ctx context.Context, c *ConnContext, env Envelope) ([]session.Output, error) {
	r.mu.RLock()
	h, ok := r.handlers[env.Event]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownEvent
	}
	return h(ctx, c, env.Args)
}
