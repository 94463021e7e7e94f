package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"roomsync/internal/registry"
	"roomsync/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait       = 10 * time.Second
	dispatchTimeout = 1900 * time.Millisecond
	cleanupTimeout  = 5 * time.Second
)

// Disconnect reasons handed to the coordinator and logged.
const (
	ReasonTransportClose = "transport close"
	ReasonTransportError = "transport error"
	ReasonPingTimeout    = "ping timeout"
	ReasonServerShutdown = "server shutting down"
)

type Options struct {
	PingInterval  time.Duration
	PingTimeout   time.Duration
	MaxFrameBytes int64
}

type WsServer struct {
	reg      *registry.Registry
	hub      *Hub
	fanout   Fanout
	router   *Router
	upgrader websocket.Upgrader
	opts     Options

	mu      sync.Mutex
	closing bool
	conns   map[*clientConn]struct{}
	wg      sync.WaitGroup
}

func NewWsServer(reg *registry.Registry, hub *Hub, fanout Fanout, opts Options) *WsServer {
	srv := &WsServer{
		reg:    reg,
		hub:    hub,
		fanout: fanout,
		router: NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		opts:  opts,
		conns: make(map[*clientConn]struct{}),
	}
	srv.registerHandlers() // ← all WS events configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry‑point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(s.opts.MaxFrameBytes)

	c := &clientConn{id: uuid.NewString(), rawConn: rawConn}
	if !s.track(c) {
		c.close()
		return
	}
	cc := &ConnContext{Session: session.New(s.reg, c.id), conn: c}
	zap.L().Info("ws.connect", zap.String("participant", c.id), zap.String("remote", ginCtx.ClientIP()))

	done := make(chan struct{})
	go s.reader(cc, done)
	go s.pinger(c, done)
}

// Shutdown closes every open connection and waits until each one has run
// its disconnect cleanup.
func (s *WsServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	conns := make([]*clientConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.close()
	}

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	Register(s.router, EventSetUsername,
		func(_ context.Context, cc *ConnContext, req SetUsernameRequest) ([]session.Output, error) {
			return cc.Session.SetName(req.Name), nil
		})
	Register(s.router, EventJoin,
		func(_ context.Context, cc *ConnContext, req RoomRequest) ([]session.Output, error) {
			return cc.Session.Join(req.RoomID), nil
		})
	Register(s.router, EventLeave,
		func(_ context.Context, cc *ConnContext, req RoomRequest) ([]session.Output, error) {
			return cc.Session.Leave(req.RoomID), nil
		})
	Register(s.router, EventMessage,
		func(_ context.Context, cc *ConnContext, req MessageRequest) ([]session.Output, error) {
			return cc.Session.Message(req.Body, req.RoomID), nil
		})
	Register(s.router, EventFileUpdate,
		func(_ context.Context, cc *ConnContext, req FileRequest) ([]session.Output, error) {
			return cc.Session.FileUpdate(req.Artifact, req.RoomID), nil
		})
	Register(s.router, EventFileMatch,
		func(_ context.Context, cc *ConnContext, req FileRequest) ([]session.Output, error) {
			return cc.Session.FileMatch(req.Artifact, req.RoomID), nil
		})
	Register(s.router, EventSetReady,
		func(_ context.Context, cc *ConnContext, req SetReadyRequest) ([]session.Output, error) {
			return cc.Session.SetReady(req.Ready, req.RoomID), nil
		})
}

func (s *WsServer) track(c *clientConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *WsServer) untrack(c *clientConn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *WsServer) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *WsServer) reader(cc *ConnContext, done chan<- struct{}) {
	conn := cc.conn
	reason := ReasonTransportClose
	defer func() {
		close(done)
		s.disconnect(cc, reason)
	}()

	liveness := s.opts.PingInterval + s.opts.PingTimeout
	_ = conn.rawConn.SetReadDeadline(time.Now().Add(liveness))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(liveness))
	})

	for {
		_, data, err := conn.rawConn.ReadMessage()
		if err != nil {
			reason = s.disconnectReason(err)
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.replyError(cc, "", err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		outs, err := s.router.dispatch(ctx, cc, env)
		if err != nil {
			// ---- error -> {"event":"server/error","args":[event, message]} ----
			s.replyError(cc, env.Event, err)
		} else {
			s.deliver(ctx, cc, outs)
		}
		cancel()
	}
}

// disconnect runs the coordinator cleanup while the connection is still in
// its rooms, then drops it.
func (s *WsServer) disconnect(cc *ConnContext, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	s.deliver(ctx, cc, cc.Session.Disconnecting(reason))
	cc.conn.close()
	s.untrack(cc.conn)
	zap.L().Info("ws.disconnect",
		zap.String("participant", cc.Session.ID()),
		zap.String("name", cc.Session.Name()),
		zap.String("reason", reason),
	)
}

func (s *WsServer) disconnectReason(err error) string {
	if s.isClosing() {
		return ReasonServerShutdown
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return ReasonTransportClose
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ReasonPingTimeout
	}
	return ReasonTransportError
}

// deliver applies the coordinator outputs in order.
func (s *WsServer) deliver(ctx context.Context, cc *ConnContext, outs []session.Output) {
	for _, o := range outs {
		zap.L().Debug("ws.deliver",
			zap.String("participant", cc.Session.ID()),
			zap.Stringer("kind", o.Kind),
			zap.String("room", o.Room),
			zap.String("event", o.Event),
		)
		switch o.Kind {
		case session.Reply:
			if err := cc.conn.writeJSON(newFrame(o)); err != nil {
				zap.L().Debug("ws.reply", zap.String("event", o.Event), zap.Error(err))
			}
		case session.Broadcast:
			msg, err := json.Marshal(newFrame(o))
			if err != nil {
				zap.L().Error("ws.encode", zap.String("event", o.Event), zap.Error(err))
				continue
			}
			if err := s.fanout.Publish(ctx, o.Room, cc.Session.ID(), msg); err != nil {
				zap.L().Warn("ws.publish", zap.String("room", o.Room), zap.Error(err))
			}
		case session.Enter:
			s.hub.Join(o.Room, cc.conn)
			s.fanout.Attach(o.Room)
		case session.Exit:
			s.hub.Leave(o.Room, cc.conn)
			s.fanout.Detach(o.Room)
		}
	}
}

func newFrame(o session.Output) Frame {
	args := o.Args
	if args == nil {
		args = []any{}
	}
	return Frame{Event: o.Event, Args: args}
}

func (s *WsServer) replyError(cc *ConnContext, event string, err error) {
	zap.L().Debug("ws.handler_error",
		zap.String("participant", cc.Session.ID()),
		zap.String("event", event),
		zap.Error(err),
	)
	_ = cc.conn.writeJSON(Frame{Event: eventError, Args: []any{event, err.Error()}})
}

func (s *WsServer) pinger(c *clientConn, done <-chan struct{}) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				c.close()
				return
			}
		}
	}
}
