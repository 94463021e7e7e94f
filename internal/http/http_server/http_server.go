package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"roomsync/internal/http/roomhandler"
	"roomsync/internal/registry"
	"roomsync/internal/ws"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type httpServer struct {
	listenPort uint16
	socketPath string
	srv        http.Server
	ln         net.Listener
	reg        *registry.Registry
	wsSrv      *ws.WsServer
	ctx        context.Context
}

func NewHttpServer(ctx context.Context, listenPort uint16, socketPath string, wsSrv *ws.WsServer, reg *registry.Registry) *httpServer {
	return &httpServer{
		listenPort: listenPort,
		socketPath: socketPath,
		wsSrv:      wsSrv,
		reg:        reg,
		ctx:        ctx,
	}
}

// Engine builds the gin router; split out so tests can serve it directly.
func (h *httpServer) Engine() *gin.Engine {
	routerEngine := gin.New()

	routerEngine.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	// websocket endpoint
	routerEngine.GET(h.socketPath, h.wsSrv.Handle)

	// Read-only room API
	rh := roomhandler.New(h.reg)
	rh.Register(routerEngine)

	return routerEngine
}

// Start blocks until the server is disposed or fails.
func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	h.srv = http.Server{
		Handler: h.Engine(),
	}
	zap.L().Info("http_listen", zap.String("addr", listenAddr), zap.String("socket_path", h.socketPath))

	if err := h.srv.Serve(h.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in‑flight requests and open sockets to finish.
func (h *httpServer) Dispose() error {
	// Create a context that times‑out after 10 s.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(h.ctx), 10*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by http.Server.
	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err
	}
	if err := h.wsSrv.Shutdown(ctx); err != nil {
		zap.L().Error("ws_dispose", zap.Error(err))
		return err
	}
	return nil
}
