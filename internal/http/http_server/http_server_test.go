package http_server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"roomsync/internal/registry"
	"roomsync/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_RoutesSocketAndApi(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := registry.New()
	hub := ws.NewHub()
	wsSrv := ws.NewWsServer(reg, hub, ws.NewLocalFanout(hub), ws.Options{
		PingInterval:  time.Second,
		PingTimeout:   time.Second,
		MaxFrameBytes: 4096,
	})
	h := NewHttpServer(context.Background(), 5000, "/sync", wsSrv, reg)

	ts := httptest.NewServer(h.Engine())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/sync", nil)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(map[string]any{"event": ws.EventJoin, "args": []string{"r"}}))

	var frame struct {
		Event string `json:"event"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "server/join", frame.Event)
	_ = conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, wsSrv.Shutdown(ctx))
}
