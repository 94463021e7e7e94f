package roomhandler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"roomsync/internal/registry"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*gin.Engine, *registry.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := registry.New()
	engine := gin.New()
	New(reg).Register(engine)
	return engine, reg
}

func get(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	engine.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	engine, reg := setup(t)
	reg.EnsureRoom("a")

	w := get(engine, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","rooms":1}`, w.Body.String())
}

func TestRoomInfo(t *testing.T) {
	engine, reg := setup(t)
	reg.Join("r1", "p1")
	reg.Join("r1", "p2")
	reg.MarkNotReady("r1", "p2")

	w := get(engine, "/rooms/r1")
	require.Equal(t, http.StatusOK, w.Code)
	var sum registry.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	assert.Equal(t, "r1", sum.ID)
	assert.Equal(t, 2, sum.Members)
	assert.Equal(t, []string{"p2"}, sum.Waiting)

	w = get(engine, "/rooms/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRooms_Paginates(t *testing.T) {
	engine, reg := setup(t)
	for i := 0; i < 5; i++ {
		reg.EnsureRoom(fmt.Sprintf("room-%d", i))
	}

	w := get(engine, "/rooms?limit=2&offset=1")
	require.Equal(t, http.StatusOK, w.Code)
	var sums []registry.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sums))
	require.Len(t, sums, 2)
	assert.Equal(t, "room-1", sums[0].ID)
	assert.Equal(t, "room-2", sums[1].ID)

	w = get(engine, "/rooms?offset=10")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = get(engine, "/rooms")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sums))
	assert.Len(t, sums, 5)
}

func TestListRooms_BadQuery(t *testing.T) {
	engine, _ := setup(t)

	assert.Equal(t, http.StatusBadRequest, get(engine, "/rooms?limit=500").Code)
	assert.Equal(t, http.StatusBadRequest, get(engine, "/rooms?offset=-1").Code)
}
