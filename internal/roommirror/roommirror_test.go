package roommirror

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"roomsync/internal/redis/redis_keys"
	"roomsync/internal/registry"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/require"
)

var ns = redis_keys.New("test")

func TestSyncOnce_WritesLiveAndDropsStale(t *testing.T) {
	reg := registry.New()
	reg.Join("a", "p1")
	reg.MarkNotReady("a", "p1")
	a, err := registry.NewArtifact(json.RawMessage(`{"length":3}`))
	require.NoError(t, err)
	reg.SetArtifact("a", a)
	sum, ok := reg.Summary("a")
	require.True(t, ok)

	rdb, mock := redismock.NewClientMock()
	mock.ExpectSMembers("roomsync:test:rooms:active").SetVal([]string{"roomsync:test:room:a", "roomsync:test:room:gone"})
	mock.ExpectTxPipeline()
	mock.ExpectHSet("roomsync:test:room:a",
		"members", 1,
		"waiting", `["p1"]`,
		"artifact_length", int64(3),
		"updated_at", sum.UpdatedAt.Unix(),
	).SetVal(4)
	mock.ExpectSAdd(ns.ActiveRooms(), ns.Room("a")).SetVal(0)
	mock.ExpectDel(ns.Room("gone")).SetVal(1)
	mock.ExpectSRem(ns.ActiveRooms(), ns.Room("gone")).SetVal(1)
	mock.ExpectTxPipelineExec()

	require.NoError(t, syncOnce(context.Background(), rdb, reg, ns))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncOnce_NothingToDo(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectSMembers(ns.ActiveRooms()).SetVal([]string{})

	require.NoError(t, syncOnce(context.Background(), rdb, registry.New(), ns))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncOnce_ReadFailure(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectSMembers(ns.ActiveRooms()).SetErr(errors.New("conn refused"))

	require.Error(t, syncOnce(context.Background(), rdb, registry.New(), ns))
	require.NoError(t, mock.ExpectationsWereMet())
}
