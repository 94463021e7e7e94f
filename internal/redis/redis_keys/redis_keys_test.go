package redis_keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamespace(t *testing.T) {
	ns := New("eu-1")
	assert.Equal(t, "roomsync:eu-1:owner", ns.Owner())
	assert.Equal(t, "roomsync:eu-1:rooms:active", ns.ActiveRooms())
	assert.Equal(t, "roomsync:eu-1:room:r1", ns.Room("r1"))
	assert.Equal(t, "roomsync:eu-1:room:r1:events", ns.RoomEvents("r1"))
	assert.Equal(t, "roomsync:eu-1:room::events", ns.RoomEvents(""))

	assert.NotEqual(t, New("a").Room("x"), New("b").Room("x"))
}
