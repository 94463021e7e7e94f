package ws

import (
	"sync"
)

// Hub keeps the live connections of every room on this process. A room
// exists only while it has at least one connection.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*room
}

func NewHub() *Hub { return &Hub{rooms: make(map[string]*room)} }

// Broadcast delivers msg to every connection in the room except exceptID.
func (h *Hub) Broadcast(roomID, exceptID string, msg []byte) {
	h.mu.Lock()
	r := h.rooms[roomID]
	h.mu.Unlock()

	if r != nil {
		r.broadcast(exceptID, msg)
	}
}

func (h *Hub) Join(roomID string, c *clientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomID]
	if !ok {
		r = newRoom()
		h.rooms[roomID] = r
	}
	r.add(c)
}

// Leave drops c from the room and forgets the room once it is empty.
func (h *Hub) Leave(roomID string, c *clientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomID]
	if !ok {
		return
	}
	r.remove(c)
	if r.size() == 0 {
		delete(h.rooms, roomID)
	}
}
