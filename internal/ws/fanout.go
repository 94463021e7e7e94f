package ws

import "context"

// Fanout carries room broadcasts to the members of a room. Attach and
// Detach are called whenever a local connection enters or leaves a room.
type Fanout interface {
	Publish(ctx context.Context, roomID, senderID string, msg []byte) error
	Attach(roomID string)
	Detach(roomID string)
}

// LocalFanout delivers straight to the in-process Hub.
type LocalFanout struct {
	hub *Hub
}

func NewLocalFanout(hub *Hub) *LocalFanout { return &LocalFanout{hub: hub} }

func (f *LocalFanout) Publish(_ context.Context, roomID, senderID string, msg []byte) error {
	f.hub.Broadcast(roomID, senderID, msg)
	return nil
}

func (f *LocalFanout) Attach(string) {}
func (f *LocalFanout) Detach(string) {}
