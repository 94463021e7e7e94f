// Package session holds the per-connection coordination logic. A
// Coordinator applies one participant's events to the shared registry and
// returns the notifications the transport has to deliver.
package session

import (
	"encoding/json"

	"roomsync/internal/registry"

	"go.uber.org/zap"
)

// Coordinator is bound to one participant connection. It is not safe for
// concurrent use: the transport feeds it one event at a time, in arrival
// order, which is what keeps a join fully applied before the next vote.
type Coordinator struct {
	reg   *registry.Registry
	id    string
	name  string
	rooms []string // joined rooms, at most one after any Join
}

func New(reg *registry.Registry, participantID string) *Coordinator {
	return &Coordinator{
		reg:  reg,
		id:   participantID,
		name: participantID,
	}
}

func (c *Coordinator) ID() string   { return c.id }
func (c *Coordinator) Name() string { return c.name }

func (c *Coordinator) Rooms() []string {
	return append([]string(nil), c.rooms...)
}

func (c *Coordinator) joined(roomID string) bool {
	for _, r := range c.rooms {
		if r == roomID {
			return true
		}
	}
	return false
}

func (c *Coordinator) forget(roomID string) {
	kept := c.rooms[:0]
	for _, r := range c.rooms {
		if r != roomID {
			kept = append(kept, r)
		}
	}
	c.rooms = kept
}

func (c *Coordinator) SetName(name string) []Output {
	c.name = name
	zap.L().Debug("session.set_name", zap.String("participant", c.id), zap.String("name", name))
	return nil
}

// Join moves the participant into roomID, leaving whatever room it was in.
// Re-joining the current room only repeats the ack.
func (c *Coordinator) Join(roomID string) []Output {
	var out []Output
	for _, prev := range c.Rooms() {
		if prev == roomID {
			continue
		}
		out = append(out, c.leave(prev)...)
	}

	if c.joined(roomID) {
		return append(out, reply(EventJoin, roomID, c.reg.EnsureRoom(roomID)))
	}

	snap := c.reg.Join(roomID, c.id)
	c.rooms = append(c.rooms, roomID)
	zap.L().Debug("session.join",
		zap.String("participant", c.id),
		zap.String("room", roomID),
		zap.Int("waiting", len(snap.Wait)),
	)
	return append(out,
		Output{Kind: Enter, Room: roomID},
		reply(EventJoin, roomID, snap),
		broadcast(roomID, EventUserJoin, c.id, c.name),
	)
}

// Leave always acks; the room only hears about it when the participant
// was actually a member.
func (c *Coordinator) Leave(roomID string) []Output {
	if !c.joined(roomID) {
		return []Output{reply(EventLeave, roomID)}
	}
	return append(c.leave(roomID), reply(EventLeave, roomID))
}

func (c *Coordinator) leave(roomID string) []Output {
	var out []Output
	if changed, waiting := c.reg.Leave(roomID, c.id); changed {
		out = append(out, usersReady(roomID, waiting))
	}
	c.forget(roomID)
	zap.L().Debug("session.leave", zap.String("participant", c.id), zap.String("room", roomID))
	return append(out,
		broadcast(roomID, EventUserLeave, c.id, c.name),
		Output{Kind: Exit, Room: roomID},
	)
}

// Message relays body to the room verbatim. Membership is not checked.
func (c *Coordinator) Message(body json.RawMessage, roomID string) []Output {
	return []Output{broadcast(roomID, EventMessage, body, c.id)}
}

// FileUpdate overwrites the room artifact. A late update silently wins.
func (c *Coordinator) FileUpdate(a registry.Artifact, roomID string) []Output {
	c.reg.SetArtifact(roomID, a)
	zap.L().Debug("session.file_update",
		zap.String("participant", c.id),
		zap.String("room", roomID),
		zap.Int64("length", a.Length()),
	)
	return []Output{broadcast(roomID, EventFileUpdate, a, c.id)}
}

func (c *Coordinator) FileMatch(a registry.Artifact, roomID string) []Output {
	return []Output{reply(EventFileMatch, c.reg.ArtifactMatches(roomID, a))}
}

// SetReady records a readiness vote. The room is told only when the
// waiting set actually changed.
func (c *Coordinator) SetReady(ready bool, roomID string) []Output {
	var (
		changed bool
		waiting []string
	)
	if ready {
		changed, waiting = c.reg.ClearNotReady(roomID, c.id)
	} else {
		changed, waiting = c.reg.MarkNotReady(roomID, c.id)
	}
	if !changed {
		return nil
	}
	return []Output{usersReady(roomID, waiting)}
}

// Disconnecting runs before the transport drops the connection from its
// rooms. Afterwards the participant belongs to no room.
func (c *Coordinator) Disconnecting(reason string) []Output {
	var out []Output
	for _, roomID := range c.rooms {
		out = append(out, broadcast(roomID, EventUserLeft, c.id))
		if changed, waiting := c.reg.Leave(roomID, c.id); changed {
			out = append(out, usersReady(roomID, waiting))
		}
		out = append(out, Output{Kind: Exit, Room: roomID})
	}
	zap.L().Debug("session.disconnecting",
		zap.String("participant", c.id),
		zap.Strings("rooms", c.rooms),
		zap.String("reason", reason),
	)
	c.rooms = nil
	return out
}
