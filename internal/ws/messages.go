package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"roomsync/internal/registry"
)

// Inbound event names.
const (
	EventSetUsername = "client/set-username"
	EventJoin        = "client/join"
	EventLeave       = "client/leave"
	EventMessage     = "client/message"
	EventFileUpdate  = "client/file-update"
	EventFileMatch   = "client/file-match"
	EventSetReady    = "client/set-ready"

	eventError = "server/error"
)

var (
	ErrMissingArgs = errors.New("missing_arguments")
	ErrBadArgs     = errors.New("malformed_arguments")
)

// Envelope wraps every inbound WS frame.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "client/join"
	Args  json.RawMessage `json:"args,omitempty"` // positional JSON array
}

// Frame is what the server writes for every outbound event.
type Frame struct {
	Event string `json:"event"`
	Args  []any  `json:"args"`
}

// decodeArgs unpacks a positional argument array into dst, in order.
// Extra arguments are ignored.
func decodeArgs(raw []byte, dst ...any) error {
	var args []json.RawMessage
	if err := json.Unmarshal(raw, &args); err != nil {
		return fmt.Errorf("%w: %v", ErrBadArgs, err)
	}
	if len(args) < len(dst) {
		return fmt.Errorf("%w: want %d, got %d", ErrMissingArgs, len(dst), len(args))
	}
	for i, d := range dst {
		if err := json.Unmarshal(args[i], d); err != nil {
			return fmt.Errorf("%w: argument %d: %v", ErrBadArgs, i, err)
		}
	}
	return nil
}

// ──────────────────────────── Request DTOs ─────────────────────────

// SetUsernameRequest is ["name"].
type SetUsernameRequest struct {
	Name string
}

func (r *SetUsernameRequest) UnmarshalJSON(b []byte) error { return decodeArgs(b, &r.Name) }

// RoomRequest is ["roomId"], used by join and leave. Room ids are opaque;
// the empty string is a valid room.
type RoomRequest struct {
	RoomID string
}

func (r *RoomRequest) UnmarshalJSON(b []byte) error { return decodeArgs(b, &r.RoomID) }

// MessageRequest is [body, "roomId"]; body is relayed untouched.
type MessageRequest struct {
	Body   json.RawMessage
	RoomID string
}

func (r *MessageRequest) UnmarshalJSON(b []byte) error { return decodeArgs(b, &r.Body, &r.RoomID) }

// FileRequest is [artifact, "roomId"], used by file-update and file-match.
type FileRequest struct {
	Artifact registry.Artifact
	RoomID   string
}

func (r *FileRequest) UnmarshalJSON(b []byte) error { return decodeArgs(b, &r.Artifact, &r.RoomID) }

// SetReadyRequest is [ready, "roomId"].
type SetReadyRequest struct {
	Ready  bool
	RoomID string
}

func (r *SetReadyRequest) UnmarshalJSON(b []byte) error { return decodeArgs(b, &r.Ready, &r.RoomID) }
