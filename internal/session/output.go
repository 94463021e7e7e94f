package session

// Outbound event names.
const (
	EventJoin       = "server/join"
	EventLeave      = "server/leave"
	EventUserJoin   = "server/user-join"
	EventUserLeave  = "server/user-leave"
	EventUserLeft   = "server/user-left"
	EventMessage    = "server/message"
	EventFileUpdate = "server/file-update"
	EventFileMatch  = "server/file-match"
	EventUsersReady = "server/users-ready"
)

type Kind int

const (
	// Reply goes to the acting participant only.
	Reply Kind = iota
	// Broadcast goes to every member of Room except the acting participant.
	Broadcast
	// Enter asks the transport to add the connection to Room.
	Enter
	// Exit asks the transport to remove the connection from Room.
	Exit
)

func (k Kind) String() string {
	switch k {
	case Reply:
		return "reply"
	case Broadcast:
		return "broadcast"
	case Enter:
		return "enter"
	case Exit:
		return "exit"
	}
	return "unknown"
}

// Output is one effect a handler asks the transport to carry out.
// Outputs must be applied in the order they were returned.
type Output struct {
	Kind  Kind
	Room  string
	Event string
	Args  []any
}

func reply(event string, args ...any) Output {
	return Output{Kind: Reply, Event: event, Args: args}
}

func broadcast(roomID, event string, args ...any) Output {
	return Output{Kind: Broadcast, Room: roomID, Event: event, Args: args}
}

func usersReady(roomID string, waiting []string) Output {
	return broadcast(roomID, EventUsersReady, len(waiting) == 0, waiting)
}
