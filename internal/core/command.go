package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom subscribes the client to a room after authorization.
	CommandJoinRoom CommandKind = iota
	// CommandLeaveRoom unsubscribes the client from a room.
	CommandLeaveRoom
	// CommandTyping relays a typing indicator to the other room members.
	CommandTyping
	// CommandSendRoomMessage persists a chat message and delivers it to room members.
	CommandSendRoomMessage
)

// Command represents an action requested by a client.
type Command struct {
	Kind CommandKind
	Room string
	Text string
	Type string
	Meta map[string]any

	authorized bool // set by the client pump for joins
}
