package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomMessage delivers a newly created room message.
	EventRoomMessage EventKind = iota
	// EventOnlineUsers carries the full presence snapshot of a room.
	EventOnlineUsers
	// EventUserTyping tells room members someone is typing.
	EventUserTyping
)

// Event is sent to clients to describe what happened in the system.
// Events are shared between recipients and must not be modified.
type Event struct {
	Kind    EventKind
	Room    string
	Message *Message
	Online  []int64 // EventOnlineUsers
	Typing  *Typing // EventUserTyping
}

// Typing identifies who is typing.
type Typing struct {
	IdentityID  int64
	DisplayName string
}
