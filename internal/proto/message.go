package proto

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoinRoom  = "join-room"
	InboundTypeLeaveRoom = "leave-room"
	InboundTypeTyping    = "typing"
	InboundTypeMessage   = "message"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventOnlineUsers = "online-users"
	EventUserTyping  = "user-typing"
	EventMessageNew  = "message:new"
)

// RoomData names the room of a join-room, leave-room or typing request.
// The payload is either a bare JSON string or {"room": "..."}.
type RoomData struct {
	Room string `json:"room"`
}

// UnmarshalJSON accepts both payload shapes.
func (r *RoomData) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &r.Room)
	}
	if len(b) == 0 || b[0] != '{' {
		return errors.New("room must be a string or object")
	}
	type plain RoomData
	return json.Unmarshal(b, (*plain)(r))
}

// MsgData is a chat message from the client.
type MsgData struct {
	Room string         `json:"room"`
	Text string         `json:"text"`
	Type string         `json:"type,omitempty"`
	Meta map[string]any `json:"meta,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Room  string `json:"room,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Author is the public view of a user attached to messages.
type Author struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// ReplyPreview summarizes the message a reply refers to.
type ReplyPreview struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	From Author `json:"from"`
}

// EventMessage is the payload of message:new.
type EventMessage struct {
	ID        int64          `json:"id"`
	Room      string         `json:"room"`
	Type      string         `json:"type"`
	Text      string         `json:"text"`
	Meta      map[string]any `json:"meta"`
	ReplyTo   *ReplyPreview  `json:"replyTo"`
	From      Author         `json:"from"`
	CreatedAt string         `json:"createdAt"`
}

// UserTypingData is the payload of user-typing.
type UserTypingData struct {
	IdentityID  int64  `json:"identityId"`
	DisplayName string `json:"displayName"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
