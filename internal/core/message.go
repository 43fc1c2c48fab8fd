package core

import (
	"time"

	"github.com/campusconnect/campusconnect-server/internal/store"
)

// Author is the public view of a message author.
type Author struct {
	ID   int64
	Name string
	Role string
}

// ReplyPreview is the enrichment attached to a reply.
type ReplyPreview struct {
	ID   int64
	Text string
	From Author
}

// Message is the formatted room message delivered to clients.
type Message struct {
	ID        int64
	Room      string
	Type      string
	Text      string
	Meta      map[string]any
	ReplyTo   *ReplyPreview
	From      Author
	CreatedAt time.Time
}

func formatMessage(msg *store.Message, from *Identity, reply *ReplyPreview) *Message {
	return &Message{
		ID:        msg.ID,
		Room:      msg.Room,
		Type:      string(msg.Type),
		Text:      msg.Text,
		Meta:      msg.Meta,
		ReplyTo:   reply,
		From:      Author{ID: from.ID, Name: from.Name, Role: from.Role},
		CreatedAt: msg.CreatedAt,
	}
}

func messageType(t string) store.MessageType {
	switch store.MessageType(t) {
	case store.MessageTypeImage, store.MessageTypeFile:
		return store.MessageType(t)
	default:
		return store.MessageTypeText
	}
}
