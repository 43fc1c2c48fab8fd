package http

import (
	"encoding/json"
	"time"

	"github.com/campusconnect/campusconnect-server/internal/core"
	"github.com/campusconnect/campusconnect-server/internal/proto"
)

// inboundToCommand decodes a client envelope. A non-nil *proto.Error is reported back to
// the client; the connection stays open.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeJoinRoom, proto.InboundTypeLeaveRoom, proto.InboundTypeTyping:
		var data proto.RoomData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, protoError(core.BadRequest("invalid room payload"))
		}
		if data.Room == "" {
			return nil, protoError(core.BadRequest("room is required"))
		}
		return &core.Command{Kind: roomCommandKind(inbound.Type), Room: data.Room}, nil

	case proto.InboundTypeMessage:
		var msg proto.MsgData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, protoError(core.BadRequest("invalid message payload"))
		}
		return &core.Command{
			Kind: core.CommandSendRoomMessage,
			Room: msg.Room,
			Text: msg.Text,
			Type: msg.Type,
			Meta: msg.Meta,
		}, nil

	default:
		return nil, protoError(core.InvalidMessage("unknown message type"))
	}
}

func roomCommandKind(t string) core.CommandKind {
	switch t {
	case proto.InboundTypeLeaveRoom:
		return core.CommandLeaveRoom
	case proto.InboundTypeTyping:
		return core.CommandTyping
	default:
		return core.CommandJoinRoom
	}
}

func protoError(err *core.CoreError) *proto.Error {
	return &proto.Error{Code: err.Code, Msg: err.Message}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRoomMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessageNew,
			Room:  event.Room,
			Data:  messageToProto(event.Message),
		}
	case core.EventOnlineUsers:
		online := event.Online
		if online == nil {
			online = []int64{}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventOnlineUsers,
			Room:  event.Room,
			Data:  online,
		}
	case core.EventUserTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserTyping,
			Room:  event.Room,
			Data: proto.UserTypingData{
				IdentityID:  event.Typing.IdentityID,
				DisplayName: event.Typing.DisplayName,
			},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func messageToProto(msg *core.Message) proto.EventMessage {
	meta := msg.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	out := proto.EventMessage{
		ID:        msg.ID,
		Room:      msg.Room,
		Type:      msg.Type,
		Text:      msg.Text,
		Meta:      meta,
		From:      authorToProto(msg.From),
		CreatedAt: msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if msg.ReplyTo != nil {
		out.ReplyTo = &proto.ReplyPreview{
			ID:   msg.ReplyTo.ID,
			Text: msg.ReplyTo.Text,
			From: authorToProto(msg.ReplyTo.From),
		}
	}
	return out
}

func authorToProto(a core.Author) proto.Author {
	return proto.Author{ID: a.ID, Name: a.Name, Role: a.Role}
}
