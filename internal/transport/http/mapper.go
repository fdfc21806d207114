package http

import (
	"encoding/json"

	"github.com/vovakirdan/r6voip-server/internal/core"
	"github.com/vovakirdan/r6voip-server/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	cmd := &core.Command{RequestID: inbound.ID}

	switch inbound.Type {
	case proto.InboundTypeCreateRoom:
		var data proto.CreateRoomData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, err
		}
		cmd.Kind = core.CommandCreateRoom
		cmd.Name = data.Name
	case proto.InboundTypeJoinRoom:
		var data proto.JoinRoomData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, err
		}
		cmd.Kind = core.CommandJoinRoom
		cmd.Room = data.RoomID
		cmd.Name = data.Name
	case proto.InboundTypeRegisterPeer:
		var data proto.RegisterPeerData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, err
		}
		if data.PeerID == "" {
			return nil, &proto.Error{Code: proto.ErrCodeBadRequest, Msg: "peerId is required"}
		}
		cmd.Kind = core.CommandRegisterPeer
		cmd.PeerID = data.PeerID
	case proto.InboundTypeToggleMute:
		var data proto.ToggleMuteData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, err
		}
		cmd.Kind = core.CommandToggleMute
		cmd.Muted = data.IsMuted
	case proto.InboundTypeSpeakingState:
		var data proto.SpeakingStateData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, err
		}
		cmd.Kind = core.CommandSpeakingState
		cmd.Speaking = data.IsSpeaking
	case proto.InboundTypeKickUser:
		var data proto.KickUserData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, err
		}
		cmd.Kind = core.CommandKickUser
		cmd.Target = data.TargetSocketID
	case proto.InboundTypeLeaveRoom:
		cmd.Kind = core.CommandLeaveRoom
	default:
		return nil, &proto.Error{Code: proto.ErrCodeUnknownType, Msg: "unknown message type"}
	}
	return cmd, nil
}

// decodeData treats a missing payload as an empty object.
func decodeData(raw json.RawMessage, v any) *proto.Error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &proto.Error{Code: proto.ErrCodeBadRequest, Msg: "invalid data: " + err.Error()}
	}
	return nil
}

// outboundFromEvent converts a core event to its wire form. It returns false for
// acks of requests that carried no id.
func outboundFromEvent(event *core.Event) (proto.Outbound, bool) {
	switch event.Kind {
	case core.EventAck:
		if event.Ack == nil || event.Ack.RequestID == "" {
			return proto.Outbound{}, false
		}
		return proto.Outbound{Type: proto.OutboundTypeAck, ID: event.Ack.RequestID, Data: ackData(event.Ack)}, true
	case core.EventConnected:
		return eventOut(proto.EventConnected, proto.EventConnectedData{SocketID: event.SocketID}), true
	case core.EventUserJoined:
		return eventOut(proto.EventUserJoined, proto.EventUserJoinedData{
			SocketID: event.SocketID,
			Name:     event.Name,
			IsMuted:  event.Muted,
			IsHost:   event.IsHost,
		}), true
	case core.EventPeerRegistered:
		return eventOut(proto.EventPeerRegistered, proto.EventPeerRegisteredData{
			SocketID: event.SocketID,
			PeerID:   event.PeerID,
		}), true
	case core.EventUserMuteChanged:
		return eventOut(proto.EventUserMuteChanged, proto.EventUserMuteChangedData{
			SocketID: event.SocketID,
			IsMuted:  event.Muted,
		}), true
	case core.EventUserSpeakingChanged:
		return eventOut(proto.EventUserSpeakingChanged, proto.EventUserSpeakingChangedData{
			SocketID:   event.SocketID,
			IsSpeaking: event.Speaking,
		}), true
	case core.EventUserKicked:
		return eventOut(proto.EventUserKicked, proto.EventUserKickedData{
			SocketID: event.SocketID,
			Name:     event.Name,
		}), true
	case core.EventYouWereKicked:
		return eventOut(proto.EventYouWereKicked, proto.EventRoomData{RoomID: event.Room}), true
	case core.EventUserLeft:
		data := proto.EventUserLeftData{
			SocketID: event.SocketID,
			Name:     event.Name,
			WasHost:  event.WasHost,
		}
		if event.NewHostID != "" {
			newHost := event.NewHostID
			data.NewHostID = &newHost
		}
		return eventOut(proto.EventUserLeft, data), true
	case core.EventRoomExpired:
		return eventOut(proto.EventRoomExpired, proto.EventRoomData{RoomID: event.Room}), true
	default:
		return proto.Outbound{}, false
	}
}

func eventOut(name string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
}

func ackData(ack *core.Ack) any {
	if ack.Error != nil {
		return proto.ErrorAck{Error: ack.Error.Message, Code: ack.Error.Code}
	}
	switch ack.Command {
	case core.CommandCreateRoom, core.CommandJoinRoom:
		out := proto.RoomAck{
			Success: true,
			RoomID:  ack.Room,
			IsHost:  ack.IsHost,
			Users:   usersOut(ack.Users),
		}
		if ack.Command == core.CommandJoinRoom {
			out.HostID = ack.HostID
		}
		return out
	default:
		return proto.SuccessAck{Success: true}
	}
}

func usersOut(members []core.MemberInfo) []proto.User {
	users := make([]proto.User, 0, len(members))
	for _, m := range members {
		users = append(users, proto.User{
			SocketID: m.ConnectionID,
			Name:     m.Name,
			IsMuted:  m.Muted,
			IsHost:   m.IsHost,
			PeerID:   m.PeerID,
		})
	}
	return users
}
