package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeCreateRoom    = "create-room"
	InboundTypeJoinRoom      = "join-room"
	InboundTypeRegisterPeer  = "register-peer"
	InboundTypeToggleMute    = "toggle-mute"
	InboundTypeSpeakingState = "speaking-state"
	InboundTypeKickUser      = "kick-user"
	InboundTypeLeaveRoom     = "leave-room"

	OutboundTypeEvent = "event"
	OutboundTypeAck   = "ack"
	OutboundTypeError = "error"
)

// Server event names.
const (
	EventConnected           = "connected"
	EventUserJoined          = "user-joined"
	EventPeerRegistered      = "peer-registered"
	EventUserMuteChanged     = "user-mute-changed"
	EventUserSpeakingChanged = "user-speaking-changed"
	EventUserKicked          = "user-kicked"
	EventYouWereKicked       = "you-were-kicked"
	EventUserLeft            = "user-left"
	EventRoomExpired         = "room-expired"
)

// Protocol error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnknownType  = "unknown_type"
	ErrCodeInvalidFrame = "invalid_frame"
	ErrCodeTooMany      = "too_many_messages"
)

// CreateRoomData asks for a new room.
type CreateRoomData struct {
	Name string `json:"name"`
}

// JoinRoomData asks to enter an existing room by code.
type JoinRoomData struct {
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

// RegisterPeerData carries the client's WebRTC peer id.
type RegisterPeerData struct {
	PeerID string `json:"peerId"`
}

// ToggleMuteData carries the new mute state.
type ToggleMuteData struct {
	IsMuted bool `json:"isMuted"`
}

// SpeakingStateData carries the voice activity flag.
type SpeakingStateData struct {
	IsSpeaking bool `json:"isSpeaking"`
}

// KickUserData names the member to remove.
type KickUserData struct {
	TargetSocketID string `json:"targetSocketId"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	ID    string `json:"id,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// User is one entry of a room's member list.
type User struct {
	SocketID string `json:"socketId"`
	Name     string `json:"name"`
	IsMuted  bool   `json:"isMuted"`
	IsHost   bool   `json:"isHost"`
	PeerID   string `json:"peerId,omitempty"`
}

// RoomAck answers create-room and join-room.
type RoomAck struct {
	Success bool   `json:"success"`
	RoomID  string `json:"roomId"`
	IsHost  bool   `json:"isHost"`
	HostID  string `json:"hostId,omitempty"`
	Users   []User `json:"users"`
}

// SuccessAck answers kick-user.
type SuccessAck struct {
	Success bool `json:"success"`
}

// ErrorAck is the response to any rejected request.
type ErrorAck struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// EventConnectedData tells a fresh connection its id.
type EventConnectedData struct {
	SocketID string `json:"socketId"`
}

// EventUserJoinedData announces a new member to the others.
type EventUserJoinedData struct {
	SocketID string `json:"socketId"`
	Name     string `json:"name"`
	IsMuted  bool   `json:"isMuted"`
	IsHost   bool   `json:"isHost"`
}

// EventPeerRegisteredData shares a member's peer id.
type EventPeerRegisteredData struct {
	SocketID string `json:"socketId"`
	PeerID   string `json:"peerId"`
}

// EventUserMuteChangedData reports a mute toggle.
type EventUserMuteChangedData struct {
	SocketID string `json:"socketId"`
	IsMuted  bool   `json:"isMuted"`
}

// EventUserSpeakingChangedData reports voice activity.
type EventUserSpeakingChangedData struct {
	SocketID   string `json:"socketId"`
	IsSpeaking bool   `json:"isSpeaking"`
}

// EventUserKickedData names the removed member.
type EventUserKickedData struct {
	SocketID string `json:"socketId"`
	Name     string `json:"name"`
}

// EventUserLeftData reports a departure. NewHostID is null unless the host left.
type EventUserLeftData struct {
	SocketID  string  `json:"socketId"`
	Name      string  `json:"name"`
	WasHost   bool    `json:"wasHost"`
	NewHostID *string `json:"newHostId"`
}

// EventRoomData is the payload of you-were-kicked and room-expired.
type EventRoomData struct {
	RoomID string `json:"roomId"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
