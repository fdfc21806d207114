package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventConnected tells a fresh client its connection id.
	EventConnected EventKind = iota
	// EventAck answers a create, join or kick request.
	EventAck
	// EventUserJoined notifies members about a new member.
	EventUserJoined
	// EventPeerRegistered shares a member's peer id with the others.
	EventPeerRegistered
	// EventUserMuteChanged notifies the room about a mute toggle.
	EventUserMuteChanged
	// EventUserSpeakingChanged notifies the other members about speaking state.
	EventUserSpeakingChanged
	// EventUserKicked notifies the room that the host removed a member.
	EventUserKicked
	// EventYouWereKicked tells the removed member.
	EventYouWereKicked
	// EventUserLeft notifies remaining members about a departure.
	EventUserLeft
	// EventRoomExpired notifies members that the room reached its maximum age.
	EventRoomExpired
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind EventKind
	Room string

	SocketID  string
	Name      string
	PeerID    string
	Muted     bool
	Speaking  bool
	IsHost    bool
	WasHost   bool
	NewHostID string

	Ack *Ack // non-nil for EventAck
}

// Ack is the response to a request-style command.
type Ack struct {
	RequestID string
	Command   CommandKind
	Room      string
	IsHost    bool
	HostID    string
	Users     []MemberInfo
	Error     *CoreError
}
