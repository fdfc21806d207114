package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandCreateRoom opens a new room with the client as host.
	CommandCreateRoom CommandKind = iota
	// CommandJoinRoom adds the client to an existing room.
	CommandJoinRoom
	// CommandRegisterPeer records the client's WebRTC peer id.
	CommandRegisterPeer
	// CommandToggleMute updates the client's mute state.
	CommandToggleMute
	// CommandSpeakingState relays whether the client is speaking.
	CommandSpeakingState
	// CommandKickUser removes another member; host only.
	CommandKickUser
	// CommandLeaveRoom removes the client from its room.
	CommandLeaveRoom
)

// Command represents an action requested by a client.
type Command struct {
	Kind      CommandKind
	RequestID string // echoed on the ack for request-style commands

	Name     string
	Room     string
	PeerID   string
	Muted    bool
	Speaking bool
	Target   string
}
