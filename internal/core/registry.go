package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/benbjohnson/clock"

	"github.com/vovakirdan/r6voip-server/internal/roomcode"
)

const (
	// MaxNameLength is the longest accepted display name, in characters.
	MaxNameLength = 16
	// DefaultMaxMembers caps room membership.
	DefaultMaxMembers = 5
	// DefaultCodeAttempts bounds unique code generation.
	DefaultCodeAttempts = 100
)

// RegistryOptions tunes a Registry. Zero values fall back to defaults.
type RegistryOptions struct {
	Clock        clock.Clock
	Codes        roomcode.Generator
	MaxMembers   int
	CodeAttempts int
}

// Registry owns every room and its membership.
// It is not safe for concurrent use; Hub serializes access.
type Registry struct {
	clock        clock.Clock
	codes        roomcode.Generator
	maxMembers   int
	codeAttempts int
	rooms        map[string]*Room
}

// NewRegistry constructs an empty registry.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Codes == nil {
		opts.Codes = roomcode.Random{}
	}
	if opts.MaxMembers <= 0 {
		opts.MaxMembers = DefaultMaxMembers
	}
	if opts.CodeAttempts <= 0 {
		opts.CodeAttempts = DefaultCodeAttempts
	}
	return &Registry{
		clock:        opts.Clock,
		codes:        opts.Codes,
		maxMembers:   opts.MaxMembers,
		codeAttempts: opts.CodeAttempts,
		rooms:        make(map[string]*Room),
	}
}

// JoinResult describes the room a member entered.
type JoinResult struct {
	RoomID string
	HostID string
	Users  []MemberInfo
}

// LeaveResult describes the effect of a member departing.
type LeaveResult struct {
	RoomID      string
	Name        string
	WasHost     bool
	NewHostID   string // empty unless the host left and someone remains
	RoomDeleted bool
	Remaining   []string
}

// KickResult describes a successful kick.
type KickResult struct {
	RoomID     string
	TargetName string
	Audience   []string // members before removal, target included
}

// Expired is a room removed by SweepExpired.
type Expired struct {
	RoomID        string
	ConnectionIDs []string
}

// ValidateName trims a display name and checks its length.
func ValidateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(name)
	if n < 1 || n > MaxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// CreateRoom opens a room with connID as sole member and host.
func (r *Registry) CreateRoom(connID, rawName string) (JoinResult, error) {
	name, err := ValidateName(rawName)
	if err != nil {
		return JoinResult{}, err
	}

	code, ok := r.uniqueCode()
	if !ok {
		return JoinResult{}, ErrCodeExhausted
	}

	room := NewRoom(code, r.clock.Now(), &Member{ConnectionID: connID, Name: name})
	r.rooms[code] = room

	return JoinResult{RoomID: code, HostID: connID, Users: room.Snapshot()}, nil
}

func (r *Registry) uniqueCode() (string, bool) {
	for range r.codeAttempts {
		code := r.codes.Generate()
		if _, taken := r.rooms[code]; !taken {
			return code, true
		}
	}
	return "", false
}

// JoinRoom adds connID to the room named by rawCode.
func (r *Registry) JoinRoom(connID, rawCode, rawName string) (JoinResult, error) {
	name, err := ValidateName(rawName)
	if err != nil {
		return JoinResult{}, err
	}

	code, ok := roomcode.Normalize(rawCode)
	if !ok {
		return JoinResult{}, ErrInvalidCode
	}

	room, ok := r.rooms[code]
	if !ok {
		return JoinResult{}, ErrRoomNotFound
	}
	if room.Len() >= r.maxMembers {
		return JoinResult{}, roomFullError(r.maxMembers)
	}

	room.addMember(&Member{ConnectionID: connID, Name: name})

	return JoinResult{RoomID: code, HostID: room.HostID, Users: room.Snapshot()}, nil
}

// RegisterPeer records the peer identity of a member. It returns the previous
// value and false when the member is not in a live room.
func (r *Registry) RegisterPeer(roomID, connID, peerID string) (previous string, ok bool) {
	m, ok := r.member(roomID, connID)
	if !ok {
		return "", false
	}
	previous = m.PeerID
	m.PeerID = peerID
	return previous, true
}

// SetMuted stores a member's mute state. It returns false when the member is not in a live room.
func (r *Registry) SetMuted(roomID, connID string, muted bool) bool {
	m, ok := r.member(roomID, connID)
	if !ok {
		return false
	}
	m.Muted = muted
	return true
}

// SetSpeaking checks that the member is in a live room. Speaking state is relayed, never stored.
func (r *Registry) SetSpeaking(roomID, connID string, _ bool) bool {
	_, ok := r.member(roomID, connID)
	return ok
}

func (r *Registry) member(roomID, connID string) (*Member, bool) {
	if roomID == "" {
		return nil, false
	}
	room, ok := r.rooms[roomID]
	if !ok {
		return nil, false
	}
	return room.Member(connID)
}

// Kick removes targetID from requesterID's room. Only the host may kick.
func (r *Registry) Kick(roomID, requesterID, targetID string) (KickResult, error) {
	if roomID == "" {
		return KickResult{}, ErrNotInRoom
	}
	room, ok := r.rooms[roomID]
	if !ok {
		return KickResult{}, ErrKickNoRoom
	}
	if room.HostID != requesterID {
		return KickResult{}, ErrNotHost
	}
	if targetID == requesterID {
		return KickResult{}, ErrSelfKick
	}
	target, ok := room.Member(targetID)
	if !ok {
		return KickResult{}, ErrTargetNotFound
	}

	audience := room.ConnectionIDs()
	room.removeMember(targetID)

	return KickResult{RoomID: roomID, TargetName: target.Name, Audience: audience}, nil
}

// Leave removes connID from its room, electing a new host or deleting the room as needed.
// It returns false when the connection was not a member of a live room.
func (r *Registry) Leave(roomID, connID string) (LeaveResult, bool) {
	if roomID == "" {
		return LeaveResult{}, false
	}
	room, ok := r.rooms[roomID]
	if !ok {
		return LeaveResult{}, false
	}

	order := room.ConnectionIDs()
	m := room.removeMember(connID)
	if m == nil {
		return LeaveResult{}, false
	}

	res := LeaveResult{
		RoomID:  roomID,
		Name:    m.Name,
		WasHost: room.HostID == connID,
	}

	if room.Empty() {
		delete(r.rooms, roomID)
		res.RoomDeleted = true
		return res, true
	}

	if res.WasHost {
		room.HostID = ElectHost(room.members, connID, order)
		res.NewHostID = room.HostID
	}
	res.Remaining = room.ConnectionIDs()

	return res, true
}

// SweepExpired removes and returns every room created more than maxAge ago.
func (r *Registry) SweepExpired(maxAge time.Duration) []Expired {
	cutoff := r.clock.Now().Add(-maxAge)

	var expired []Expired
	for id, room := range r.rooms {
		if room.CreatedAt.Before(cutoff) {
			expired = append(expired, Expired{RoomID: id, ConnectionIDs: room.ConnectionIDs()})
			delete(r.rooms, id)
		}
	}
	return expired
}

// Room returns the room with the given code.
func (r *Registry) Room(id string) (*Room, bool) {
	room, ok := r.rooms[id]
	return room, ok
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	return len(r.rooms)
}

// MemberCount returns the number of members across all rooms.
func (r *Registry) MemberCount() int {
	n := 0
	for _, room := range r.rooms {
		n += room.Len()
	}
	return n
}
