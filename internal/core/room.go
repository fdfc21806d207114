package core

import "time"

// Member is a participant's state inside a room.
type Member struct {
	ConnectionID string
	Name         string
	PeerID       string // empty until registered
	Muted        bool
}

// MemberInfo is a read-only view of a member relative to the room's host.
type MemberInfo struct {
	ConnectionID string
	Name         string
	PeerID       string
	Muted        bool
	IsHost       bool
}

// Room groups members of one voice channel.
type Room struct {
	ID        string
	CreatedAt time.Time
	HostID    string

	members map[string]*Member
	order   []string // connection ids in join order
}

// NewRoom constructs a room whose host is its first member.
func NewRoom(id string, createdAt time.Time, host *Member) *Room {
	r := &Room{
		ID:        id,
		CreatedAt: createdAt,
		HostID:    host.ConnectionID,
		members:   make(map[string]*Member),
	}
	r.addMember(host)
	return r
}

// addMember inserts m at the end of the join order. Returns true if newly added.
func (r *Room) addMember(m *Member) bool {
	if _, exists := r.members[m.ConnectionID]; exists {
		return false
	}
	r.members[m.ConnectionID] = m
	r.order = append(r.order, m.ConnectionID)
	return true
}

// removeMember deletes a member and returns it, or nil if absent.
func (r *Room) removeMember(id string) *Member {
	m, exists := r.members[id]
	if !exists {
		return nil
	}
	delete(r.members, id)
	for i, cid := range r.order {
		if cid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return m
}

// Member returns the member with the given connection id.
func (r *Room) Member(id string) (*Member, bool) {
	m, ok := r.members[id]
	return m, ok
}

// Len returns the number of members.
func (r *Room) Len() int {
	return len(r.members)
}

// Empty returns true if no members are in the room.
func (r *Room) Empty() bool {
	return len(r.members) == 0
}

// ConnectionIDs returns member ids in join order.
func (r *Room) ConnectionIDs() []string {
	return append([]string(nil), r.order...)
}

// Snapshot returns every member in join order with IsHost computed against HostID.
func (r *Room) Snapshot() []MemberInfo {
	out := make([]MemberInfo, 0, len(r.order))
	for _, id := range r.order {
		m := r.members[id]
		out = append(out, MemberInfo{
			ConnectionID: m.ConnectionID,
			Name:         m.Name,
			PeerID:       m.PeerID,
			Muted:        m.Muted,
			IsHost:       m.ConnectionID == r.HostID,
		})
	}
	return out
}

// ElectHost picks the successor for departedID: the earliest entry of joinOrder
// that is still a member and is not the departed one. It returns "" when nobody remains.
func ElectHost(members map[string]*Member, departedID string, joinOrder []string) string {
	for _, id := range joinOrder {
		if id == departedID {
			continue
		}
		if _, ok := members[id]; ok {
			return id
		}
	}
	return ""
}
