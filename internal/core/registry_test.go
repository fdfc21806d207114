package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vovakirdan/r6voip-server/internal/roomcode"
)

// sequenceCodes returns its codes in order, repeating the last one forever.
type sequenceCodes struct {
	codes []string
	calls int
}

func (s *sequenceCodes) Generate() string {
	i := s.calls
	if i >= len(s.codes) {
		i = len(s.codes) - 1
	}
	s.calls++
	return s.codes[i]
}

func newTestRegistry(t *testing.T) (*Registry, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	return NewRegistry(RegistryOptions{Clock: mock}), mock
}

func TestCreateRoomReturnsValidUniqueCode(t *testing.T) {
	reg, _ := newTestRegistry(t)

	seen := make(map[string]bool)
	for i := range 50 {
		res, err := reg.CreateRoom("c"+string(rune('a'+i%26))+string(rune('a'+i/26)), "alice")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if !roomcode.Validate(res.RoomID) {
			t.Fatalf("code %q does not match policy", res.RoomID)
		}
		if seen[res.RoomID] {
			t.Fatalf("duplicate code %q", res.RoomID)
		}
		seen[res.RoomID] = true
	}
	if reg.Len() != 50 {
		t.Fatalf("expected 50 rooms, got %d", reg.Len())
	}
}

func TestCreateRoomSnapshot(t *testing.T) {
	reg, _ := newTestRegistry(t)

	res, err := reg.CreateRoom("a", "  Alice ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.HostID != "a" || len(res.Users) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	u := res.Users[0]
	if u.ConnectionID != "a" || u.Name != "Alice" || !u.IsHost || u.Muted {
		t.Fatalf("unexpected member: %+v", u)
	}
}

func TestCreateRoomRejectsBadNames(t *testing.T) {
	reg, _ := newTestRegistry(t)

	for _, name := range []string{"", "   ", strings.Repeat("x", 17)} {
		if _, err := reg.CreateRoom("a", name); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("name %q: expected ErrInvalidName, got %v", name, err)
		}
	}
	if _, err := reg.CreateRoom("a", strings.Repeat("é", 16)); err != nil {
		t.Fatalf("16 runes must be accepted: %v", err)
	}
}

func TestCreateRoomRetriesCollisions(t *testing.T) {
	codes := &sequenceCodes{codes: []string{"AAAA", "AAAA", "BBBB"}}
	reg := NewRegistry(RegistryOptions{Clock: clock.NewMock(), Codes: codes})

	first, err := reg.CreateRoom("a", "alice")
	if err != nil || first.RoomID != "AAAA" {
		t.Fatalf("first create: %+v, %v", first, err)
	}
	second, err := reg.CreateRoom("b", "bob")
	if err != nil || second.RoomID != "BBBB" {
		t.Fatalf("second create should retry past collision: %+v, %v", second, err)
	}
	if codes.calls != 3 {
		t.Fatalf("expected 3 generate calls, got %d", codes.calls)
	}
}

func TestCreateRoomExhaustsAttempts(t *testing.T) {
	codes := &sequenceCodes{codes: []string{"AAAA"}}
	reg := NewRegistry(RegistryOptions{Clock: clock.NewMock(), Codes: codes, CodeAttempts: 100})

	if _, err := reg.CreateRoom("a", "alice"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	codes.calls = 0

	_, err := reg.CreateRoom("b", "bob")
	if !errors.Is(err, ErrCodeExhausted) {
		t.Fatalf("expected ErrCodeExhausted, got %v", err)
	}
	if codes.calls != 100 {
		t.Fatalf("expected 100 attempts, got %d", codes.calls)
	}
	if reg.Len() != 1 {
		t.Fatalf("failed create must not add a room")
	}
}

func TestJoinRoom(t *testing.T) {
	reg, _ := newTestRegistry(t)
	created, _ := reg.CreateRoom("alice", "Alice")

	res, err := reg.JoinRoom("bob", strings.ToLower(created.RoomID), "Bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if res.RoomID != created.RoomID || res.HostID != "alice" {
		t.Fatalf("unexpected join result: %+v", res)
	}
	if len(res.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(res.Users))
	}
	if !res.Users[0].IsHost || res.Users[1].IsHost || res.Users[1].ConnectionID != "bob" {
		t.Fatalf("unexpected users: %+v", res.Users)
	}
}

func TestJoinRoomErrors(t *testing.T) {
	reg, _ := newTestRegistry(t)
	created, _ := reg.CreateRoom("alice", "Alice")

	if _, err := reg.JoinRoom("x", "K0M4", "x"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	if _, err := reg.JoinRoom("x", "toolong", "x"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	missing := "ZZZZ"
	if created.RoomID == missing {
		missing = "YYYY"
	}
	if _, err := reg.JoinRoom("x", missing, "x"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if _, err := reg.JoinRoom("x", created.RoomID, ""); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestJoinRoomFull(t *testing.T) {
	reg, _ := newTestRegistry(t)
	created, _ := reg.CreateRoom("m0", "m0")
	for _, id := range []string{"m1", "m2", "m3", "m4"} {
		if _, err := reg.JoinRoom(id, created.RoomID, id); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}

	_, err := reg.JoinRoom("m5", created.RoomID, "m5")
	if !errors.Is(err, ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	if err.Error() != "Room is full (5/5 operators)" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	room, _ := reg.Room(created.RoomID)
	if room.Len() != 5 {
		t.Fatalf("membership must remain 5, got %d", room.Len())
	}
}

func TestLeaveElectsOldestRemainingMember(t *testing.T) {
	reg, _ := newTestRegistry(t)
	created, _ := reg.CreateRoom("a", "A")
	reg.JoinRoom("b", created.RoomID, "B")
	reg.JoinRoom("c", created.RoomID, "C")

	res, ok := reg.Leave(created.RoomID, "a")
	if !ok || !res.WasHost || res.NewHostID != "b" || res.RoomDeleted {
		t.Fatalf("unexpected leave result: %+v", res)
	}

	res, ok = reg.Leave(created.RoomID, "b")
	if !ok || !res.WasHost || res.NewHostID != "c" {
		t.Fatalf("unexpected second leave: %+v", res)
	}

	room, _ := reg.Room(created.RoomID)
	if room.HostID != "c" {
		t.Fatalf("expected c to host, got %s", room.HostID)
	}
}

func TestLeaveNonHostKeepsHost(t *testing.T) {
	reg, _ := newTestRegistry(t)
	created, _ := reg.CreateRoom("a", "A")
	reg.JoinRoom("b", created.RoomID, "B")
	reg.JoinRoom("c", created.RoomID, "C")

	res, ok := reg.Leave(created.RoomID, "b")
	if !ok || res.WasHost || res.NewHostID != "" || res.Name != "B" {
		t.Fatalf("unexpected leave result: %+v", res)
	}
	if len(res.Remaining) != 2 || res.Remaining[0] != "a" || res.Remaining[1] != "c" {
		t.Fatalf("unexpected remaining: %v", res.Remaining)
	}
}

func TestLeaveLastMemberDeletesRoom(t *testing.T) {
	reg, _ := newTestRegistry(t)
	created, _ := reg.CreateRoom("a", "A")

	res, ok := reg.Leave(created.RoomID, "a")
	if !ok || !res.RoomDeleted {
		t.Fatalf("expected room deletion: %+v", res)
	}
	if _, err := reg.JoinRoom("b", created.RoomID, "B"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound after deletion, got %v", err)
	}
	if _, ok := reg.Leave(created.RoomID, "a"); ok {
		t.Fatal("second leave must be a no-op")
	}
}

func TestKick(t *testing.T) {
	reg, _ := newTestRegistry(t)
	created, _ := reg.CreateRoom("a", "A")
	reg.JoinRoom("b", created.RoomID, "B")
	reg.JoinRoom("c", created.RoomID, "C")
	room, _ := reg.Room(created.RoomID)

	cases := []struct {
		roomID, requester, target string
		want                      error
	}{
		{"", "a", "b", ErrNotInRoom},
		{"nope", "a", "b", ErrKickNoRoom},
		{created.RoomID, "b", "c", ErrNotHost},
		{created.RoomID, "a", "a", ErrSelfKick},
		{created.RoomID, "a", "ghost", ErrTargetNotFound},
	}
	for _, tc := range cases {
		if _, err := reg.Kick(tc.roomID, tc.requester, tc.target); !errors.Is(err, tc.want) {
			t.Fatalf("kick(%q,%q,%q): expected %v, got %v", tc.roomID, tc.requester, tc.target, tc.want, err)
		}
		if room.Len() != 3 {
			t.Fatalf("failed kick changed membership")
		}
	}

	res, err := reg.Kick(created.RoomID, "a", "b")
	if err != nil {
		t.Fatalf("kick: %v", err)
	}
	if res.TargetName != "B" || len(res.Audience) != 3 {
		t.Fatalf("unexpected kick result: %+v", res)
	}
	if _, ok := room.Member("b"); ok {
		t.Fatal("target still a member")
	}
	if room.HostID != "a" {
		t.Fatal("kick must not change host")
	}
}

func TestRegisterPeerAndMute(t *testing.T) {
	reg, _ := newTestRegistry(t)
	created, _ := reg.CreateRoom("a", "A")

	if _, ok := reg.RegisterPeer("", "a", "peer-1"); ok {
		t.Fatal("register without room must be a no-op")
	}
	if _, ok := reg.RegisterPeer(created.RoomID, "ghost", "peer-1"); ok {
		t.Fatal("register for unknown member must be a no-op")
	}
	prev, ok := reg.RegisterPeer(created.RoomID, "a", "peer-1")
	if !ok || prev != "" {
		t.Fatalf("unexpected register result %q %v", prev, ok)
	}
	prev, _ = reg.RegisterPeer(created.RoomID, "a", "peer-2")
	if prev != "peer-1" {
		t.Fatalf("expected previous peer id, got %q", prev)
	}

	if !reg.SetMuted(created.RoomID, "a", true) {
		t.Fatal("mute should apply")
	}
	if reg.SetMuted("nope", "a", true) {
		t.Fatal("mute in unknown room must be a no-op")
	}

	room, _ := reg.Room(created.RoomID)
	snap := room.Snapshot()
	if snap[0].PeerID != "peer-2" || !snap[0].Muted {
		t.Fatalf("unexpected snapshot %+v", snap[0])
	}
}

func TestSweepExpired(t *testing.T) {
	reg, mock := newTestRegistry(t)
	created, _ := reg.CreateRoom("a", "A")
	reg.JoinRoom("b", created.RoomID, "B")

	mock.Add(23*time.Hour + 59*time.Minute)
	if expired := reg.SweepExpired(24 * time.Hour); len(expired) != 0 {
		t.Fatalf("room expired too early: %+v", expired)
	}
	fresh, _ := reg.CreateRoom("c", "C")

	mock.Add(2 * time.Minute)
	expired := reg.SweepExpired(24 * time.Hour)
	if len(expired) != 1 || expired[0].RoomID != created.RoomID {
		t.Fatalf("unexpected expiry: %+v", expired)
	}
	if ids := expired[0].ConnectionIDs; len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected expired members: %v", ids)
	}
	if _, ok := reg.Room(created.RoomID); ok {
		t.Fatal("expired room still present")
	}
	if _, ok := reg.Room(fresh.RoomID); !ok {
		t.Fatal("fresh room must survive")
	}
}

func TestElectHost(t *testing.T) {
	members := map[string]*Member{
		"b": {ConnectionID: "b"},
		"d": {ConnectionID: "d"},
	}
	order := []string{"a", "b", "c", "d"}

	if got := ElectHost(members, "a", order); got != "b" {
		t.Fatalf("expected b, got %q", got)
	}
	if got := ElectHost(members, "b", order); got != "d" {
		t.Fatalf("expected d, got %q", got)
	}
	if got := ElectHost(map[string]*Member{}, "a", order); got != "" {
		t.Fatalf("expected no host, got %q", got)
	}
}
