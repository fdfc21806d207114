package core

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vovakirdan/r6voip-server/internal/ratelimit"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// nextEvent returns whatever the client receives next.
func nextEvent(t *testing.T, ch <-chan *Event) *Event {
	t.Helper()

	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return nil
	}
}

func mustAck(t *testing.T, c *Client) *Ack {
	t.Helper()
	return mustEvent(t, c.Events, EventAck).Ack
}

type testHub struct {
	hub   *Hub
	clock *clock.Mock
	ctx   context.Context
}

func startTestHub(t *testing.T) *testHub {
	t.Helper()

	mock := clock.NewMock()
	hub := NewHub(HubOptions{
		Registry: NewRegistry(RegistryOptions{Clock: mock}),
		Limiter:  ratelimit.New(mock, time.Minute, 10),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return &testHub{hub: hub, clock: mock, ctx: ctx}
}

// connect registers a client and consumes its connected event.
func (th *testHub) connect(t *testing.T, id string) *Client {
	t.Helper()

	c := NewClient(id, "addr-"+id)
	if err := th.hub.RegisterClient(c); err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
	ev := mustEvent(t, c.Events, EventConnected)
	if ev.SocketID != id {
		t.Fatalf("connected event carries %q, want %q", ev.SocketID, id)
	}
	return c
}

func (th *testHub) create(t *testing.T, c *Client, name string) string {
	t.Helper()

	c.Commands <- &Command{Kind: CommandCreateRoom, RequestID: "create-" + c.ID, Name: name}
	ack := mustAck(t, c)
	if ack.Error != nil {
		t.Fatalf("create room: %v", ack.Error)
	}
	return ack.Room
}

func (th *testHub) join(t *testing.T, c *Client, room, name string) *Ack {
	t.Helper()

	c.Commands <- &Command{Kind: CommandJoinRoom, RequestID: "join-" + c.ID, Room: room, Name: name}
	ack := mustAck(t, c)
	if ack.Error != nil {
		t.Fatalf("join room: %v", ack.Error)
	}
	return ack
}
