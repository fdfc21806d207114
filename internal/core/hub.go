package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/r6voip-server/internal/ratelimit"
)

// DefaultMaxAge is how long a room may live.
const DefaultMaxAge = 24 * time.Hour

// ErrHubStopped is returned by calls made after Run has returned.
var ErrHubStopped = errors.New("hub stopped")

// Metrics receives counters from the hub. Implementations must be safe to call from the hub goroutine.
type Metrics interface {
	RoomCreated()
	MemberJoined()
	MemberKicked()
	RoomsExpired(n int)
	RateLimited()
	SetOccupancy(rooms, members, clients int)
}

type nopMetrics struct{}

func (nopMetrics) RoomCreated() {}
func (nopMetrics) MemberJoined() {}
func (nopMetrics) MemberKicked() {}
func (nopMetrics) RoomsExpired(int) {}
func (nopMetrics) RateLimited() {}
func (nopMetrics) SetOccupancy(int, int, int) {}

// HubOptions carries the Hub's collaborators. Nil fields get defaults.
type HubOptions struct {
	Registry *Registry
	Limiter  *ratelimit.Limiter
	Logger   *zerolog.Logger
	Metrics  Metrics
	MaxAge   time.Duration
}

type envelope struct {
	client *Client
	cmd    *Command
}

type taskResult struct {
	n   int
	err error
}

type task struct {
	name   string
	fn     func() int
	result chan taskResult
}

// Hub routes client commands to the Registry and fans out events.
// All state is owned by the goroutine running Run.
type Hub struct {
	registry *Registry
	limiter  *ratelimit.Limiter
	log      *zerolog.Logger
	metrics  Metrics
	maxAge   time.Duration

	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	inbox      chan envelope
	tasks      chan task
	stopped    chan struct{}

	roomCount atomic.Int64
}

// NewHub creates a new hub instance.
func NewHub(opts HubOptions) *Hub {
	if opts.Registry == nil {
		opts.Registry = NewRegistry(RegistryOptions{})
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.New(nil, time.Minute, 10)
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	return &Hub{
		registry:   opts.Registry,
		limiter:    opts.Limiter,
		log:        opts.Logger,
		metrics:    opts.Metrics,
		maxAge:     opts.MaxAge,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbox:      make(chan envelope, 64),
		tasks:      make(chan task),
		stopped:    make(chan struct{}),
	}
}

// Run processes registrations, commands and tasks until ctx is cancelled.
// On return every registered client has its Events channel closed.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.handleRegister(ctx, c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case env := <-h.inbox:
			h.handleCommand(env.client, env.cmd)
		case t := <-h.tasks:
			h.runTask(t)
		}
		h.publishCounts()
	}
}

// RegisterClient attaches a client to the hub. It returns ErrHubStopped once Run has returned.
func (h *Hub) RegisterClient(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.stopped:
		return ErrHubStopped
	}
}

// UnregisterClient detaches a client, running the leave flow for its room.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// RoomCount returns the number of live rooms as of the last processed event.
func (h *Hub) RoomCount() int {
	return int(h.roomCount.Load())
}

// SweepRooms expires rooms older than the configured max age and returns how many were removed.
func (h *Hub) SweepRooms(ctx context.Context) (int, error) {
	return h.submit(ctx, "room_expiry", h.expireRooms)
}

// SweepRateLimits evicts elapsed rate-limit windows and returns how many were removed.
func (h *Hub) SweepRateLimits(ctx context.Context) (int, error) {
	return h.submit(ctx, "rate_limit_eviction", h.limiter.Sweep)
}

func (h *Hub) submit(ctx context.Context, name string, fn func() int) (int, error) {
	t := task{name: name, fn: fn, result: make(chan taskResult, 1)}

	select {
	case h.tasks <- t:
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-h.stopped:
		return 0, ErrHubStopped
	}

	select {
	case res := <-t.result:
		return res.n, res.err
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-h.stopped:
		return 0, ErrHubStopped
	}
}

func (h *Hub) runTask(t task) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Str("task", t.name).Interface("panic", r).Msg("task panicked")
			t.result <- taskResult{err: fmt.Errorf("task %s panicked: %v", t.name, r)}
		}
	}()
	t.result <- taskResult{n: t.fn()}
}

func (h *Hub) handleRegister(ctx context.Context, c *Client) {
	if c == nil {
		return
	}
	h.clients[c.ID] = c
	go h.pump(ctx, c)

	h.log.Info().Str("client_id", c.ID).Str("addr", c.Addr).Int("clients", len(h.clients)).Msg("client connected")
	h.send(c, &Event{Kind: EventConnected, SocketID: c.ID})
}

func (h *Hub) handleUnregister(c *Client) {
	if c == nil || h.clients[c.ID] != c {
		return
	}
	h.leave(c)

	delete(h.clients, c.ID)
	close(c.done)
	close(c.Events)

	h.log.Info().Str("client_id", c.ID).Int("clients", len(h.clients)).Msg("client disconnected")
}

func (h *Hub) shutdown() {
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.done)
		close(c.Events)
	}
	h.log.Info().Msg("hub stopped, clients released")
	close(h.stopped)
}

// pump forwards a client's commands into the hub inbox until the client is unregistered.
func (h *Hub) pump(ctx context.Context, c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.inbox <- envelope{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handleCommand(c *Client, cmd *Command) {
	if h.clients[c.ID] != c {
		// Stale command from a client that has already disconnected.
		return
	}

	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Str("client_id", c.ID).Int("command", int(cmd.Kind)).Interface("panic", r).Msg("command panicked")
		}
	}()

	switch cmd.Kind {
	case CommandCreateRoom:
		h.createRoom(c, cmd)
	case CommandJoinRoom:
		h.joinRoom(c, cmd)
	case CommandRegisterPeer:
		h.registerPeer(c, cmd)
	case CommandToggleMute:
		h.toggleMute(c, cmd)
	case CommandSpeakingState:
		h.speakingState(c, cmd)
	case CommandKickUser:
		h.kickUser(c, cmd)
	case CommandLeaveRoom:
		h.leave(c)
	default:
		h.log.Warn().Str("client_id", c.ID).Int("command", int(cmd.Kind)).Msg("unknown command")
	}
}

func (h *Hub) createRoom(c *Client, cmd *Command) {
	if !h.limiter.Allow(c.Addr) {
		h.metrics.RateLimited()
		h.ackError(c, cmd, ErrRateLimited)
		return
	}
	if c.RoomID != "" {
		h.ackError(c, cmd, ErrAlreadyJoined)
		return
	}

	res, err := h.registry.CreateRoom(c.ID, cmd.Name)
	if err != nil {
		h.ackError(c, cmd, err)
		return
	}
	c.RoomID = res.RoomID
	h.metrics.RoomCreated()

	h.log.Info().Str("room", res.RoomID).Str("client_id", c.ID).Str("name", res.Users[0].Name).Msg("room created")
	h.ack(c, &Ack{
		RequestID: cmd.RequestID,
		Command:   cmd.Kind,
		Room:      res.RoomID,
		IsHost:    true,
		HostID:    res.HostID,
		Users:     res.Users,
	})
}

func (h *Hub) joinRoom(c *Client, cmd *Command) {
	if !h.limiter.Allow(c.Addr) {
		h.metrics.RateLimited()
		h.ackError(c, cmd, ErrRateLimited)
		return
	}
	if c.RoomID != "" {
		h.ackError(c, cmd, ErrAlreadyJoined)
		return
	}

	res, err := h.registry.JoinRoom(c.ID, cmd.Room, cmd.Name)
	if err != nil {
		h.ackError(c, cmd, err)
		return
	}
	c.RoomID = res.RoomID
	h.metrics.MemberJoined()

	var joined MemberInfo
	ids := make([]string, 0, len(res.Users))
	for _, u := range res.Users {
		ids = append(ids, u.ConnectionID)
		if u.ConnectionID == c.ID {
			joined = u
		}
	}

	h.log.Info().Str("room", res.RoomID).Str("client_id", c.ID).Str("name", joined.Name).Int("members", len(res.Users)).Msg("user joined room")
	h.broadcast(ids, c.ID, &Event{
		Kind:     EventUserJoined,
		Room:     res.RoomID,
		SocketID: c.ID,
		Name:     joined.Name,
	})
	h.ack(c, &Ack{
		RequestID: cmd.RequestID,
		Command:   cmd.Kind,
		Room:      res.RoomID,
		HostID:    res.HostID,
		Users:     res.Users,
	})
}

func (h *Hub) registerPeer(c *Client, cmd *Command) {
	prev, ok := h.registry.RegisterPeer(c.RoomID, c.ID, cmd.PeerID)
	if !ok {
		h.log.Debug().Str("client_id", c.ID).Msg("register-peer outside a room ignored")
		return
	}
	if prev != "" && prev != cmd.PeerID {
		h.log.Warn().Str("client_id", c.ID).Str("room", c.RoomID).Str("old_peer", prev).Str("new_peer", cmd.PeerID).Msg("peer id replaced")
	} else {
		h.log.Debug().Str("client_id", c.ID).Str("room", c.RoomID).Str("peer", cmd.PeerID).Msg("peer registered")
	}

	h.broadcastRoom(c.RoomID, c.ID, &Event{
		Kind:     EventPeerRegistered,
		Room:     c.RoomID,
		SocketID: c.ID,
		PeerID:   cmd.PeerID,
	})
}

func (h *Hub) toggleMute(c *Client, cmd *Command) {
	if !h.registry.SetMuted(c.RoomID, c.ID, cmd.Muted) {
		return
	}
	h.log.Debug().Str("client_id", c.ID).Str("room", c.RoomID).Bool("muted", cmd.Muted).Msg("mute changed")
	h.broadcastRoom(c.RoomID, "", &Event{
		Kind:     EventUserMuteChanged,
		Room:     c.RoomID,
		SocketID: c.ID,
		Muted:    cmd.Muted,
	})
}

func (h *Hub) speakingState(c *Client, cmd *Command) {
	if !h.registry.SetSpeaking(c.RoomID, c.ID, cmd.Speaking) {
		return
	}
	h.broadcastRoom(c.RoomID, c.ID, &Event{
		Kind:     EventUserSpeakingChanged,
		Room:     c.RoomID,
		SocketID: c.ID,
		Speaking: cmd.Speaking,
	})
}

func (h *Hub) kickUser(c *Client, cmd *Command) {
	res, err := h.registry.Kick(c.RoomID, c.ID, cmd.Target)
	if err != nil {
		h.ackError(c, cmd, err)
		return
	}
	h.metrics.MemberKicked()

	h.broadcast(res.Audience, "", &Event{
		Kind:     EventUserKicked,
		Room:     res.RoomID,
		SocketID: cmd.Target,
		Name:     res.TargetName,
	})
	if target, ok := h.clients[cmd.Target]; ok {
		target.RoomID = ""
		h.send(target, &Event{Kind: EventYouWereKicked, Room: res.RoomID})
	}

	h.log.Info().Str("room", res.RoomID).Str("client_id", cmd.Target).Str("name", res.TargetName).Str("by", c.ID).Msg("user kicked")
	h.ack(c, &Ack{RequestID: cmd.RequestID, Command: cmd.Kind, Room: res.RoomID})
}

// leave is shared by leave-room and disconnect.
func (h *Hub) leave(c *Client) {
	roomID := c.RoomID
	c.RoomID = ""

	res, ok := h.registry.Leave(roomID, c.ID)
	if !ok {
		return
	}

	h.log.Info().Str("room", roomID).Str("client_id", c.ID).Str("name", res.Name).Msg("user left room")
	if res.RoomDeleted {
		h.log.Info().Str("room", roomID).Msg("room deleted (empty)")
		return
	}
	if res.NewHostID != "" {
		h.log.Info().Str("room", roomID).Str("new_host", res.NewHostID).Msg("host transferred")
	}

	h.broadcast(res.Remaining, "", &Event{
		Kind:      EventUserLeft,
		Room:      roomID,
		SocketID:  c.ID,
		Name:      res.Name,
		WasHost:   res.WasHost,
		NewHostID: res.NewHostID,
	})
}

func (h *Hub) expireRooms() int {
	expired := h.registry.SweepExpired(h.maxAge)
	for _, room := range expired {
		ev := &Event{Kind: EventRoomExpired, Room: room.RoomID}
		for _, id := range room.ConnectionIDs {
			c, ok := h.clients[id]
			if !ok {
				continue
			}
			if c.RoomID == room.RoomID {
				c.RoomID = ""
			}
			h.send(c, ev)
		}
	}
	if len(expired) > 0 {
		h.metrics.RoomsExpired(len(expired))
		h.log.Info().Int("cleaned", len(expired)).Msg("garbage collection: cleaned stale rooms")
	}
	return len(expired)
}

func (h *Hub) ack(c *Client, ack *Ack) {
	h.send(c, &Event{Kind: EventAck, Room: ack.Room, Ack: ack})
}

func (h *Hub) ackError(c *Client, cmd *Command, err error) {
	var coreErr *CoreError
	if !errors.As(err, &coreErr) {
		coreErr = coreError("internal", KindExhausted, err.Error())
	}
	h.log.Debug().Str("client_id", c.ID).Str("code", coreErr.Code).Msg("request rejected")
	h.ack(c, &Ack{RequestID: cmd.RequestID, Command: cmd.Kind, Error: coreErr})
}

// broadcastRoom sends ev to every member of roomID except the one with id except.
func (h *Hub) broadcastRoom(roomID, except string, ev *Event) {
	room, ok := h.registry.Room(roomID)
	if !ok {
		return
	}
	h.broadcast(room.ConnectionIDs(), except, ev)
}

func (h *Hub) broadcast(ids []string, except string, ev *Event) {
	for _, id := range ids {
		if id == except {
			continue
		}
		if c, ok := h.clients[id]; ok {
			h.send(c, ev)
		}
	}
}

func (h *Hub) send(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
	default:
		h.log.Warn().Str("client_id", c.ID).Int("event", int(ev.Kind)).Msg("event buffer full, dropping event")
	}
}

func (h *Hub) publishCounts() {
	rooms := h.registry.Len()
	h.roomCount.Store(int64(rooms))
	h.metrics.SetOccupancy(rooms, h.registry.MemberCount(), len(h.clients))
}
