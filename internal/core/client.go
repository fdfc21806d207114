package core

// Client is a connected participant as seen by the core layer.
type Client struct {
	ID       string
	Addr     string // network address used for rate limiting
	Commands chan *Command
	Events   chan *Event

	// RoomID is the room the client currently belongs to. Only the Hub goroutine touches it.
	RoomID string

	done chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id, addr string) *Client {
	return &Client{
		ID:       id,
		Addr:     addr,
		Commands: make(chan *Command, 16),
		Events:   make(chan *Event, 64),
		done:     make(chan struct{}),
	}
}
