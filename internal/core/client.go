package core

// DefaultClientBuffer is the size of a client's command and event queues when none is given.
const DefaultClientBuffer = 64

// Client is one connection as seen by the core layer.
type Client struct {
	ID       string
	Identity *Identity // nil for anonymous connections
	Commands chan *Command
	Events   chan *Event

	rooms map[string]struct{} // joined rooms; owned by the hub goroutine
	done  chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id string, identity *Identity, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	return &Client{
		ID:       id,
		Identity: identity,
		Commands: make(chan *Command, buffer),
		Events:   make(chan *Event, buffer),
		rooms:    make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

// Anonymous reports whether the connection has no resolved identity.
func (c *Client) Anonymous() bool {
	return c.Identity == nil
}

// deliver queues ev without blocking. Returns false if the client is too slow.
func (c *Client) deliver(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}
