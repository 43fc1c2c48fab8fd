package core

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/campusconnect/campusconnect-server/internal/store"
)

// DefaultStoreTimeout bounds a single collaborator round trip.
const DefaultStoreTimeout = 5 * time.Second

// MessageStore persists messages and loads reply targets.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *store.Message) error
	GetMessage(ctx context.Context, id int64) (*store.Message, error)
}

// Store is everything the hub needs from persistence.
type Store interface {
	AccountLookup
	ProjectLookup
	ClubLookup
	MessageStore
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

type onlineQuery struct {
	room  string
	reply chan []int64
}

// Hub owns rooms, presence and connected clients. All of that state is touched only
// by the goroutine running Run; clients talk to it through channels. Store round trips
// never run on that goroutine: joins are authorized in each client's pump and messages
// are persisted by a per-room sequencer.
type Hub struct {
	store        Store
	authz        *Authorizer
	presence     *Presence
	log          *zerolog.Logger
	storeTimeout time.Duration
	clock        *messageClock

	clients    map[*Client]struct{}
	rooms      map[string]*Room
	sequencers map[string]*roomSequencer

	register   chan *Client
	unregister chan *Client
	inbox      chan clientCommand
	persisted  chan *Event
	queries    chan onlineQuery
	stopped    chan struct{}
}

// NewHub creates a hub. storeTimeout <= 0 selects DefaultStoreTimeout; logger may be nil.
func NewHub(st Store, logger *zerolog.Logger, storeTimeout time.Duration) *Hub {
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	return &Hub{
		store:        st,
		authz:        NewAuthorizer(st, st),
		presence:     NewPresence(),
		log:          orNop(logger),
		storeTimeout: storeTimeout,
		clock:        &messageClock{},
		clients:      make(map[*Client]struct{}),
		rooms:        make(map[string]*Room),
		sequencers:   make(map[string]*roomSequencer),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		inbox:        make(chan clientCommand),
		persisted:    make(chan *Event),
		queries:      make(chan onlineQuery),
		stopped:      make(chan struct{}),
	}
}

// Run processes registrations and commands until ctx is cancelled. It must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			h.addClient(ctx, c)
		case c := <-h.unregister:
			h.removeClient(c)
		case in := <-h.inbox:
			h.handle(ctx, in.client, in.cmd)
		case ev := <-h.persisted:
			h.publish(ev)
		case q := <-h.queries:
			q.reply <- h.presence.Snapshot(q.room)
		}
	}
}

// RegisterClient attaches a connection to the hub and starts consuming its commands.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.stopped:
	}
}

// UnregisterClient detaches a connection: it leaves every room, presence is swept and
// its Events channel is closed.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// Online returns the identities currently present in room.
func (h *Hub) Online(ctx context.Context, room string) ([]int64, error) {
	q := onlineQuery{room: room, reply: make(chan []int64, 1)}
	select {
	case h.queries <- q:
	case <-h.stopped:
		return nil, ErrHubStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case ids := <-q.reply:
		return ids, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) addClient(ctx context.Context, c *Client) {
	if _, ok := h.clients[c]; ok {
		return
	}
	h.clients[c] = struct{}{}
	go h.pump(ctx, c)

	ev := h.log.Debug().Str("client_id", c.ID)
	if !c.Anonymous() {
		ev = ev.Int64("user_id", c.Identity.ID)
	}
	ev.Msg("client registered")
}

func (h *Hub) removeClient(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.done)

	for room := range c.rooms {
		h.leave(c, room)
	}
	if !c.Anonymous() {
		// Nothing should remain after leaving every room; sweep anyway so presence can
		// never outlive the connection.
		for _, room := range h.presence.Sweep(c.Identity.ID, c.ID) {
			h.broadcastPresence(room)
		}
	}
	close(c.Events)

	h.log.Debug().Str("client_id", c.ID).Msg("client unregistered")
}

func (h *Hub) shutdown() {
	for c := range h.clients {
		close(c.done)
		close(c.Events)
	}
	h.clients = make(map[*Client]struct{})
	h.rooms = make(map[string]*Room)
	h.sequencers = make(map[string]*roomSequencer)
	h.presence = NewPresence()
}

// pump is the per-connection processing stream. Join authorization happens here so a
// slow project or club lookup only delays its own connection.
func (h *Hub) pump(ctx context.Context, c *Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			if cmd.Kind == CommandJoinRoom {
				if !h.authorizeJoin(ctx, c, cmd.Room) {
					continue
				}
				cmd.authorized = true
			}
			select {
			case h.inbox <- clientCommand{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *Hub) authorizeJoin(ctx context.Context, c *Client, room string) bool {
	if c.Anonymous() {
		h.log.Debug().Str("client_id", c.ID).Str("room", room).Msg("anonymous join dropped")
		return false
	}

	opCtx, cancel := context.WithTimeout(ctx, h.storeTimeout)
	defer cancel()

	ok, err := h.authz.Authorize(opCtx, c.Identity, room)
	if err != nil {
		h.log.Warn().Err(err).Str("client_id", c.ID).Str("room", room).Msg("join authorization failed")
		return false
	}
	if !ok {
		h.log.Debug().Str("client_id", c.ID).Int64("user_id", c.Identity.ID).Str("room", room).Msg("join denied")
	}
	return ok
}

func (h *Hub) handle(ctx context.Context, c *Client, cmd *Command) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	switch cmd.Kind {
	case CommandJoinRoom:
		if cmd.authorized {
			h.join(c, cmd.Room)
		}
	case CommandLeaveRoom:
		h.leave(c, cmd.Room)
	case CommandTyping:
		h.typing(c, cmd.Room)
	case CommandSendRoomMessage:
		h.handleSend(ctx, c, cmd)
	}
}

func (h *Hub) join(c *Client, name string) {
	if _, joined := c.rooms[name]; joined {
		return
	}

	room, ok := h.rooms[name]
	if !ok {
		room = NewRoom(name)
		h.rooms[name] = room
	}
	room.AddClient(c)
	c.rooms[name] = struct{}{}

	h.log.Debug().Str("client_id", c.ID).Int64("user_id", c.Identity.ID).Str("room", name).Msg("joined room")

	if h.presence.Track(name, c.Identity.ID, c.ID) {
		h.broadcastPresence(name)
		return
	}
	// Another connection of this identity is already present: the set is unchanged,
	// only the newcomer needs the current snapshot.
	c.deliver(&Event{Kind: EventOnlineUsers, Room: name, Online: h.presence.Snapshot(name)})
}

func (h *Hub) leave(c *Client, name string) {
	if _, joined := c.rooms[name]; !joined {
		return
	}
	delete(c.rooms, name)

	if room, ok := h.rooms[name]; ok {
		room.RemoveClient(c)
		if room.Empty() {
			delete(h.rooms, name)
			if seq, ok := h.sequencers[name]; ok && seq.idle() {
				delete(h.sequencers, name)
			}
		}
	}

	if !c.Anonymous() && h.presence.Untrack(name, c.Identity.ID, c.ID) {
		h.broadcastPresence(name)
	}
}

func (h *Hub) broadcastPresence(name string) {
	room, ok := h.rooms[name]
	if !ok {
		return
	}
	ev := &Event{Kind: EventOnlineUsers, Room: name, Online: h.presence.Snapshot(name)}
	if dropped := room.Broadcast(ev); dropped > 0 {
		h.log.Debug().Str("room", name).Int("dropped", dropped).Msg("presence snapshot dropped for slow clients")
	}
}

func (h *Hub) typing(c *Client, name string) {
	if c.Anonymous() {
		return
	}
	if _, joined := c.rooms[name]; !joined {
		return
	}
	room, ok := h.rooms[name]
	if !ok {
		return
	}
	room.BroadcastExcept(c, &Event{
		Kind:   EventUserTyping,
		Room:   name,
		Typing: &Typing{IdentityID: c.Identity.ID, DisplayName: c.Identity.Name},
	})
}

// handleSend validates a room message and queues it on the room's sequencer. Every
// precondition failure is a silent drop.
func (h *Hub) handleSend(ctx context.Context, c *Client, cmd *Command) {
	if c.Anonymous() {
		return
	}
	text := strings.TrimSpace(cmd.Text)
	if cmd.Room == "" || text == "" {
		return
	}
	if _, joined := c.rooms[cmd.Room]; !joined {
		h.log.Debug().Str("client_id", c.ID).Str("room", cmd.Room).Msg("message dropped, not in room")
		return
	}

	meta := cmd.Meta
	if meta == nil {
		meta = map[string]any{}
	}

	seq, ok := h.sequencers[cmd.Room]
	if !ok {
		seq = newRoomSequencer(h.persist)
		h.sequencers[cmd.Room] = seq
	}
	seq.push(&sendJob{
		ctx:      ctx,
		clientID: c.ID,
		author:   c.Identity,
		room:     cmd.Room,
		text:     text,
		kind:     cmd.Type,
		meta:     meta,
	})
}

// publish fans a persisted message out to whoever is in the room now.
func (h *Hub) publish(ev *Event) {
	room, ok := h.rooms[ev.Room]
	if !ok {
		return
	}
	if dropped := room.Broadcast(ev); dropped > 0 {
		h.log.Debug().Str("room", ev.Room).Int64("message_id", ev.Message.ID).Int("dropped", dropped).Msg("message dropped for slow clients")
	}
}

// resolveReply returns the preview for meta.replyTo when it names an existing,
// undeleted message of the same room, and nil otherwise.
func (h *Hub) resolveReply(ctx context.Context, room string, meta map[string]any) *ReplyPreview {
	id, ok := replyRef(meta)
	if !ok {
		return nil
	}

	target, err := h.store.GetMessage(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Warn().Err(err).Int64("message_id", id).Msg("reply lookup failed")
		}
		return nil
	}
	if target.Room != room || target.Deleted {
		h.log.Debug().Int64("message_id", id).Str("room", room).Msg("reply target outside room")
		return nil
	}

	preview := &ReplyPreview{ID: target.ID, Text: target.Text, From: Author{ID: target.FromID}}
	author, err := h.store.GetUserByID(ctx, target.FromID)
	if err != nil {
		h.log.Debug().Err(err).Int64("user_id", target.FromID).Msg("reply author lookup failed")
		return preview
	}
	preview.From.Name = author.Name
	preview.From.Role = string(author.Role)
	return preview
}

func replyRef(meta map[string]any) (int64, bool) {
	switch v := meta["replyTo"].(type) {
	case float64:
		if v <= 0 || v >= math.MaxInt64 || v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case int64:
		return v, v > 0
	case int:
		return int64(v), v > 0
	case json.Number:
		id, err := v.Int64()
		return id, err == nil && id > 0
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		return id, err == nil && id > 0
	default:
		return 0, false
	}
}
