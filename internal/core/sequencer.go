package core

import (
	"context"
	"sync"
	"time"

	"github.com/campusconnect/campusconnect-server/internal/store"
)

// sendJob is a validated message waiting to be persisted.
type sendJob struct {
	ctx      context.Context
	clientID string
	author   *Identity
	room     string
	text     string
	kind     string
	meta     map[string]any
}

// roomSequencer persists one room's messages in arrival order on its own goroutine,
// started on demand and gone once the queue drains.
type roomSequencer struct {
	mu      sync.Mutex
	queue   []*sendJob
	running bool
	process func(*sendJob)
}

func newRoomSequencer(process func(*sendJob)) *roomSequencer {
	return &roomSequencer{process: process}
}

// push must only be called from the hub goroutine.
func (s *roomSequencer) push(job *sendJob) {
	s.mu.Lock()
	s.queue = append(s.queue, job)
	start := !s.running
	s.running = true
	s.mu.Unlock()

	if start {
		go s.drain()
	}
}

func (s *roomSequencer) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		job := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.process(job)
	}
}

func (s *roomSequencer) idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.running
}

// messageClock hands out strictly increasing creation times. Microsecond precision
// survives every supported database.
type messageClock struct {
	mu   sync.Mutex
	last time.Time
}

func (c *messageClock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC().Truncate(time.Microsecond)
	if !now.After(c.last) {
		now = c.last.Add(time.Microsecond)
	}
	c.last = now
	return now
}

// persist resolves the reply target and stores the message, then hands the formatted
// event back to the hub for fan-out. It runs on the room's sequencer goroutine.
func (h *Hub) persist(job *sendJob) {
	if job.ctx.Err() != nil {
		return
	}

	opCtx, cancel := context.WithTimeout(job.ctx, h.storeTimeout)
	defer cancel()

	reply := h.resolveReply(opCtx, job.room, job.meta)

	msg := &store.Message{
		Room:      job.room,
		Type:      messageType(job.kind),
		Text:      job.text,
		Meta:      job.meta,
		FromID:    job.author.ID,
		CreatedAt: h.clock.next(),
	}
	msg.UpdatedAt = msg.CreatedAt
	if reply != nil {
		msg.ReplyTo = &reply.ID
	}

	if err := h.store.CreateMessage(opCtx, msg); err != nil {
		h.log.Warn().Err(err).Str("client_id", job.clientID).Str("room", job.room).Msg("failed to save message")
		return
	}

	ev := &Event{Kind: EventRoomMessage, Room: job.room, Message: formatMessage(msg, job.author, reply)}
	select {
	case h.persisted <- ev:
	case <-h.stopped:
	}
}
