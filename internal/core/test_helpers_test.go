package core

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/campusconnect/campusconnect-server/internal/store"
)

// fakeStore is an in-memory Store with switchable failures.
type fakeStore struct {
	mu       sync.Mutex
	users    map[int64]*store.User
	projects map[int64]*store.Project
	clubs    map[int64]*store.Club
	messages map[int64]*store.Message
	nextID   int64

	lookupErr   error                    // returned by project and club lookups
	createErr   error                    // returned by CreateMessage
	createDelay map[string]time.Duration // per-room CreateMessage latency
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[int64]*store.User),
		projects:    make(map[int64]*store.Project),
		clubs:       make(map[int64]*store.Club),
		messages:    make(map[int64]*store.Message),
		createDelay: make(map[string]time.Duration),
	}
}

func (f *fakeStore) addUser(id int64, name string, role store.Role) *Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = &store.User{ID: id, Name: name, Role: role}
	return &Identity{ID: id, Name: name, Role: string(role)}
}

func (f *fakeStore) addProject(p *store.Project) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects[p.ID] = p
}

func (f *fakeStore) addClub(c *store.Club) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clubs[c.ID] = c
}

func (f *fakeStore) setCreateErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr = err
}

func (f *fakeStore) setCreateDelay(room string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createDelay[room] = d
}

func (f *fakeStore) setLookupErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookupErr = err
}

func (f *fakeStore) messageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetProject(_ context.Context, id int64) (*store.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	p, ok := f.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %d: %w", id, store.ErrNotFound)
	}
	cp := *p
	cp.MemberIDs = slices.Clone(p.MemberIDs)
	return &cp, nil
}

func (f *fakeStore) GetClub(_ context.Context, id int64) (*store.Club, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	c, ok := f.clubs[id]
	if !ok {
		return nil, fmt.Errorf("club %d: %w", id, store.ErrNotFound)
	}
	cp := *c
	cp.MemberIDs = slices.Clone(c.MemberIDs)
	return &cp, nil
}

func (f *fakeStore) CreateMessage(ctx context.Context, msg *store.Message) error {
	f.mu.Lock()
	delay := f.createDelay[msg.Room]
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	msg.ID = f.nextID
	cp := *msg
	f.messages[msg.ID] = &cp
	return nil
}

func (f *fakeStore) GetMessage(_ context.Context, id int64) (*store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %d: %w", id, store.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func startHub(t testing.TB, st Store) *Hub {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(st, nil, time.Second)
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func connect(hub *Hub, id string, identity *Identity) *Client {
	c := NewClient(id, identity, 0)
	hub.RegisterClient(c)
	return c
}

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

// mustOnline waits for a presence snapshot of room equal to want.
func mustOnline(t *testing.T, ch <-chan *Event, room string, want ...int64) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == EventOnlineUsers && ev.Room == room && slices.Equal(ev.Online, want) {
				return
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected online snapshot %v for %s not received", want, room)
}

// noEvent fails if an event of any of kinds arrives within wait. Other events are
// consumed.
func noEvent(t *testing.T, ch <-chan *Event, wait time.Duration, kinds ...EventKind) {
	t.Helper()

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && slices.Contains(kinds, ev.Kind) {
				t.Fatalf("unexpected event: %+v", ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func mustOnlineQuery(t *testing.T, hub *Hub, room string) []int64 {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ids, err := hub.Online(ctx, room)
	if err != nil {
		t.Fatalf("online query: %v", err)
	}
	return ids
}
