package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusconnect/campusconnect-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustUser(t *testing.T, s *SQLiteStore, name, email string, role store.Role) *store.User {
	t.Helper()

	u := &store.User{Name: name, Email: email, Role: role}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := mustUser(t, s, "Alice", "alice@campus.edu", store.RoleFaculty)
	if alice.ID == 0 {
		t.Fatalf("expected id to be assigned")
	}

	got, err := s.GetUserByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Name != "Alice" || got.Role != store.RoleFaculty {
		t.Fatalf("unexpected user: %+v", got)
	}

	byEmail, err := s.GetUserByEmail(ctx, "alice@campus.edu")
	if err != nil || byEmail.ID != alice.ID {
		t.Fatalf("GetUserByEmail: %+v, %v", byEmail, err)
	}

	if _, err := s.GetUserByID(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	defaulted := mustUser(t, s, "Bob", "bob@campus.edu", "")
	if defaulted.Role != store.RoleStudent {
		t.Fatalf("expected default role student, got %q", defaulted.Role)
	}

	if err := s.CreateUser(ctx, &store.User{Name: "Dup", Email: "bob@campus.edu"}); err == nil {
		t.Fatalf("expected unique email violation")
	}
}

func TestProjectsAndClubs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	faculty := mustUser(t, s, "Prof", "prof@campus.edu", store.RoleFaculty)
	s1 := mustUser(t, s, "S1", "s1@campus.edu", store.RoleStudent)
	s2 := mustUser(t, s, "S2", "s2@campus.edu", store.RoleStudent)

	project := &store.Project{Title: "Rover", FacultyID: faculty.ID, MemberIDs: []int64{s2.ID, s1.ID}}
	if err := s.CreateProject(ctx, project); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	gotProject, err := s.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if gotProject.FacultyID != faculty.ID || len(gotProject.MemberIDs) != 2 || gotProject.MemberIDs[0] != s1.ID {
		t.Fatalf("unexpected project: %+v", gotProject)
	}

	if _, err := s.GetProject(ctx, 42); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	club := &store.Club{Name: "Robotics", HeadID: s1.ID, FacultyID: faculty.ID, MemberIDs: []int64{s1.ID}}
	if err := s.CreateClub(ctx, club); err != nil {
		t.Fatalf("CreateClub: %v", err)
	}

	gotClub, err := s.GetClub(ctx, club.ID)
	if err != nil {
		t.Fatalf("GetClub: %v", err)
	}
	if gotClub.HeadID != s1.ID || gotClub.FacultyID != faculty.ID || len(gotClub.MemberIDs) != 1 {
		t.Fatalf("unexpected club: %+v", gotClub)
	}

	if _, err := s.GetClub(ctx, 42); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	author := mustUser(t, s, "Alice", "alice@campus.edu", store.RoleStudent)

	created := time.Date(2026, 3, 1, 10, 0, 0, 123456000, time.UTC)
	first := &store.Message{
		Room:      "general",
		Text:      "hello",
		Meta:      map[string]any{"attachment": "a.png"},
		FromID:    author.ID,
		CreatedAt: created,
	}
	if err := s.CreateMessage(ctx, first); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	reply := &store.Message{Room: "general", Text: "re", ReplyTo: &first.ID, FromID: author.ID}
	if err := s.CreateMessage(ctx, reply); err != nil {
		t.Fatalf("CreateMessage reply: %v", err)
	}

	got, err := s.GetMessage(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if got.Type != store.MessageTypeText || got.Text != "hello" || got.ReplyTo != nil {
		t.Fatalf("unexpected message: %+v", got)
	}
	if got.Meta["attachment"] != "a.png" {
		t.Fatalf("meta not round-tripped: %+v", got.Meta)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at mismatch: %v != %v", got.CreatedAt, created)
	}

	gotReply, err := s.GetMessage(ctx, reply.ID)
	if err != nil {
		t.Fatalf("GetMessage reply: %v", err)
	}
	if gotReply.ReplyTo == nil || *gotReply.ReplyTo != first.ID {
		t.Fatalf("reply_to not stored: %+v", gotReply)
	}
	if gotReply.Meta == nil {
		t.Fatalf("expected empty meta map, got nil")
	}

	if _, err := s.GetMessage(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
