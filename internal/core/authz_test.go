package core

import (
	"context"
	"errors"
	"testing"

	"github.com/campusconnect/campusconnect-server/internal/store"
)

func TestParseRoom(t *testing.T) {
	tests := []struct {
		room  string
		class RoomClass
		id    int64
	}{
		{"general", RoomClassGeneral, 0},
		{"project:5", RoomClassProject, 5},
		{"club:12", RoomClassClub, 12},
		{"General", RoomInvalid, 0},
		{"project:", RoomInvalid, 0},
		{"project:0", RoomInvalid, 0},
		{"project:-1", RoomInvalid, 0},
		{"project:05", RoomInvalid, 0},
		{"project:+5", RoomInvalid, 0},
		{"project:5x", RoomInvalid, 0},
		{"club:1:2", RoomInvalid, 0},
		{"team:1", RoomInvalid, 0},
		{"", RoomInvalid, 0},
	}

	for _, tt := range tests {
		class, id := ParseRoom(tt.room)
		if class != tt.class || id != tt.id {
			t.Errorf("ParseRoom(%q) = %v, %d; want %v, %d", tt.room, class, id, tt.class, tt.id)
		}
	}
}

func TestAuthorize(t *testing.T) {
	st := newFakeStore()
	st.addProject(&store.Project{ID: 1, FacultyID: 10, MemberIDs: []int64{11}})
	st.addClub(&store.Club{ID: 2, HeadID: 20, FacultyID: 21, MemberIDs: []int64{22}})
	authz := NewAuthorizer(st, st)

	tests := []struct {
		name     string
		identity *Identity
		room     string
		want     bool
	}{
		{"anonymous general", nil, "general", false},
		{"general", &Identity{ID: 99}, "general", true},
		{"project faculty", &Identity{ID: 10}, "project:1", true},
		{"project member", &Identity{ID: 11}, "project:1", true},
		{"project outsider", &Identity{ID: 12}, "project:1", false},
		{"missing project", &Identity{ID: 10}, "project:7", false},
		{"club head", &Identity{ID: 20}, "club:2", true},
		{"club faculty", &Identity{ID: 21}, "club:2", true},
		{"club member", &Identity{ID: 22}, "club:2", true},
		{"club outsider", &Identity{ID: 10}, "club:2", false},
		{"invalid key", &Identity{ID: 10}, "dm:10", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := authz.Authorize(context.Background(), tt.identity, tt.room)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Authorize = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthorizeLookupFailure(t *testing.T) {
	st := newFakeStore()
	st.addProject(&store.Project{ID: 1, FacultyID: 10})
	boom := errors.New("connection reset")
	st.setLookupErr(boom)

	ok, err := NewAuthorizer(st, st).Authorize(context.Background(), &Identity{ID: 10}, "project:1")
	if ok {
		t.Fatalf("lookup failure must deny")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected lookup error, got %v", err)
	}

	// The general room does not depend on the store.
	ok, err = NewAuthorizer(st, st).Authorize(context.Background(), &Identity{ID: 10}, "general")
	if !ok || err != nil {
		t.Fatalf("general should stay open: %v, %v", ok, err)
	}
}
