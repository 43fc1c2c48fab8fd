package core

import (
	"slices"
	"testing"
)

func TestPresenceTrackUntrack(t *testing.T) {
	p := NewPresence()

	if !p.Track("general", 1, "c1") {
		t.Fatalf("first connection should make the identity present")
	}
	if p.Track("general", 1, "c2") {
		t.Fatalf("second connection should not change presence")
	}
	if p.Track("general", 1, "c2") {
		t.Fatalf("repeated track should not change presence")
	}
	p.Track("general", 2, "c3")

	if got := p.Snapshot("general"); !slices.Equal(got, []int64{1, 2}) {
		t.Fatalf("unexpected snapshot: %v", got)
	}

	if p.Untrack("general", 1, "c1") {
		t.Fatalf("identity still has c2 joined")
	}
	if p.Untrack("general", 1, "c1") {
		t.Fatalf("unknown pair must be a no-op")
	}
	if !p.Untrack("general", 1, "c2") {
		t.Fatalf("last connection should remove the identity")
	}
	if got := p.Snapshot("general"); !slices.Equal(got, []int64{2}) {
		t.Fatalf("unexpected snapshot: %v", got)
	}

	if p.Untrack("ghost", 9, "x") {
		t.Fatalf("unknown room must be a no-op")
	}
}

func TestPresenceSweep(t *testing.T) {
	p := NewPresence()
	p.Track("general", 1, "c1")
	p.Track("club:2", 1, "c1")
	p.Track("project:3", 1, "c1")
	p.Track("project:3", 1, "c2")

	gone := p.Sweep(1, "c1")
	if !slices.Equal(gone, []string{"club:2", "general"}) {
		t.Fatalf("unexpected sweep result: %v", gone)
	}
	if got := p.Snapshot("project:3"); !slices.Equal(got, []int64{1}) {
		t.Fatalf("other connection should keep presence: %v", got)
	}
	if got := p.Snapshot("general"); len(got) != 0 {
		t.Fatalf("expected empty snapshot, got %v", got)
	}
}

func TestPresenceSnapshotEmptyRoom(t *testing.T) {
	p := NewPresence()
	got := p.Snapshot("nobody")
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil snapshot, got %#v", got)
	}
}
