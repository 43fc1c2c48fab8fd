package core

import "slices"

// Presence tracks which identities are present in each room. An identity is present
// while at least one of its connections is joined, so several devices count once.
// Presence is not safe for concurrent use; the Hub goroutine owns it.
type Presence struct {
	rooms map[string]map[int64]map[string]struct{} // room -> identity -> connection ids
}

// NewPresence returns an empty tracker.
func NewPresence() *Presence {
	return &Presence{rooms: make(map[string]map[int64]map[string]struct{})}
}

// Track records connID of identityID in room. Returns true if the identity was not
// present before.
func (p *Presence) Track(room string, identityID int64, connID string) bool {
	members, ok := p.rooms[room]
	if !ok {
		members = make(map[int64]map[string]struct{})
		p.rooms[room] = members
	}

	conns, present := members[identityID]
	if !present {
		conns = make(map[string]struct{})
		members[identityID] = conns
	}
	conns[connID] = struct{}{}

	return !present
}

// Untrack removes connID of identityID from room. Returns true if the identity is no
// longer present. Unknown pairs are a no-op.
func (p *Presence) Untrack(room string, identityID int64, connID string) bool {
	members, ok := p.rooms[room]
	if !ok {
		return false
	}
	conns, ok := members[identityID]
	if !ok {
		return false
	}
	if _, ok := conns[connID]; !ok {
		return false
	}

	delete(conns, connID)
	if len(conns) > 0 {
		return false
	}

	delete(members, identityID)
	if len(members) == 0 {
		delete(p.rooms, room)
	}
	return true
}

// Sweep untracks connID of identityID from every room and returns the rooms the
// identity disappeared from.
func (p *Presence) Sweep(identityID int64, connID string) []string {
	var gone []string
	for room := range p.rooms {
		if p.Untrack(room, identityID, connID) {
			gone = append(gone, room)
		}
	}
	slices.Sort(gone)
	return gone
}

// Snapshot returns the identities present in room, ascending.
func (p *Presence) Snapshot(room string) []int64 {
	members := p.rooms[room]
	ids := make([]int64, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
