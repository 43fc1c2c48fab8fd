package core

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/campusconnect/campusconnect-server/internal/store"
)

// RoomGeneral is the campus-wide room open to every authenticated identity.
const RoomGeneral = "general"

// RoomClass is the kind of a room key.
type RoomClass int

const (
	// RoomInvalid is any key that does not match a known shape.
	RoomInvalid RoomClass = iota
	// RoomClassGeneral is the literal "general" room.
	RoomClassGeneral
	// RoomClassProject is "project:<id>".
	RoomClassProject
	// RoomClassClub is "club:<id>".
	RoomClassClub
)

// ParseRoom classifies a room key and extracts the owner id for project and club rooms.
func ParseRoom(room string) (RoomClass, int64) {
	if room == RoomGeneral {
		return RoomClassGeneral, 0
	}

	prefix, rawID, ok := strings.Cut(room, ":")
	if !ok {
		return RoomInvalid, 0
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 || strconv.FormatInt(id, 10) != rawID {
		return RoomInvalid, 0
	}

	switch prefix {
	case "project":
		return RoomClassProject, id
	case "club":
		return RoomClassClub, id
	default:
		return RoomInvalid, 0
	}
}

// ProjectLookup loads projects with their membership.
type ProjectLookup interface {
	GetProject(ctx context.Context, id int64) (*store.Project, error)
}

// ClubLookup loads clubs with their approved membership.
type ClubLookup interface {
	GetClub(ctx context.Context, id int64) (*store.Club, error)
}

// Authorizer decides whether an identity may join a room. It is fail-closed:
// anything it cannot prove eligible is denied.
type Authorizer struct {
	projects ProjectLookup
	clubs    ClubLookup
}

// NewAuthorizer builds an authorizer over the given lookups.
func NewAuthorizer(projects ProjectLookup, clubs ClubLookup) *Authorizer {
	return &Authorizer{projects: projects, clubs: clubs}
}

// Authorize reports whether identity may join room. Missing projects or clubs deny
// without error; a non-nil error means the lookup itself failed and the caller must deny.
func (a *Authorizer) Authorize(ctx context.Context, identity *Identity, room string) (bool, error) {
	if identity == nil {
		return false, nil
	}

	class, id := ParseRoom(room)
	switch class {
	case RoomClassGeneral:
		return true, nil

	case RoomClassProject:
		project, err := a.projects.GetProject(ctx, id)
		if err != nil {
			return false, ignoreNotFound(err)
		}
		return identity.ID == project.FacultyID || slices.Contains(project.MemberIDs, identity.ID), nil

	case RoomClassClub:
		club, err := a.clubs.GetClub(ctx, id)
		if err != nil {
			return false, ignoreNotFound(err)
		}
		return identity.ID == club.HeadID ||
			identity.ID == club.FacultyID ||
			slices.Contains(club.MemberIDs, identity.ID), nil

	default:
		return false, nil
	}
}

func ignoreNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
