package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is wrapped by every store implementation when a record does not exist.
var ErrNotFound = errors.New("not found")

// Role is the campus role of an account.
type Role string

const (
	RoleStudent  Role = "student"
	RoleFaculty  Role = "faculty"
	RoleClubHead Role = "clubhead"
	RoleAdmin    Role = "admin"
)

// User represents a campus account.
type User struct {
	ID         int64
	Name       string
	Email      string
	Role       Role
	Department string
	Year       string
	CreatedAt  time.Time
}

// Project is a faculty-owned student project. Its chat room is "project:<ID>".
type Project struct {
	ID          int64
	Title       string
	Description string
	FacultyID   int64
	MemberIDs   []int64
	CreatedAt   time.Time
}

// Club is a student club. Its chat room is "club:<ID>".
// MemberIDs holds approved members only.
type Club struct {
	ID          int64
	Name        string
	Description string
	HeadID      int64
	FacultyID   int64
	MemberIDs   []int64
	CreatedAt   time.Time
}

// MessageType classifies message content.
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeFile   MessageType = "file"
	MessageTypeSystem MessageType = "system"
)

// Message represents a persisted chat message.
type Message struct {
	ID        int64
	Room      string
	Type      MessageType
	Text      string
	ReplyTo   *int64
	Meta      map[string]any
	FromID    int64
	Edited    bool
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserStore handles account persistence.
type UserStore interface {
	// CreateUser inserts the user and sets its ID.
	CreateUser(ctx context.Context, user *User) error

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// ProjectStore handles project persistence.
type ProjectStore interface {
	// CreateProject inserts the project with its members and sets its ID.
	CreateProject(ctx context.Context, project *Project) error

	// GetProject retrieves a project with its member list.
	GetProject(ctx context.Context, id int64) (*Project, error)
}

// ClubStore handles club persistence.
type ClubStore interface {
	// CreateClub inserts the club with its approved members and sets its ID.
	CreateClub(ctx context.Context, club *Club) error

	// GetClub retrieves a club with its approved member list.
	GetClub(ctx context.Context, id int64) (*Club, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// CreateMessage persists a message and sets its ID.
	CreateMessage(ctx context.Context, msg *Message) error

	// GetMessage retrieves a message by ID.
	GetMessage(ctx context.Context, id int64) (*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ProjectStore
	ClubStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
