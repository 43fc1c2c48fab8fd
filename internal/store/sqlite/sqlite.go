package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/campusconnect/campusconnect-server/internal/store"
)

// Schema is the table layout used by SQLiteStore. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	role       TEXT NOT NULL DEFAULT 'student',
	department TEXT NOT NULL DEFAULT '',
	year       TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS projects (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	faculty_id  INTEGER NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (faculty_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS project_members (
	project_id INTEGER NOT NULL,
	user_id    INTEGER NOT NULL,
	PRIMARY KEY (project_id, user_id),
	FOREIGN KEY (project_id) REFERENCES projects(id),
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS clubs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	head_id     INTEGER NOT NULL,
	faculty_id  INTEGER NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (head_id) REFERENCES users(id),
	FOREIGN KEY (faculty_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS club_members (
	club_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	PRIMARY KEY (club_id, user_id),
	FOREIGN KEY (club_id) REFERENCES clubs(id),
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	room       TEXT NOT NULL,
	type       TEXT NOT NULL DEFAULT 'text',
	text       TEXT NOT NULL DEFAULT '',
	reply_to   INTEGER,
	meta       TEXT NOT NULL DEFAULT '{}',
	from_id    INTEGER NOT NULL,
	edited     BOOLEAN NOT NULL DEFAULT 0,
	deleted    BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (from_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room, created_at);
CREATE INDEX IF NOT EXISTS idx_messages_from ON messages(from_id);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens the database at dbPath and applies Schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema or fixtures.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate applies Schema to db.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser inserts the user and sets its ID.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *store.User) error {
	if user.Role == "" {
		user.Role = store.RoleStudent
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (name, email, role, department, year, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		user.Name, user.Email, string(user.Role), user.Department, user.Year, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	user.ID = id
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, name, email, role, department, year, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	query := `
		SELECT id, name, email, role, department, year, created_at
		FROM users
		WHERE email = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	var role string
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&role,
		&user.Department,
		&user.Year,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	user.Role = store.Role(role)

	return &user, nil
}

// ==== ProjectStore implementation ====

// CreateProject inserts the project with its members and sets its ID.
func (s *SQLiteStore) CreateProject(ctx context.Context, project *store.Project) error {
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO projects (title, description, faculty_id, created_at)
		VALUES (?, ?, ?, ?)
	`, project.Title, project.Description, project.FacultyID, project.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	if err := insertMembers(ctx, tx, "project_members", "project_id", id, project.MemberIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	project.ID = id
	return nil
}

// GetProject retrieves a project with its member list.
func (s *SQLiteStore) GetProject(ctx context.Context, id int64) (*store.Project, error) {
	query := `
		SELECT id, title, description, faculty_id, created_at
		FROM projects
		WHERE id = ?
	`
	var project store.Project
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&project.ID,
		&project.Title,
		&project.Description,
		&project.FacultyID,
		&project.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query project: %w", err)
	}

	members, err := s.listMembers(ctx, "project_members", "project_id", id)
	if err != nil {
		return nil, err
	}
	project.MemberIDs = members

	return &project, nil
}

// ==== ClubStore implementation ====

// CreateClub inserts the club with its approved members and sets its ID.
func (s *SQLiteStore) CreateClub(ctx context.Context, club *store.Club) error {
	if club.CreatedAt.IsZero() {
		club.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO clubs (name, description, head_id, faculty_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, club.Name, club.Description, club.HeadID, club.FacultyID, club.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert club: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	if err := insertMembers(ctx, tx, "club_members", "club_id", id, club.MemberIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	club.ID = id
	return nil
}

// GetClub retrieves a club with its approved member list.
func (s *SQLiteStore) GetClub(ctx context.Context, id int64) (*store.Club, error) {
	query := `
		SELECT id, name, description, head_id, faculty_id, created_at
		FROM clubs
		WHERE id = ?
	`
	var club store.Club
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&club.ID,
		&club.Name,
		&club.Description,
		&club.HeadID,
		&club.FacultyID,
		&club.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("club %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query club: %w", err)
	}

	members, err := s.listMembers(ctx, "club_members", "club_id", id)
	if err != nil {
		return nil, err
	}
	club.MemberIDs = members

	return &club, nil
}

// table and column are package constants, never user input.
func insertMembers(ctx context.Context, tx *sql.Tx, table, column string, ownerID int64, userIDs []int64) error {
	query := fmt.Sprintf(`INSERT OR IGNORE INTO %s (%s, user_id) VALUES (?, ?)`, table, column)
	for _, userID := range userIDs {
		if _, err := tx.ExecContext(ctx, query, ownerID, userID); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

func (s *SQLiteStore) listMembers(ctx context.Context, table, column string, ownerID int64) ([]int64, error) {
	query := fmt.Sprintf(`SELECT user_id FROM %s WHERE %s = ? ORDER BY user_id ASC`, table, column)
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var members []int64
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, userID)
	}

	return members, rows.Err()
}

// ==== MessageStore implementation ====

// CreateMessage persists a message and sets its ID.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *store.Message) error {
	if msg.Type == "" {
		msg.Type = store.MessageTypeText
	}
	if msg.Meta == nil {
		msg.Meta = map[string]any{}
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.UpdatedAt.IsZero() {
		msg.UpdatedAt = msg.CreatedAt
	}

	meta, err := json.Marshal(msg.Meta)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}

	query := `
		INSERT INTO messages (room, type, text, reply_to, meta, from_id, edited, deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		msg.Room, string(msg.Type), msg.Text, msg.ReplyTo, string(meta), msg.FromID,
		msg.Edited, msg.Deleted, msg.CreatedAt, msg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	return nil
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*store.Message, error) {
	query := `
		SELECT id, room, type, text, reply_to, meta, from_id, edited, deleted, created_at, updated_at
		FROM messages
		WHERE id = ?
	`
	var msg store.Message
	var msgType, meta string
	var replyTo sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&msg.Room,
		&msgType,
		&msg.Text,
		&replyTo,
		&meta,
		&msg.FromID,
		&msg.Edited,
		&msg.Deleted,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query message: %w", err)
	}

	msg.Type = store.MessageType(msgType)
	if replyTo.Valid {
		msg.ReplyTo = &replyTo.Int64
	}
	if err := json.Unmarshal([]byte(meta), &msg.Meta); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}

	return &msg, nil
}
