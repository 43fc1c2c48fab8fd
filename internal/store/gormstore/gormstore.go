// Package gormstore implements store.Store on top of gorm. Production deployments use
// it with PostgreSQL; any gorm dialector works.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/campusconnect/campusconnect-server/internal/store"
)

type userModel struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	Name       string `gorm:"not null"`
	Email      string `gorm:"not null;uniqueIndex"`
	Role       string `gorm:"not null;default:student"`
	Department string
	Year       string
	CreatedAt  time.Time
}

func (userModel) TableName() string { return "users" }

type projectModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Title       string `gorm:"not null"`
	Description string
	FacultyID   int64 `gorm:"not null;index"`
	CreatedAt   time.Time
}

func (projectModel) TableName() string { return "projects" }

type projectMemberModel struct {
	ProjectID int64 `gorm:"primaryKey"`
	UserID    int64 `gorm:"primaryKey;index"`
}

func (projectMemberModel) TableName() string { return "project_members" }

type clubModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"not null;uniqueIndex"`
	Description string
	HeadID      int64 `gorm:"not null"`
	FacultyID   int64 `gorm:"not null"`
	CreatedAt   time.Time
}

func (clubModel) TableName() string { return "clubs" }

type clubMemberModel struct {
	ClubID int64 `gorm:"primaryKey"`
	UserID int64 `gorm:"primaryKey;index"`
}

func (clubMemberModel) TableName() string { return "club_members" }

type messageModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Room      string `gorm:"not null;index:idx_messages_room,priority:1"`
	Type      string `gorm:"not null;default:text"`
	Text      string `gorm:"not null;default:''"`
	ReplyTo   *int64
	Meta      map[string]any `gorm:"serializer:json"`
	FromID    int64          `gorm:"not null;index"`
	Edited    bool           `gorm:"not null;default:false"`
	Deleted   bool           `gorm:"not null;default:false"`
	CreatedAt time.Time      `gorm:"index:idx_messages_room,priority:2"`
	UpdatedAt time.Time
}

func (messageModel) TableName() string { return "messages" }

// Store implements store.Store using gorm.
type Store struct {
	db *gorm.DB
}

// OpenPostgres connects to PostgreSQL using dsn and migrates the schema.
func OpenPostgres(dsn string) (*Store, error) {
	return New(postgres.Open(dsn))
}

// New opens a gorm connection with dialector and migrates the schema.
func New(dialector gorm.Dialector) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates or updates tables for all models.
func (s *Store) Migrate() error {
	err := s.db.AutoMigrate(
		&userModel{},
		&projectModel{},
		&projectMemberModel{},
		&clubModel{},
		&clubMemberModel{},
		&messageModel{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error, what string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", what, id, store.ErrNotFound)
	}
	return fmt.Errorf("query %s: %w", what, err)
}

// CreateUser inserts the user and sets its ID.
func (s *Store) CreateUser(ctx context.Context, user *store.User) error {
	if user.Role == "" {
		user.Role = store.RoleStudent
	}
	m := userModel{
		Name:       user.Name,
		Email:      user.Email,
		Role:       string(user.Role),
		Department: user.Department,
		Year:       user.Year,
		CreatedAt:  user.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = m.ID
	user.CreatedAt = m.CreatedAt
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	var m userModel
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return m.toStore(), nil
}

// GetUserByEmail retrieves a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	var m userModel
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&m).Error; err != nil {
		return nil, notFound(err, "user", email)
	}
	return m.toStore(), nil
}

func (m *userModel) toStore() *store.User {
	return &store.User{
		ID:         m.ID,
		Name:       m.Name,
		Email:      m.Email,
		Role:       store.Role(m.Role),
		Department: m.Department,
		Year:       m.Year,
		CreatedAt:  m.CreatedAt,
	}
}

// CreateProject inserts the project with its members and sets its ID.
func (s *Store) CreateProject(ctx context.Context, project *store.Project) error {
	m := projectModel{
		Title:       project.Title,
		Description: project.Description,
		FacultyID:   project.FacultyID,
		CreatedAt:   project.CreatedAt,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&m).Error; err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		if len(project.MemberIDs) == 0 {
			return nil
		}
		members := make([]projectMemberModel, 0, len(project.MemberIDs))
		for _, uid := range project.MemberIDs {
			members = append(members, projectMemberModel{ProjectID: m.ID, UserID: uid})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&members).Error; err != nil {
			return fmt.Errorf("insert project members: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	project.ID = m.ID
	project.CreatedAt = m.CreatedAt
	return nil
}

// GetProject retrieves a project with its member list.
func (s *Store) GetProject(ctx context.Context, id int64) (*store.Project, error) {
	db := s.db.WithContext(ctx)

	var m projectModel
	if err := db.First(&m, id).Error; err != nil {
		return nil, notFound(err, "project", id)
	}

	var members []int64
	if err := db.Model(&projectMemberModel{}).Where("project_id = ?", id).
		Order("user_id ASC").Pluck("user_id", &members).Error; err != nil {
		return nil, fmt.Errorf("query project members: %w", err)
	}

	return &store.Project{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		FacultyID:   m.FacultyID,
		MemberIDs:   members,
		CreatedAt:   m.CreatedAt,
	}, nil
}

// CreateClub inserts the club with its approved members and sets its ID.
func (s *Store) CreateClub(ctx context.Context, club *store.Club) error {
	m := clubModel{
		Name:        club.Name,
		Description: club.Description,
		HeadID:      club.HeadID,
		FacultyID:   club.FacultyID,
		CreatedAt:   club.CreatedAt,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&m).Error; err != nil {
			return fmt.Errorf("insert club: %w", err)
		}
		if len(club.MemberIDs) == 0 {
			return nil
		}
		members := make([]clubMemberModel, 0, len(club.MemberIDs))
		for _, uid := range club.MemberIDs {
			members = append(members, clubMemberModel{ClubID: m.ID, UserID: uid})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&members).Error; err != nil {
			return fmt.Errorf("insert club members: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	club.ID = m.ID
	club.CreatedAt = m.CreatedAt
	return nil
}

// GetClub retrieves a club with its approved member list.
func (s *Store) GetClub(ctx context.Context, id int64) (*store.Club, error) {
	db := s.db.WithContext(ctx)

	var m clubModel
	if err := db.First(&m, id).Error; err != nil {
		return nil, notFound(err, "club", id)
	}

	var members []int64
	if err := db.Model(&clubMemberModel{}).Where("club_id = ?", id).
		Order("user_id ASC").Pluck("user_id", &members).Error; err != nil {
		return nil, fmt.Errorf("query club members: %w", err)
	}

	return &store.Club{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		HeadID:      m.HeadID,
		FacultyID:   m.FacultyID,
		MemberIDs:   members,
		CreatedAt:   m.CreatedAt,
	}, nil
}

// CreateMessage persists a message and sets its ID.
func (s *Store) CreateMessage(ctx context.Context, msg *store.Message) error {
	if msg.Type == "" {
		msg.Type = store.MessageTypeText
	}
	if msg.Meta == nil {
		msg.Meta = map[string]any{}
	}
	m := messageModel{
		Room:      msg.Room,
		Type:      string(msg.Type),
		Text:      msg.Text,
		ReplyTo:   msg.ReplyTo,
		Meta:      msg.Meta,
		FromID:    msg.FromID,
		Edited:    msg.Edited,
		Deleted:   msg.Deleted,
		CreatedAt: msg.CreatedAt,
		UpdatedAt: msg.UpdatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	msg.ID = m.ID
	msg.CreatedAt = m.CreatedAt
	msg.UpdatedAt = m.UpdatedAt
	return nil
}

// GetMessage retrieves a message by ID.
func (s *Store) GetMessage(ctx context.Context, id int64) (*store.Message, error) {
	var m messageModel
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err, "message", id)
	}
	meta := m.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	return &store.Message{
		ID:        m.ID,
		Room:      m.Room,
		Type:      store.MessageType(m.Type),
		Text:      m.Text,
		ReplyTo:   m.ReplyTo,
		Meta:      meta,
		FromID:    m.FromID,
		Edited:    m.Edited,
		Deleted:   m.Deleted,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}
