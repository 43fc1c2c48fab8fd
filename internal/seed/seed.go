// Package seed loads development fixtures (accounts, projects and clubs) into a store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/campusconnect/campusconnect-server/internal/store"
)

// Fixture is the YAML document accepted by the seed command. Projects and clubs refer to
// users by email.
type Fixture struct {
	Users    []UserFixture    `yaml:"users"`
	Projects []ProjectFixture `yaml:"projects"`
	Clubs    []ClubFixture    `yaml:"clubs"`
}

type UserFixture struct {
	Name       string `yaml:"name"`
	Email      string `yaml:"email"`
	Role       string `yaml:"role"`
	Department string `yaml:"department"`
	Year       string `yaml:"year"`
}

type ProjectFixture struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Faculty     string   `yaml:"faculty"`
	Members     []string `yaml:"members"`
}

type ClubFixture struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Head        string   `yaml:"head"`
	Faculty     string   `yaml:"faculty"`
	Members     []string `yaml:"members"`
}

// Store is what seeding writes to.
type Store interface {
	store.UserStore
	store.ProjectStore
	store.ClubStore
}

// Result lists what Apply created or reused.
type Result struct {
	Users    []*store.User
	Projects []*store.Project
	Clubs    []*store.Club
}

// Load reads a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes a fixture document.
func Parse(data []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	for i, u := range fx.Users {
		if u.Email == "" || u.Name == "" {
			return nil, fmt.Errorf("user %d: name and email are required", i)
		}
		if !validRole(store.Role(u.Role)) {
			return nil, fmt.Errorf("user %s: unknown role %q", u.Email, u.Role)
		}
	}
	return &fx, nil
}

func validRole(r store.Role) bool {
	switch r {
	case "", store.RoleStudent, store.RoleFaculty, store.RoleClubHead, store.RoleAdmin:
		return true
	}
	return false
}

// Apply writes fx into st. Users that already exist (by email) are reused, so a fixture
// can be applied to a database that already holds its accounts.
func Apply(ctx context.Context, st Store, fx *Fixture) (*Result, error) {
	res := &Result{}
	byEmail := make(map[string]*store.User, len(fx.Users))

	for _, uf := range fx.Users {
		u, err := st.GetUserByEmail(ctx, uf.Email)
		switch {
		case err == nil:
		case errors.Is(err, store.ErrNotFound):
			u = &store.User{
				Name:       uf.Name,
				Email:      uf.Email,
				Role:       store.Role(uf.Role),
				Department: uf.Department,
				Year:       uf.Year,
			}
			if err := st.CreateUser(ctx, u); err != nil {
				return nil, fmt.Errorf("create user %s: %w", uf.Email, err)
			}
		default:
			return nil, fmt.Errorf("lookup user %s: %w", uf.Email, err)
		}
		byEmail[uf.Email] = u
		res.Users = append(res.Users, u)
	}

	resolve := func(email string) (int64, error) {
		if u, ok := byEmail[email]; ok {
			return u.ID, nil
		}
		u, err := st.GetUserByEmail(ctx, email)
		if err != nil {
			return 0, fmt.Errorf("user %s: %w", email, err)
		}
		byEmail[email] = u
		return u.ID, nil
	}
	resolveAll := func(emails []string) ([]int64, error) {
		ids := make([]int64, 0, len(emails))
		for _, email := range emails {
			id, err := resolve(email)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	for _, pf := range fx.Projects {
		facultyID, err := resolve(pf.Faculty)
		if err != nil {
			return nil, fmt.Errorf("project %q faculty: %w", pf.Title, err)
		}
		members, err := resolveAll(pf.Members)
		if err != nil {
			return nil, fmt.Errorf("project %q members: %w", pf.Title, err)
		}
		p := &store.Project{Title: pf.Title, Description: pf.Description, FacultyID: facultyID, MemberIDs: members}
		if err := st.CreateProject(ctx, p); err != nil {
			return nil, fmt.Errorf("create project %q: %w", pf.Title, err)
		}
		res.Projects = append(res.Projects, p)
	}

	for _, cf := range fx.Clubs {
		headID, err := resolve(cf.Head)
		if err != nil {
			return nil, fmt.Errorf("club %q head: %w", cf.Name, err)
		}
		facultyID, err := resolve(cf.Faculty)
		if err != nil {
			return nil, fmt.Errorf("club %q faculty: %w", cf.Name, err)
		}
		members, err := resolveAll(cf.Members)
		if err != nil {
			return nil, fmt.Errorf("club %q members: %w", cf.Name, err)
		}
		c := &store.Club{Name: cf.Name, Description: cf.Description, HeadID: headID, FacultyID: facultyID, MemberIDs: members}
		if err := st.CreateClub(ctx, c); err != nil {
			return nil, fmt.Errorf("create club %q: %w", cf.Name, err)
		}
		res.Clubs = append(res.Clubs, c)
	}

	return res, nil
}
