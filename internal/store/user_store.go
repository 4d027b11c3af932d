package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/compliance-notifier/internal/model"
)

const userColumns = `id, username, email, phone, full_name, role, department, created_at, updated_at`

// CreateUser inserts a new user. Usernames are unique.
func (s *SQLStore) CreateUser(ctx context.Context, u model.User) (*model.User, error) {
	if strings.TrimSpace(u.Username) == "" {
		return nil, fmt.Errorf("username must not be empty")
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.Phone, u.FullName, u.Role, u.Department,
		u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("user %s: %w", u.Username, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return s.GetUser(ctx, u.ID)
}

// GetUser retrieves a single user by ID.
func (s *SQLStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.get(ctx, &u, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}
	return &u, nil
}

// GetUsers returns all users ordered by username.
func (s *SQLStore) GetUsers(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	if err := s.selectAll(ctx, &users, "SELECT "+userColumns+" FROM users ORDER BY username"); err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	return users, nil
}
