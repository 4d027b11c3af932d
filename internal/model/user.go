package model

import "time"

// Role controls what a user may see and change through the API.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleTeamLead Role = "team_lead"
	RoleUser     Role = "user"
)

// User is a person who owns tasks or receives escalations.
type User struct {
	ID         string    `json:"id" db:"id"`
	Username   string    `json:"username" db:"username"`
	Email      string    `json:"email" db:"email"`
	Phone      *string   `json:"phone,omitempty" db:"phone"`
	FullName   string    `json:"full_name" db:"full_name"`
	Role       Role      `json:"role" db:"role"`
	Department *string   `json:"department,omitempty" db:"department"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// TaskStats is the dashboard summary over a set of tasks.
type TaskStats struct {
	Total     int `json:"total" db:"total"`
	DueSoon   int `json:"due_soon" db:"due_soon"`
	Overdue   int `json:"overdue" db:"overdue"`
	Completed int `json:"completed" db:"completed"`
}
