package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TaskType classifies a compliance obligation. Notifications reuse the same
// vocabulary, with TaskTypeEscalation reserved for escalated alerts.
type TaskType string

const (
	TaskTypeStatutory  TaskType = "statutory"
	TaskTypePayment    TaskType = "payment"
	TaskTypeTask       TaskType = "task"
	TaskTypeEscalation TaskType = "escalation"
)

// TaskStatus is the user-driven lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusOverdue    TaskStatus = "overdue"
)

// Priority is shared by tasks and notifications.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// DueSoonDays is the look-ahead window used for due-soon detection and
// for the dashboard statistics.
const DueSoonDays = 7

var (
	ErrEmptyTitle      = errors.New("title must not be empty")
	ErrInvalidType     = errors.New("invalid notification type")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidLevel    = errors.New("invalid escalation level")
	ErrMissingUser     = errors.New("user is required")
)

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeStatutory, TaskTypePayment, TaskTypeTask, TaskTypeEscalation:
		return true
	}
	return false
}

// Label returns the type with its first letter upper-cased ("payment" -> "Payment").
func (t TaskType) Label() string {
	s := string(t)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusOverdue:
		return true
	}
	return false
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Task is a compliance obligation with a due date and an owner.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id" db:"id"`

	// Title is the human-readable summary of the obligation.
	Title string `json:"title" db:"title"`

	// Description is the free-form body appended to notification messages.
	Description string `json:"description" db:"description"`

	// Type selects the notification settings and escalation ladder used.
	Type TaskType `json:"type" db:"type"`

	// DueDate is the instant the obligation falls due.
	DueDate time.Time `json:"due_date" db:"due_date"`

	// Status is changed by users only; overdue is computed on read.
	Status TaskStatus `json:"status" db:"status"`

	Priority Priority `json:"priority" db:"priority"`

	// Amount is only meaningful for payment tasks.
	Amount *int64 `json:"amount,omitempty" db:"amount"`

	// AssignedTo is the owning user. Unassigned tasks never notify.
	AssignedTo *string `json:"assigned_to,omitempty" db:"assigned_to"`

	CreatedBy *string `json:"created_by,omitempty" db:"created_by"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks the fields a task must carry before it is stored.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task: %w", ErrEmptyTitle)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("task type %q: %w", t.Type, ErrInvalidType)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("task status %q: %w", t.Status, ErrInvalidStatus)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("task priority %q: %w", t.Priority, ErrInvalidPriority)
	}
	return nil
}

// IsOverdue reports whether the task is pending and past its due date at now.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Status == TaskStatusPending && t.DueDate.Before(now)
}

// IsDueSoon reports whether the task is pending and due within the next
// days days of now (inclusive on both ends).
func (t *Task) IsDueSoon(now time.Time, days int) bool {
	if t.Status != TaskStatusPending {
		return false
	}
	end := now.AddDate(0, 0, days)
	return !t.DueDate.Before(now) && !t.DueDate.After(end)
}
