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

const taskColumns = `id, title, description, type, due_date, status, priority,
	amount, assigned_to, created_by, created_at, updated_at`

// CreateTask inserts a new task. Generates a UUID if ID is empty and fills
// in the default status and priority.
func (s *SQLStore) CreateTask(ctx context.Context, task model.Task) (*model.Task, error) {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.Status == "" {
		task.Status = model.TaskStatusPending
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	_, err := s.exec(ctx, `
		INSERT INTO compliance_tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Title, task.Description, task.Type, utc(task.DueDate),
		task.Status, task.Priority, task.Amount, task.AssignedTo, task.CreatedBy,
		utc(task.CreatedAt), task.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	return s.GetTask(ctx, task.ID)
}

// GetTask retrieves a single task by ID.
func (s *SQLStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := s.get(ctx, &task, "SELECT "+taskColumns+" FROM compliance_tasks WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	return &task, nil
}

// UpdateTask replaces the mutable fields of an existing task.
func (s *SQLStore) UpdateTask(ctx context.Context, task model.Task) (*model.Task, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.exec(ctx, `
		UPDATE compliance_tasks SET
			title = ?, description = ?, type = ?, due_date = ?,
			status = ?, priority = ?, amount = ?, assigned_to = ?,
			updated_at = ?
		WHERE id = ?`,
		task.Title, task.Description, task.Type, utc(task.DueDate),
		task.Status, task.Priority, task.Amount, task.AssignedTo,
		time.Now().UTC(),
		task.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating task %s: %w", task.ID, err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("task %s: %w", task.ID, ErrNotFound)
	}

	return s.GetTask(ctx, task.ID)
}

// DeleteTask removes a task by ID. Notifications keep their rows with the
// task reference cleared.
func (s *SQLStore) DeleteTask(ctx context.Context, id string) error {
	rows, err := s.exec(ctx, "DELETE FROM compliance_tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetTasks retrieves tasks matching the filter, ordered by due date.
func (s *SQLStore) GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	var conditions []string
	var args []any

	if filter.Type != nil {
		conditions = append(conditions, "type = ?")
		args = append(args, *filter.Type)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Priority != nil {
		conditions = append(conditions, "priority = ?")
		args = append(args, *filter.Priority)
	}
	if filter.AssignedTo != nil {
		conditions = append(conditions, "assigned_to = ?")
		args = append(args, *filter.AssignedTo)
	}

	query := "SELECT " + taskColumns + " FROM compliance_tasks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY due_date ASC, id ASC"
	query = appendPaging(query, filter.Limit, filter.Offset)

	tasks := []model.Task{}
	if err := s.selectAll(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return tasks, nil
}

// GetTasksDueSoon returns pending tasks whose due date lies in
// [now, now+days], earliest first.
func (s *SQLStore) GetTasksDueSoon(ctx context.Context, now time.Time, days int) ([]model.Task, error) {
	end := now.AddDate(0, 0, days)

	tasks := []model.Task{}
	err := s.selectAll(ctx, &tasks, `
		SELECT `+taskColumns+` FROM compliance_tasks
		WHERE status = ? AND due_date >= ? AND due_date <= ?
		ORDER BY due_date ASC, id ASC`,
		model.TaskStatusPending, utc(now), utc(end),
	)
	if err != nil {
		return nil, fmt.Errorf("querying tasks due soon: %w", err)
	}
	return tasks, nil
}

// GetOverdueTasks returns pending tasks due strictly before now, oldest
// first.
func (s *SQLStore) GetOverdueTasks(ctx context.Context, now time.Time) ([]model.Task, error) {
	tasks := []model.Task{}
	err := s.selectAll(ctx, &tasks, `
		SELECT `+taskColumns+` FROM compliance_tasks
		WHERE status = ? AND due_date < ?
		ORDER BY due_date ASC, id ASC`,
		model.TaskStatusPending, utc(now),
	)
	if err != nil {
		return nil, fmt.Errorf("querying overdue tasks: %w", err)
	}
	return tasks, nil
}

// GetTaskStats counts tasks using the same predicates as GetTasksDueSoon
// and GetOverdueTasks, so the dashboard agrees with the engine.
func (s *SQLStore) GetTaskStats(ctx context.Context, now time.Time, days int, userID *string) (model.TaskStats, error) {
	if days <= 0 {
		days = model.DueSoonDays
	}
	end := now.AddDate(0, 0, days)

	query := `
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = ? AND due_date >= ? AND due_date <= ? THEN 1 ELSE 0 END), 0) AS due_soon,
			COALESCE(SUM(CASE WHEN status = ? AND due_date < ? THEN 1 ELSE 0 END), 0) AS overdue,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed
		FROM compliance_tasks`
	args := []any{
		model.TaskStatusPending, utc(now), utc(end),
		model.TaskStatusPending, utc(now),
		model.TaskStatusCompleted,
	}
	if userID != nil {
		query += " WHERE assigned_to = ?"
		args = append(args, *userID)
	}

	var stats model.TaskStats
	if err := s.get(ctx, &stats, query, args...); err != nil {
		return model.TaskStats{}, fmt.Errorf("computing task stats: %w", err)
	}
	return stats, nil
}
