package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/compliance-notifier/internal/model"
	"github.com/nhle/compliance-notifier/internal/store"
)

// NewTestStore creates an in-memory SQLStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// MustCreateUser inserts a user with the given username and returns it.
func MustCreateUser(t *testing.T, s store.UserStore, username string) *model.User {
	t.Helper()

	u, err := s.CreateUser(context.Background(), model.User{
		Username: username,
		Email:    username + "@example.com",
		FullName: username,
	})
	if err != nil {
		t.Fatalf("creating user %s: %v", username, err)
	}
	return u
}

// MustCreateTask inserts a pending task of type tt assigned to userID and
// due at due.
func MustCreateTask(
	t *testing.T,
	s store.TaskStore,
	title string,
	tt model.TaskType,
	due time.Time,
	userID *string,
) *model.Task {
	t.Helper()

	task, err := s.CreateTask(context.Background(), model.Task{
		Title:      title,
		Type:       tt,
		DueDate:    due,
		AssignedTo: userID,
	})
	if err != nil {
		t.Fatalf("creating task %s: %v", title, err)
	}
	return task
}
