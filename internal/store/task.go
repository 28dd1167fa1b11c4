package store

import (
	"context"
	"database/sql"

	"github.com/taskstream/taskstream/internal/domain"
)

// TaskStore defines the record-store operations for tasks. The task
// authority is the only writer; identifiers are assigned by the store
// on creation.
type TaskStore interface {
	// WithTx returns a copy of the store bound to the given transaction.
	WithTx(tx *sql.Tx) TaskStore

	// Create persists a new task, assigning its ID and timestamps.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its ID.
	// Returns ErrTaskNotFound if no task exists with the given ID.
	GetByID(ctx context.Context, id int) (*domain.Task, error)

	// List retrieves a page of tasks ordered by ID.
	List(ctx context.Context, offset, limit int) ([]*domain.Task, error)

	// Update persists the task's mutable fields and bumps UpdatedAt.
	// Returns ErrTaskNotFound if no task exists with the given ID.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task and, by cascade, its time entries.
	// Returns ErrTaskNotFound if no task exists with the given ID.
	Delete(ctx context.Context, id int) error
}

// TimeEntryStore defines the record-store operations for time entries.
type TimeEntryStore interface {
	// WithTx returns a copy of the store bound to the given transaction.
	WithTx(tx *sql.Tx) TimeEntryStore

	// Create persists a new time entry, assigning its ID.
	Create(ctx context.Context, entry *domain.TimeEntry) error

	// ListByTask retrieves all time entries recorded against a task.
	ListByTask(ctx context.Context, taskID int) ([]*domain.TimeEntry, error)
}
