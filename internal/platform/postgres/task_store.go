package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/taskstream/taskstream/internal/domain"
	"github.com/taskstream/taskstream/internal/store"
)

// TaskStore implements store.TaskStore using PostgreSQL.
type TaskStore struct {
	db store.DBTX
}

// Ensure TaskStore implements store.TaskStore interface
var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates a new TaskStore over the given handle.
func NewTaskStore(db store.DBTX) *TaskStore {
	return &TaskStore{db: db}
}

// WithTx implements store.TaskStore.WithTx.
func (s *TaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &TaskStore{db: tx}
}

// Create implements store.TaskStore.Create.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	query := `
		INSERT INTO tasks (title, description, author_id, assignee_id, deadline, status, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id
	`

	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, query,
		task.Title,
		task.Description,
		task.AuthorID,
		task.AssigneeID,
		task.Deadline,
		task.Status,
		task.Priority,
		now,
	).Scan(&task.ID)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", MapError(err))
	}

	task.CreatedAt = now
	task.UpdatedAt = now
	return nil
}

// GetByID implements store.TaskStore.GetByID.
func (s *TaskStore) GetByID(ctx context.Context, id int) (*domain.Task, error) {
	query := `
		SELECT id, title, description, author_id, assignee_id, deadline, status, priority, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", store.ErrTaskNotFound, id)
		}
		return nil, fmt.Errorf("failed to get task %d: %w", id, MapError(err))
	}
	return task, nil
}

// List implements store.TaskStore.List.
func (s *TaskStore) List(ctx context.Context, offset, limit int) ([]*domain.Task, error) {
	query := `
		SELECT id, title, description, author_id, assignee_id, deadline, status, priority, created_at, updated_at
		FROM tasks
		ORDER BY id
		OFFSET $1 LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task rows: %w", MapError(err))
	}
	return tasks, nil
}

// Update implements store.TaskStore.Update. The author column is
// deliberately absent from the SET list: authorship is immutable.
func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	query := `
		UPDATE tasks
		SET title = $1, description = $2, assignee_id = $3, deadline = $4, status = $5, priority = $6, updated_at = $7
		WHERE id = $8
	`

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, query,
		task.Title,
		task.Description,
		task.AssigneeID,
		task.Deadline,
		task.Status,
		task.Priority,
		now,
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task %d: %w", task.ID, MapError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", store.ErrTaskNotFound, task.ID)
	}

	task.UpdatedAt = now
	return nil
}

// Delete implements store.TaskStore.Delete. Time entries go with the
// task via the ON DELETE CASCADE on time_entries.task_id.
func (s *TaskStore) Delete(ctx context.Context, id int) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task %d: %w", id, MapError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", store.ErrTaskNotFound, id)
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.AuthorID,
		&task.AssigneeID,
		&task.Deadline,
		&task.Status,
		&task.Priority,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}
