package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/taskstream/taskstream/internal/domain"
	"github.com/taskstream/taskstream/internal/store"
)

// ReplicaStore implements store.ReplicaStore using PostgreSQL. It backs
// the statistics service's derived copy of task and time-entry state.
type ReplicaStore struct {
	db store.DBTX
}

// Ensure ReplicaStore implements store.ReplicaStore interface
var _ store.ReplicaStore = (*ReplicaStore)(nil)

// NewReplicaStore creates a new ReplicaStore over the given handle.
func NewReplicaStore(db store.DBTX) *ReplicaStore {
	return &ReplicaStore{db: db}
}

// UpsertTask implements store.ReplicaStore.UpsertTask. The WHERE clause
// on the conflict action is the version guard: a snapshot older than the
// stored row leaves it untouched, so redelivered and out-of-order events
// cannot roll state backwards.
func (s *ReplicaStore) UpsertTask(ctx context.Context, task *domain.Task) (bool, error) {
	query := `
		INSERT INTO replica_tasks (id, title, description, author_id, assignee_id, deadline, status, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title,
		    description = EXCLUDED.description,
		    author_id = EXCLUDED.author_id,
		    assignee_id = EXCLUDED.assignee_id,
		    deadline = EXCLUDED.deadline,
		    status = EXCLUDED.status,
		    priority = EXCLUDED.priority,
		    created_at = EXCLUDED.created_at,
		    updated_at = EXCLUDED.updated_at
		WHERE replica_tasks.updated_at <= EXCLUDED.updated_at
	`

	result, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.AuthorID,
		task.AssigneeID,
		task.Deadline,
		task.Status,
		task.Priority,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert replica task %d: %w", task.ID, MapError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteTask implements store.ReplicaStore.DeleteTask. Deleting an
// absent row is a no-op so duplicate delete events are tolerated.
func (s *ReplicaStore) DeleteTask(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM replica_tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete replica task %d: %w", id, MapError(err))
	}
	return nil
}

// UpsertTimeEntry implements store.ReplicaStore.UpsertTimeEntry. Keyed
// by the entry ID, not task+date, so replays overwrite instead of
// duplicating.
func (s *ReplicaStore) UpsertTimeEntry(ctx context.Context, entry *domain.TimeEntry) error {
	query := `
		INSERT INTO replica_time_entries (id, task_id, user_id, entry_date, hours)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET task_id = EXCLUDED.task_id,
		    user_id = EXCLUDED.user_id,
		    entry_date = EXCLUDED.entry_date,
		    hours = EXCLUDED.hours
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.TaskID,
		entry.UserID,
		entry.Date,
		entry.Hours,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert replica time entry %d: %w", entry.ID, MapError(err))
	}
	return nil
}

// ListTasks implements store.ReplicaStore.ListTasks.
func (s *ReplicaStore) ListTasks(ctx context.Context, offset, limit int) ([]*domain.Task, error) {
	query := `
		SELECT id, title, description, author_id, assignee_id, deadline, status, priority, created_at, updated_at
		FROM replica_tasks
		ORDER BY id
		OFFSET $1 LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list replica tasks: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan replica task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate replica task rows: %w", MapError(err))
	}
	return tasks, nil
}

// CountTasksByStatus implements store.ReplicaStore.CountTasksByStatus.
func (s *ReplicaStore) CountTasksByStatus(ctx context.Context) (map[domain.TaskStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM replica_tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count replica tasks: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[domain.TaskStatus]int)
	for rows.Next() {
		var status domain.TaskStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count row: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status count rows: %w", MapError(err))
	}
	return counts, nil
}

// ListTimeEntries implements store.ReplicaStore.ListTimeEntries.
func (s *ReplicaStore) ListTimeEntries(ctx context.Context, userID int, from, to time.Time) ([]*domain.TimeEntry, error) {
	query := `
		SELECT id, task_id, user_id, entry_date, hours
		FROM replica_time_entries
		WHERE user_id = $1 AND entry_date BETWEEN $2 AND $3
		ORDER BY entry_date, id
	`

	rows, err := s.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list replica time entries: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var entries []*domain.TimeEntry
	for rows.Next() {
		var entry domain.TimeEntry
		if err := rows.Scan(&entry.ID, &entry.TaskID, &entry.UserID, &entry.Date, &entry.Hours); err != nil {
			return nil, fmt.Errorf("failed to scan replica time entry row: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate replica time entry rows: %w", MapError(err))
	}
	return entries, nil
}
