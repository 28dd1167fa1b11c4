package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/taskstream/taskstream/internal/domain"
	"github.com/taskstream/taskstream/internal/store"
)

// TimeEntryStore implements store.TimeEntryStore using PostgreSQL.
type TimeEntryStore struct {
	db store.DBTX
}

// Ensure TimeEntryStore implements store.TimeEntryStore interface
var _ store.TimeEntryStore = (*TimeEntryStore)(nil)

// NewTimeEntryStore creates a new TimeEntryStore over the given handle.
func NewTimeEntryStore(db store.DBTX) *TimeEntryStore {
	return &TimeEntryStore{db: db}
}

// WithTx implements store.TimeEntryStore.WithTx.
func (s *TimeEntryStore) WithTx(tx *sql.Tx) store.TimeEntryStore {
	return &TimeEntryStore{db: tx}
}

// Create implements store.TimeEntryStore.Create.
func (s *TimeEntryStore) Create(ctx context.Context, entry *domain.TimeEntry) error {
	query := `
		INSERT INTO time_entries (task_id, user_id, entry_date, hours)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		entry.TaskID,
		entry.UserID,
		entry.Date,
		entry.Hours,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to create time entry: %w", MapError(err))
	}
	return nil
}

// ListByTask implements store.TimeEntryStore.ListByTask.
func (s *TimeEntryStore) ListByTask(ctx context.Context, taskID int) ([]*domain.TimeEntry, error) {
	query := `
		SELECT id, task_id, user_id, entry_date, hours
		FROM time_entries
		WHERE task_id = $1
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries for task %d: %w", taskID, MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var entries []*domain.TimeEntry
	for rows.Next() {
		var entry domain.TimeEntry
		if err := rows.Scan(&entry.ID, &entry.TaskID, &entry.UserID, &entry.Date, &entry.Hours); err != nil {
			return nil, fmt.Errorf("failed to scan time entry row: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate time entry rows: %w", MapError(err))
	}
	return entries, nil
}
