package store

import (
	"context"
	"time"

	"github.com/taskstream/taskstream/internal/domain"
)

// ReplicaStore holds the statistics service's derived copy of task and
// time-entry state. It is written only by the event consumer; clients
// get read access through the statistics API.
//
// All writes must be idempotent: the bus delivers at least once and
// repeated application of the same event must yield the same end state.
type ReplicaStore interface {
	// UpsertTask overwrites the row keyed by the task's ID with the
	// given snapshot. Snapshots whose UpdatedAt is older than the stored
	// row are ignored; the returned bool reports whether the row was
	// written.
	UpsertTask(ctx context.Context, task *domain.Task) (bool, error)

	// DeleteTask removes the row keyed by the task ID. Absence is not an
	// error; duplicate delete events are tolerated.
	DeleteTask(ctx context.Context, id int) error

	// UpsertTimeEntry overwrites the row keyed by the entry's ID, so
	// replays do not create duplicate rows.
	UpsertTimeEntry(ctx context.Context, entry *domain.TimeEntry) error

	// ListTasks retrieves a page of replicated tasks ordered by ID.
	ListTasks(ctx context.Context, offset, limit int) ([]*domain.Task, error)

	// CountTasksByStatus reports how many replicated tasks are in each
	// status.
	CountTasksByStatus(ctx context.Context) (map[domain.TaskStatus]int, error)

	// ListTimeEntries retrieves a user's time entries within the given
	// date range, inclusive.
	ListTimeEntries(ctx context.Context, userID int, from, to time.Time) ([]*domain.TimeEntry, error)
}
