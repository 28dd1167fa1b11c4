package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskstream/taskstream/internal/domain"
	"github.com/taskstream/taskstream/internal/events"
	"github.com/taskstream/taskstream/internal/platform/logger"
	"github.com/taskstream/taskstream/internal/service/userdir"
	"github.com/taskstream/taskstream/internal/store"
)

// TaskInput carries the caller-supplied fields of a create or update.
// AssigneeEmail is a handle; it is resolved to a stable ID before
// anything is persisted or published.
type TaskInput struct {
	Title         string
	Description   string
	AssigneeEmail string
	Status        string
	Priority      string
	Deadline      *time.Time
}

// TaskWithEntries is the read model for a single task: the task plus the
// time entries recorded against it.
type TaskWithEntries struct {
	Task        *domain.Task
	TimeEntries []*domain.TimeEntry
}

// TaskService owns all task and time-entry mutations. Every successful
// mutation is durably committed to the record store before the matching
// event goes to the bus; a publish failure never fails the mutation.
type TaskService struct {
	runTx     store.TxRunner
	tasks     store.TaskStore
	entries   store.TimeEntryStore
	directory userdir.Directory
	publisher events.Publisher
}

// NewTaskService creates a TaskService with the given collaborators.
func NewTaskService(
	runTx store.TxRunner,
	tasks store.TaskStore,
	entries store.TimeEntryStore,
	directory userdir.Directory,
	publisher events.Publisher,
) *TaskService {
	return &TaskService{
		runTx:     runTx,
		tasks:     tasks,
		entries:   entries,
		directory: directory,
		publisher: publisher,
	}
}

// CreateTask persists a new task authored by the given identity and
// publishes TaskCreated after the commit. Status defaults to WAITING
// when unspecified.
func (s *TaskService) CreateTask(ctx context.Context, input TaskInput, authorEmail string) (*domain.Task, error) {
	author, err := s.directory.GetByEmail(ctx, authorEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve author %q: %w", authorEmail, err)
	}

	task, err := domain.NewTask(input.Title, input.Description, author.ID, input.Status, input.Priority)
	if err != nil {
		return nil, err
	}
	task.Deadline = input.Deadline

	if input.AssigneeEmail != "" {
		assignee, err := s.directory.GetByEmail(ctx, input.AssigneeEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve assignee %q: %w", input.AssigneeEmail, err)
		}
		task.AssigneeID = &assignee.ID
	}

	err = s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Create(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	s.publishTask(ctx, events.TopicTaskCreated, events.KindTaskCreated, task)
	return task, nil
}

// GetTask retrieves a task and its time entries.
func (s *TaskService) GetTask(ctx context.Context, id int) (*TaskWithEntries, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries.ListByTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TaskWithEntries{Task: task, TimeEntries: entries}, nil
}

// ListTasks retrieves a page of tasks. Page numbers start at 1; out of
// range values fall back to the first page and the default size.
func (s *TaskService) ListTasks(ctx context.Context, page, size int) ([]*domain.Task, error) {
	if size <= 0 {
		size = 20
	}
	if page < 1 {
		page = 1
	}
	return s.tasks.List(ctx, (page-1)*size, size)
}

// UpdateTask overwrites the task's mutable fields and publishes
// TaskUpdated after the commit. The author is immutable and survives the
// update untouched.
func (s *TaskService) UpdateTask(ctx context.Context, id int, input TaskInput) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	status := task.Status
	if input.Status != "" {
		status, err = domain.ParseTaskStatus(input.Status)
		if err != nil {
			return nil, err
		}
	}
	priority, err := domain.ParseTaskPriority(input.Priority)
	if err != nil {
		return nil, err
	}

	task.Title = input.Title
	task.Description = input.Description
	task.Status = status
	task.Priority = priority
	task.Deadline = input.Deadline
	if err := task.Validate(); err != nil {
		return nil, err
	}

	if input.AssigneeEmail != "" {
		assignee, err := s.directory.GetByEmail(ctx, input.AssigneeEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve assignee %q: %w", input.AssigneeEmail, err)
		}
		task.AssigneeID = &assignee.ID
	}

	err = s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	s.publishTask(ctx, events.TopicTaskUpdated, events.KindTaskUpdated, task)
	return task, nil
}

// AssignTask sets the task's assignee to the identity behind the given
// handle and publishes TaskUpdated after the commit.
func (s *TaskService) AssignTask(ctx context.Context, id int, assigneeEmail string) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	assignee, err := s.directory.GetByEmail(ctx, assigneeEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve assignee %q: %w", assigneeEmail, err)
	}
	task.AssigneeID = &assignee.ID

	err = s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	s.publishTask(ctx, events.TopicTaskUpdated, events.KindTaskUpdated, task)
	return task, nil
}

// DeleteTask removes the task (cascading its time entries) and publishes
// TaskDeleted carrying the last known snapshot, since the row no longer
// exists to re-query.
func (s *TaskService) DeleteTask(ctx context.Context, id int) error {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.publishTask(ctx, events.TopicTaskDeleted, events.KindTaskDeleted, task)
	return nil
}

// SetDeadline sets the task's deadline. Permitted only for the task's
// author or a holder of an elevated role; everyone else gets
// ErrTaskAccessDenied and no event is published.
func (s *TaskService) SetDeadline(ctx context.Context, id int, deadline time.Time, requesterEmail string) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	requester, err := s.directory.GetByEmail(ctx, requesterEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve requester %q: %w", requesterEmail, err)
	}
	roles, err := s.directory.Roles(ctx, requesterEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles for %q: %w", requesterEmail, err)
	}

	if task.AuthorID != requester.ID && !domain.HasElevatedRole(roles) {
		return nil, fmt.Errorf("%w: setting the deadline of task %d requires authorship or an elevated role",
			ErrTaskAccessDenied, id)
	}

	task.Deadline = &deadline
	err = s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	s.publishTask(ctx, events.TopicTaskUpdated, events.KindTaskUpdated, task)
	return task, nil
}

// RecordTimeEntry persists a time entry against an existing task and
// publishes TimeEntryRecorded after the commit.
func (s *TaskService) RecordTimeEntry(ctx context.Context, taskID int, userEmail string, date time.Time, hours float64) (*domain.TimeEntry, error) {
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		return nil, err
	}

	user, err := s.directory.GetByEmail(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user %q: %w", userEmail, err)
	}

	entry, err := domain.NewTimeEntry(taskID, user.ID, date, hours)
	if err != nil {
		return nil, err
	}

	err = s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return s.entries.WithTx(tx).Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publishTimeEntry(ctx, entry)
	return entry, nil
}

// publishTask publishes a task snapshot after a successful commit. The
// mutation already succeeded from the caller's point of view, so a
// publish failure is logged, never surfaced: the replica catches up the
// next time the row changes or via reconciliation.
func (s *TaskService) publishTask(ctx context.Context, topic, kind string, task *domain.Task) {
	log := logger.FromContext(ctx)

	envelope, err := events.NewEnvelope(kind, events.SnapshotTask(task))
	if err != nil {
		log.Error("failed to build task event", "error", err, "kind", kind, "task_id", task.ID)
		return
	}
	if err := s.publisher.Publish(ctx, topic, events.PartitionKey(task.ID), envelope); err != nil {
		log.Error("failed to publish task event",
			slog.String("error", err.Error()),
			slog.String("kind", kind),
			slog.Int("task_id", task.ID))
	}
}

func (s *TaskService) publishTimeEntry(ctx context.Context, entry *domain.TimeEntry) {
	log := logger.FromContext(ctx)

	envelope, err := events.NewEnvelope(events.KindTimeEntryRecorded, events.SnapshotTimeEntry(entry))
	if err != nil {
		log.Error("failed to build time entry event", "error", err, "entry_id", entry.ID)
		return
	}
	if err := s.publisher.Publish(ctx, events.TopicTimeEntry, events.PartitionKey(entry.ID), envelope); err != nil {
		log.Error("failed to publish time entry event",
			slog.String("error", err.Error()),
			slog.Int("entry_id", entry.ID))
	}
}
